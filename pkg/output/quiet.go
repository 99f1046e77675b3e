package output

func runQuiet(o *output) {
	for range o.events {
	}
}
