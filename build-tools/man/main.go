package main

import (
	"log"
	"os"

	"github.com/spf13/cobra/doc"

	"github.com/raphaelreyna/igd/pkg/commands/root"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: man <output dir>")
	}

	cmd := root.CobraCommand()
	header := doc.GenManHeader{
		Title:   "IGDCTL",
		Section: "1",
		Source:  "https://github.com/raphaelreyna/igd",
	}
	if err := doc.GenManTree(cmd, &header, os.Args[1]); err != nil {
		log.Fatal(err)
	}
}
