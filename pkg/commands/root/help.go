package root

const helpTemplate = `{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}{{if or .Runnable .HasSubCommands}}{{.UsageString}}{{end}}
Set IGD_LOG_LEVEL=debug and IGD_LOG_STDERR=1 to see what igdctl sends to the gateway.
`
