package root

import (
	"strings"

	"github.com/spf13/pflag"
)

const usageTemplate = `Usage:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if gt (len .Aliases) 0}}

Aliases:
  {{.NameAndAliases}}{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}

Available Commands:{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{if and .HasAvailableLocalFlags (ne .Name "igdctl")}}

Flags:
{{.LocalFlags | wrappedFlagUsages | trimTrailingWhitespaces}}{{end}}

Global Flags:
{{ "Discovery Flags:" | indent 4 }}
{{discoveryFlags | wrappedFlagUsages | trimTrailingWhitespaces | indent 8}}

{{ "Request Flags:" | indent 4 }}
{{requestFlags | wrappedFlagUsages | trimTrailingWhitespaces | indent 8}}

{{ "Any Port Flags:" | indent 4 }}
{{anyPortFlags | wrappedFlagUsages | trimTrailingWhitespaces | indent 8}}

{{ "Output Flags:" | indent 4 }}
{{outputFlags | wrappedFlagUsages | trimTrailingWhitespaces | indent 8}}{{if eq .Name "igdctl" }}

Use "igdctl [command] --help" for more information about a command.{{end}}
`

func wrappedFlagUsages(fs *pflag.FlagSet) string {
	return fs.FlagUsagesWrapped(100)
}

func indent(p int, s string) string {
	padding := strings.Repeat(" ", p)
	return padding + strings.ReplaceAll(s, "\n", "\n"+padding)
}
