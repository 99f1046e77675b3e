package root

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/raphaelreyna/igd/pkg/commands/add"
	"github.com/raphaelreyna/igd/pkg/commands/addany"
	"github.com/raphaelreyna/igd/pkg/commands/discover"
	"github.com/raphaelreyna/igd/pkg/commands/externalip"
	"github.com/raphaelreyna/igd/pkg/commands/get"
	"github.com/raphaelreyna/igd/pkg/commands/list"
	"github.com/raphaelreyna/igd/pkg/commands/remove"
	"github.com/raphaelreyna/igd/pkg/commands/version"
	"github.com/raphaelreyna/igd/pkg/configuration"
	"github.com/raphaelreyna/igd/pkg/events"
	"github.com/raphaelreyna/igd/pkg/output"
)

type rootCommand struct {
	cobra.Command

	config *configuration.Root

	outputStarted bool
}

// ExecuteContext runs igdctl with the process arguments. ctx must carry an
// event bundle and an output system.
func ExecuteContext(ctx context.Context) error {
	return execute(ctx, os.Args[1:])
}

func execute(ctx context.Context, args []string) error {
	// template funcs need to be added before any commands are created
	// since they register usage templates
	cobra.AddTemplateFunc("wrappedFlagUsages", wrappedFlagUsages)
	cobra.AddTemplateFunc("indent", indent)

	config, err := configuration.ReadConfig(configuration.ConfigPath())
	if err != nil {
		events.SetExitCode(ctx, events.ExitCodeGenericFailure)
		fmt.Fprintln(output.Stderr(ctx), "Error:", err)
		return err
	}

	root := newRoot(config)
	root.SetArgs(args)
	root.SetErr(output.Stderr(ctx))

	err = root.ExecuteContext(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).
			Msg("failed to execute root command")
	}
	events.SetExitCode(ctx, events.ExitCodeFor(err))

	if root.outputStarted {
		output.Failed(ctx, err)
		events.Stop(ctx)
		output.Wait(ctx)
	} else if err != nil {
		fmt.Fprintln(output.Stderr(ctx), "Error:", err)
	}

	return err
}

func newRoot(config *configuration.Root) *rootCommand {
	var (
		root = rootCommand{config: config}
		cmd  = &root.Command
	)
	root.Use = "igdctl"
	root.Short = "Inspect and manage port mappings on a UPnP internet gateway"
	root.SilenceUsage = true
	root.SilenceErrors = true
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentPreRunE = root.init
	root.config.Init()
	root.config.SetFlags(cmd, cmd.PersistentFlags())

	root.setSubCommands()

	root.SetHelpTemplate(helpTemplate)
	root.SetUsageTemplate(usageTemplate)

	return &root
}

// CobraCommand returns the command tree without running it.
func CobraCommand() *cobra.Command {
	cobra.AddTemplateFunc("wrappedFlagUsages", wrappedFlagUsages)
	cobra.AddTemplateFunc("indent", indent)

	return &newRoot(&configuration.Root{}).Command
}

func (r *rootCommand) init(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	r.config.MergeFlags()
	if err := r.config.Validate(); err != nil {
		cmd.SilenceUsage = false
		return err
	}

	if _, ok := cmd.Annotations[annotationNoOutput]; ok || cmd.Name() == "help" {
		return nil
	}

	if r.config.Output.Quiet {
		output.Quiet(ctx)
	} else {
		output.SetFormat(ctx, r.config.Output.Format.Format)
		output.SetFormatOpts(ctx, r.config.Output.Format.Opts...)
	}
	output.InvocationInfo(ctx, cmd.Name())
	output.Init(ctx)
	r.outputStarted = true

	return nil
}

// annotationNoOutput marks commands that write to stdout themselves.
const annotationNoOutput = "igdctl/no-output"

func (r *rootCommand) setSubCommands() {
	for _, sc := range subCommands(r.config) {
		sc.Flags().BoolP("help", "h", false, "Show this help message.")
		r.AddCommand(sc)
	}
}

func subCommands(config *configuration.Root) []*cobra.Command {
	v := version.New().Cobra()
	v.Annotations = map[string]string{annotationNoOutput: ""}

	return []*cobra.Command{
		discover.New(config).Cobra(),
		externalip.New(config).Cobra(),
		add.New(config).Cobra(),
		addany.New(config).Cobra(),
		remove.New(config).Cobra(),
		list.New(config).Cobra(),
		get.New(config).Cobra(),
		v,
	}
}
