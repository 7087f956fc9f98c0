package cli

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sheetforge/internal/app"
)

type installOptions struct {
	Module   string
	Force    bool
	Generate bool
}

func newInstallCommand() *cobra.Command {
	opts := installOptions{}
	cmd := &cobra.Command{
		Use:   "install [module]",
		Short: "Install a module revision into the content database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.Module = args[0]
				_ = cmd.Flags().Set("module", args[0])
			}
			return runInstall(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Module, "module", "", "Module id (local://name or github://org/repo)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Allow installing an older revision")
	cmd.Flags().BoolVar(&opts.Generate, "generate", true, "Run the generator pass after installing")
	_ = viper.BindPFlag("module", cmd.Flags().Lookup("module"))
	_ = viper.BindPFlag("force", cmd.Flags().Lookup("force"))
	return cmd
}

func runInstall(ctx context.Context, cmd *cobra.Command, opts installOptions) error {
	module := resolveString(cmd, opts.Module, "module", "module")
	if module == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("module is required")
	}
	service, closeFn, err := newAppService(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	result, err := service.Install(ctx, app.InstallRequest{
		Module:   module,
		System:   viper.GetString("system"),
		Force:    resolveBool(cmd, opts.Force, "force", "force"),
		Generate: opts.Generate,
	})
	if err != nil {
		return err
	}
	out := stdout(cmd)
	for _, problem := range result.Problems {
		fmt.Fprintf(out, "skipped %s: %s\n", problem.Path, problem.Message)
	}
	if result.Previous != "" {
		fmt.Fprintf(out, "installed %s %s (was %s): %d entries, %d removed\n",
			result.Module, result.Version, result.Previous, result.Entries, result.Removed)
	} else {
		fmt.Fprintf(out, "installed %s %s: %d entries\n", result.Module, result.Version, result.Entries)
	}
	if result.Generation != nil {
		printPassReport(cmd, *result.Generation)
	}
	return nil
}
