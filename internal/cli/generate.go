package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sheetforge/internal/app"
	"sheetforge/internal/core"
)

type generateOptions struct {
	DryRun       bool
	MaxProcessed int
}

func newGenerateCommand() *cobra.Command {
	opts := generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Regenerate every variant entry of the system",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Report the diff without writing it")
	cmd.Flags().IntVar(&opts.MaxProcessed, "max-processed", 0, "Abort after this many generators (0 uses the default)")
	_ = viper.BindPFlag("max_processed", cmd.Flags().Lookup("max-processed"))
	return cmd
}

func runGenerate(ctx context.Context, cmd *cobra.Command, opts generateOptions) error {
	service, closeFn, err := newAppService(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	report, err := service.Generate(ctx, app.GenerateRequest{
		System:       viper.GetString("system"),
		DryRun:       opts.DryRun,
		MaxProcessed: resolveInt(cmd, opts.MaxProcessed, "max_processed", "max-processed"),
	})
	if err != nil {
		return err
	}
	printPassReport(cmd, report)
	return nil
}

func printPassReport(cmd *cobra.Command, report core.PassReport) {
	out := stdout(cmd)
	fmt.Fprintf(out, "generators: %d processed, %d failed\n", report.Processed, report.Failed)
	fmt.Fprintf(out, "variants: %d added, %d updated, %d stale\n",
		len(report.Added), len(report.Updated), len(report.Stale))
}
