package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sheetforge/internal/app"
)

type queryOptions struct {
	Category string
	Module   string
	Origin   string
	Name     string
	Where    string
	Format   string
}

type queryRow struct {
	ID       string         `json:"id" yaml:"id"`
	Category string         `json:"category" yaml:"category"`
	Metadata map[string]any `json:"metadata" yaml:"metadata"`
}

func newQueryCommand() *cobra.Command {
	opts := queryOptions{}
	cmd := &cobra.Command{
		Use:   "query",
		Short: "List installed content entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Category, "category", "", "Entry category (item, class, ...)")
	cmd.Flags().StringVar(&opts.Module, "module", "", "Restrict to one module")
	cmd.Flags().StringVar(&opts.Origin, "origin", "any", "any, authored or generated")
	cmd.Flags().StringVar(&opts.Name, "name", "", "Name substring")
	cmd.Flags().StringVar(&opts.Where, "where", "", "Criteria document in YAML")
	cmd.Flags().StringVar(&opts.Format, "format", "", "Output format (yaml or json); default prints one line per entry")
	return cmd
}

func runQuery(ctx context.Context, cmd *cobra.Command, opts queryOptions) error {
	service, closeFn, err := newAppService(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	result, err := service.Query(ctx, app.QueryRequest{
		System:   viper.GetString("system"),
		Category: opts.Category,
		Module:   opts.Module,
		Origin:   opts.Origin,
		Name:     opts.Name,
		Where:    opts.Where,
	})
	if err != nil {
		return err
	}
	out := stdout(cmd)
	if opts.Format == "" {
		for _, entry := range result.Entries {
			fmt.Fprintf(out, "%s\t%s\t%v\n", entry.ID, entry.Category, entry.Metadata["name"])
		}
		return nil
	}
	rows := make([]queryRow, 0, len(result.Entries))
	for _, entry := range result.Entries {
		rows = append(rows, queryRow{ID: entry.ID, Category: string(entry.Category), Metadata: entry.Metadata})
	}
	return writeFormatted(out, opts.Format, rows)
}

func newModulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List installed module revisions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			service, closeFn, err := newAppService(ctx)
			if err != nil {
				return err
			}
			defer closeFn()
			result, err := service.Modules(ctx, app.ModulesRequest{System: viper.GetString("system")})
			if err != nil {
				return err
			}
			for _, record := range result.Modules {
				fmt.Fprintf(stdout(cmd), "%s\t%s\t%s\n", record.Module, record.System, record.Version)
			}
			return nil
		},
	}
}
