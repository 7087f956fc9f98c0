package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"sheetforge/internal/adapters"
	"sheetforge/internal/app"
)

// newAppService opens the content database and wires the application
// service around it. The returned func closes the database.
func newAppService(ctx context.Context) (app.Service, func(), error) {
	dbPath := viper.GetString("db")
	store, err := adapters.OpenSQLiteStore(ctx, dbPath)
	if err != nil {
		return app.Service{}, nil, err
	}
	log.Ctx(ctx).Debug().Str("db", dbPath).Msg("content database opened")
	closeFn := func() {
		if err := store.Close(); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("failed to close content database")
		}
	}
	return app.NewService(store, viper.GetString("modules_root")), closeFn, nil
}

// writeFormatted prints value as yaml or json.
func writeFormatted(out io.Writer, format string, value any) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "yaml":
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		if err := encoder.Encode(value); err != nil {
			return encodeFailure(err)
		}
		return encoder.Close()
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(value); err != nil {
			return encodeFailure(err)
		}
		return nil
	default:
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown output format %q (yaml or json)", format))
	}
}

func encodeFailure(err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("failed to encode output").
		WithCause(err)
}

func stdout(cmd *cobra.Command) io.Writer {
	if cmd == nil {
		return os.Stdout
	}
	return cmd.OutOrStdout()
}
