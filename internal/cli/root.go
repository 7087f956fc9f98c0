package cli

import (
	"errors"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

const envPrefix = "SHEETFORGE"

type RootConfig struct {
	ConfigFile  string
	LogLevel    string
	DBPath      string
	System      string
	ModulesRoot string
}

func Execute() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		os.Exit(exitCodeForError(err))
	}
}

func newRootCommand() *cobra.Command {
	cfg := RootConfig{}
	cmd := &cobra.Command{
		Use:           "sheetforge",
		Short:         "Tabletop RPG content store and character sheet compiler",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initConfig(cfg.ConfigFile); err != nil {
				return err
			}
			setupLogging(viper.GetString("log_level"))
			cmd.SetContext(log.Logger.WithContext(cmd.Context()))
			return nil
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfg.ConfigFile, "config", "", "Config file path")
	flags.StringVar(&cfg.LogLevel, "log-level", "info", "Log level")
	flags.StringVar(&cfg.DBPath, "db", "sheetforge.db", "Content database path")
	flags.StringVar(&cfg.System, "system", "dnd5e", "Content system")
	flags.StringVar(&cfg.ModulesRoot, "modules-root", "modules", "Directory holding local modules")
	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("db", flags.Lookup("db"))
	_ = viper.BindPFlag("system", flags.Lookup("system"))
	_ = viper.BindPFlag("modules_root", flags.Lookup("modules-root"))

	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newInstallCommand())
	cmd.AddCommand(newGenerateCommand())
	cmd.AddCommand(newCompileCommand())
	cmd.AddCommand(newQueryCommand())
	cmd.AddCommand(newModulesCommand())
	return cmd
}

func initConfig(configFile string) error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to read config file").
				WithCause(err)
		}
		return nil
	}

	viper.SetConfigName("sheetforge")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/sheetforge")
	if err := viper.ReadInConfig(); err != nil {
		return nil
	}
	return nil
}

func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// exitCodeForError maps error codes to process exit codes. Refused
// downgrades exit 3 so scripts can retry with --force.
func exitCodeForError(err error) int {
	code := errbuilder.CodeOf(err)
	message := errorMessage(err)
	switch code {
	case errbuilder.CodeInvalidArgument, errbuilder.CodeAlreadyExists:
		return 2
	case errbuilder.CodeFailedPrecondition:
		if strings.HasPrefix(message, "installed revision") {
			return 3
		}
		return 4
	case errbuilder.CodePermissionDenied:
		return 3
	case errbuilder.CodeNotFound:
		return 4
	case errbuilder.CodeInternal:
		return 5
	default:
		return 1
	}
}

func errorMessage(err error) string {
	var builder *errbuilder.ErrBuilder
	if errors.As(err, &builder) && strings.TrimSpace(builder.Msg) != "" {
		return builder.Msg
	}
	return err.Error()
}
