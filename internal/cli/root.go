package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/tabula/internal/config"
	"github.com/aidanlsb/tabula/internal/logging"
)

var (
	// Global flags
	configPath string
	dbPathFlag string

	// Resolved values
	resolvedConfigPath string
	cfg                *config.Config
	logger             = logging.Discard()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tbl",
	Short: "tabula - filtered table exports",
	Long: `tabula exports tenant tables as semicolon-separated CSV.

Filters are compiled into a single SQL predicate over the row/cell store.
The same pipeline serves the HTTP API (tbl serve) and the command line
(tbl export).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "completion", "help", "version":
			return nil
		}
		if cmd.Parent() != nil && cmd.Parent().Name() == "config" {
			resolvedConfigPath = config.ResolvePath(configPath)
			return nil
		}
		if err := loadConfig(); err != nil {
			if jsonOutput {
				outputError(ErrConfigInvalid, err.Error(), nil, "Run 'tbl config init' to write a default config file")
				return errReported
			}
			return err
		}
		return nil
	},
}

// errReported marks a failure whose JSON error was already written.
var errReported = errors.New("error already reported")

// Execute runs the CLI.
func Execute() error {
	rootCmd.SilenceErrors = true
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errReported) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "Path to the SQLite store (overrides database.path)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format (for script use)")
}

// loadConfig resolves the config file, applies flag overrides and builds
// the process logger.
func loadConfig() error {
	resolvedConfigPath = config.ResolvePath(configPath)

	loaded, err := config.LoadFrom(resolvedConfigPath)
	if err != nil {
		return err
	}
	if strings.TrimSpace(dbPathFlag) != "" {
		loaded.Database.Path = dbPathFlag
	}

	l, err := logging.New(loaded.LogOptions(), os.Stderr)
	if err != nil {
		return fmt.Errorf("log: %w", err)
	}

	cfg = loaded
	logger = l
	return nil
}

// getConfig returns the loaded config, or the defaults when no command
// loaded one.
func getConfig() *config.Config {
	if cfg == nil {
		return config.Defaults()
	}
	return cfg
}

func getLogger() *slog.Logger {
	return logger
}
