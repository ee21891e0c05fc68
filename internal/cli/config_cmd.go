package cli

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/aidanlsb/tabula/internal/config"
	"github.com/aidanlsb/tabula/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the tabula config file",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if isJSONOutput() {
			outputSuccess(map[string]string{"path": resolvedConfigPath}, nil)
			return nil
		}
		fmt.Fprintln(stdout, resolvedConfigPath)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented default config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		created, err := config.CreateDefault(resolvedConfigPath)
		if err != nil {
			return handleError(ErrFileWriteError, err, "")
		}

		if isJSONOutput() {
			outputSuccess(map[string]any{"path": resolvedConfigPath, "created": created}, nil)
			return nil
		}
		if created {
			fmt.Fprintln(stdout, ui.Successf("Created %s", ui.FilePath(resolvedConfigPath)))
		} else {
			fmt.Fprintln(stdout, ui.Hint("Config already exists: ")+ui.FilePath(resolvedConfigPath))
		}
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}
		c := *getConfig()
		if c.Auth.JWTSecret != "" {
			c.Auth.JWTSecret = "<redacted>"
		}

		if isJSONOutput() {
			outputSuccess(c, nil)
			return nil
		}
		if err := toml.NewEncoder(stdout).Encode(c); err != nil {
			return handleError(ErrInternal, err, "")
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configPathCmd, configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
