package cmd

import (
	"github.com/spf13/cobra"

	"github.com/corey/dashgate/internal/app"
)

var (
	configPath  string
	rootFlag    string
	stateFlag   string
	colorFlag   string
	noColorFlag bool
)

var rootCmd = &cobra.Command{
	Use:          "dashgate",
	Short:        "Token-gated static dashboard server",
	Long:         "Serves a directory of dashboard files to one operator. Every request needs the per-process token as ?token=.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "YAML config file")
	pf.StringVarP(&rootFlag, "root", "r", "", "Static root directory (default: config root or cwd)")
	pf.StringVar(&stateFlag, "state-dir", "", "State directory for the audit log and run files")
	pf.StringVar(&colorFlag, "color", "auto", "Color output: auto, always, never")
	pf.BoolVar(&noColorFlag, "no-color", false, "Disable color output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(stopCmd)
}

// loadConfig reads the config file and applies the persistent flag overrides.
// Command-specific flags are applied by the command itself.
func loadConfig(cmd *cobra.Command) (*app.Config, error) {
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("root") {
		cfg.Root = rootFlag
	}
	if cmd.Flags().Changed("state-dir") {
		cfg.StateDir = stateFlag
	}
	return cfg, cfg.Validate()
}
