package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corey/dashgate/internal/adapters/socket"
	"github.com/corey/dashgate/internal/app"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
	Long:  "Shows the resolved static root, listen address, state paths and server status. Never prints the token.",
	RunE:  runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	paths, root, err := app.ResolvePaths(cfg)
	if err != nil {
		return err
	}

	var health *socket.HealthResult
	if client := socket.NewClient(paths.Socket); client.Ping() {
		health, _ = client.Health()
	}
	fmt.Print(formatConfig(cfg, paths, root.Dir(), health, resolveColor(colorFlag, noColorFlag)))
	return nil
}

// formatConfig renders the resolved configuration. health is nil when no
// server answers on the control socket.
func formatConfig(cfg *app.Config, paths *app.Paths, rootDir string, health *socket.HealthResult, color bool) string {
	c := newPalette(color)

	server := fmt.Sprintf("%s✗ not running%s", c.yellow, c.reset)
	if health != nil {
		server = fmt.Sprintf("%s✓ running%s (pid %d, %s)", c.green, c.reset, health.PID, health.Addr)
	}
	onOff := func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	}
	public := cfg.PublicHost
	if public == "" {
		public = "auto"
	}

	s := fmt.Sprintf("%s⚡ dashgate config%s\n", c.bold, c.reset)
	s += fmt.Sprintf("  Root:       %s\n", rootDir)
	s += fmt.Sprintf("  Listen:     %s:%d\n", cfg.Host, cfg.Port)
	s += fmt.Sprintf("  Public:     %s\n", public)
	s += fmt.Sprintf("  Watch:      %s\n", onOff(cfg.Watch))
	s += fmt.Sprintf("  Audit:      %s (max %d)\n", onOff(cfg.Audit.Enabled), cfg.Audit.MaxEntries)
	s += fmt.Sprintf("  Logging:    %s, %s\n", cfg.Logging.Level, cfg.Logging.Format)
	s += fmt.Sprintf("  State:      %s\n", paths.Root)
	s += fmt.Sprintf("  DB:         %s\n", paths.DB)
	s += fmt.Sprintf("  Socket:     %s\n", paths.Socket)
	s += fmt.Sprintf("  Server:     %s\n", server)
	return s
}
