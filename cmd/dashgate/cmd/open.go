package cmd

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/corey/dashgate/internal/adapters/socket"
	"github.com/corey/dashgate/internal/app"
)

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Open the dashboard in a browser",
	Long:  "Asks the running server for its dashboard URL, token included, and opens it in your default browser.",
	RunE:  runOpen,
}

func runOpen(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	paths, _, err := app.ResolvePaths(cfg)
	if err != nil {
		return err
	}

	client := socket.NewClient(paths.Socket)
	if !client.Ping() {
		return fmt.Errorf("server not running. Start with: dashgate serve")
	}
	urls, err := client.URLs()
	if err != nil {
		return fmt.Errorf("dashboard URL: %w", err)
	}
	url := urls.Local

	var openErr error
	switch runtime.GOOS {
	case "linux":
		openErr = exec.Command("xdg-open", url).Start()
	case "darwin":
		openErr = exec.Command("open", url).Start()
	default:
		openErr = fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}

	if openErr != nil {
		fmt.Printf("⚡ dashboard: %s\n", url)
		fmt.Printf("  (could not open browser: %v)\n", openErr)
		return nil
	}

	fmt.Printf("⚡ opening %s\n", url)
	return nil
}
