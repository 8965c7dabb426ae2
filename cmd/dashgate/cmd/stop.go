package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/corey/dashgate/internal/adapters/socket"
	"github.com/corey/dashgate/internal/app"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running server",
	RunE:  runStop,
}

func runStop(cmd *cobra.Command, args []string) error {
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
		fmt.Println("⚡ dashgate is not running")
		return nil
	}
	if err := client.Shutdown(); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	// Wait for the server to drain the audit log and release the socket.
	deadline := time.Now().Add(10 * time.Second)
	for client.Ping() {
		if time.Now().After(deadline) {
			return fmt.Errorf("server did not stop within 10s")
		}
		time.Sleep(100 * time.Millisecond)
	}

	fmt.Println("⚡ dashgate stopped")
	return nil
}
