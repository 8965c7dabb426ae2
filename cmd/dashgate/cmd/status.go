package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corey/dashgate/internal/adapters/socket"
	"github.com/corey/dashgate/internal/app"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether a server is running",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	health, err := client.Health()
	if err != nil {
		return err
	}
	fmt.Print(formatHealth(health, resolveColor(colorFlag, noColorFlag)))
	return nil
}
