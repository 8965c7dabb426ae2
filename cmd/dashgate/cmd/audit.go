package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corey/dashgate/internal/adapters/bbolt"
	"github.com/corey/dashgate/internal/adapters/socket"
	"github.com/corey/dashgate/internal/app"
	"github.com/corey/dashgate/internal/ports"
)

var (
	auditLimit int
	auditJSON  bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show recent requests from the audit log",
	Long: "Lists the most recent requests, newest first, with the internal cause of 403/404 responses.\n" +
		"Asks the running server when there is one, otherwise reads the audit log directly.",
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().IntVarP(&auditLimit, "limit", "n", 20, "Number of records to show")
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "Output as JSON")
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	paths, _, err := app.ResolvePaths(cfg)
	if err != nil {
		return err
	}

	recs, err := recentAccess(paths, auditLimit)
	if err != nil {
		return err
	}
	if recs == nil && !auditJSON {
		if _, serr := os.Stat(paths.DB); errors.Is(serr, os.ErrNotExist) {
			fmt.Println("⚡ no audit log yet. Start the server with: dashgate serve")
			return nil
		}
	}

	if auditJSON {
		if recs == nil {
			recs = []ports.AccessRecord{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}
	fmt.Print(formatAuditRecords(recs, resolveColor(colorFlag, noColorFlag)))
	return nil
}

// recentAccess asks the running server for the newest records. The server
// holds the database lock, so the file is only opened when none answers.
func recentAccess(paths *app.Paths, limit int) ([]ports.AccessRecord, error) {
	client := socket.NewClient(paths.Socket)
	if client.Ping() {
		result, err := client.Audit(limit)
		if err != nil {
			return nil, err
		}
		return result.Records, nil
	}

	if _, err := os.Stat(paths.DB); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	store, err := bbolt.OpenReadOnly(paths.DB)
	if err != nil {
		if isDBLockError(err) {
			return nil, errors.New(diagnoseDBLock(paths))
		}
		return nil, err
	}
	defer store.Close()
	return store.Recent(limit)
}
