package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/corey/dashgate/internal/app"
)

var (
	serveHost       string
	servePort       int
	servePublicHost string
	serveNoWatch    bool
	serveNoAudit    bool
	serveLogLevel   string
	serveLogFormat  string
	serveLogFile    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard",
	Long:  "Generates a fresh access token, prints the dashboard URLs and serves the static root until interrupted.",
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveHost, "host", "", "Bind host (default 0.0.0.0)")
	f.IntVarP(&servePort, "port", "p", 0, "Bind port (default 8420, 0 = any free port)")
	f.StringVar(&servePublicHost, "public-host", "", "Host to show in the public URL (default: detected interface addresses)")
	f.BoolVar(&serveNoWatch, "no-watch", false, "Do not watch the static root for changes")
	f.BoolVar(&serveNoAudit, "no-audit", false, "Do not record requests in the audit log")
	f.StringVar(&serveLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&serveLogFormat, "log-format", "", "Log format: auto, console, json")
	f.StringVar(&serveLogFile, "log-file", "", "Also write logs to this file (relative names go under <state>/log)")
}

// applyServeFlags copies explicitly set serve flags over the file config.
func applyServeFlags(cmd *cobra.Command, cfg *app.Config) error {
	f := cmd.Flags()
	if f.Changed("host") {
		cfg.Host = serveHost
	}
	if f.Changed("port") {
		cfg.Port = servePort
	}
	if f.Changed("public-host") {
		cfg.PublicHost = servePublicHost
	}
	if serveNoWatch {
		cfg.Watch = false
	}
	if serveNoAudit {
		cfg.Audit.Enabled = false
	}
	if f.Changed("log-level") {
		cfg.Logging.Level = serveLogLevel
	}
	if f.Changed("log-format") {
		cfg.Logging.Format = serveLogFormat
	}
	if f.Changed("log-file") {
		cfg.Logging.File = serveLogFile
	}
	return cfg.Validate()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyServeFlags(cmd, cfg); err != nil {
		return err
	}

	a, err := app.New(cfg, os.Stderr)
	if err != nil {
		if isDBLockError(err) {
			if paths, _, perr := app.ResolvePaths(cfg); perr == nil {
				return fmt.Errorf("%v\n%s", err, diagnoseDBLock(paths))
			}
		}
		return fmt.Errorf("init: %w", err)
	}
	if err := a.Start(); err != nil {
		a.Stop()
		return err
	}

	color := resolveColor(colorFlag, noColorFlag)
	fmt.Print(formatBanner(a.Root.Dir(), a.LocalURL(), a.PublicURLs(), color))

	// Wait for a shutdown signal or a remote "dashgate stop"
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-a.ShutdownCh():
	}

	fmt.Println("\n⚡ shutting down...")
	return a.Stop()
}
