package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/dashgate/internal/adapters/socket"
	"github.com/corey/dashgate/internal/app"
	"github.com/corey/dashgate/internal/ports"
)

func TestFormatBanner(t *testing.T) {
	out := formatBanner("/srv/dash", "http://localhost:8420/?token=abc",
		[]string{"http://10.0.0.5:8420/?token=abc", "http://192.168.1.2:8420/?token=abc"}, false)

	assert.Contains(t, out, "dashgate serving /srv/dash")
	assert.Contains(t, out, "Local:  http://localhost:8420/?token=abc")
	assert.Equal(t, 2, strings.Count(out, "Public: "))
	assert.NotContains(t, out, "\033[", "no color codes when color is off")

	colored := formatBanner("/srv/dash", "http://localhost:8420/?token=abc", nil, true)
	assert.Contains(t, colored, colorCyan)
	assert.NotContains(t, colored, "Public:")
}

func TestFormatAuditRecords(t *testing.T) {
	recs := []ports.AccessRecord{
		{Time: time.Now(), Method: "GET", Path: "/app.js", Status: 200, Bytes: 2048, Duration: time.Millisecond, Remote: "127.0.0.1:5000"},
		{Time: time.Now(), Method: "GET", Path: "/nope", Status: 404, Bytes: 12, Cause: "file not readable: no such file"},
	}
	out := formatAuditRecords(recs, false)

	assert.Contains(t, out, "2 requests")
	assert.Contains(t, out, "/app.js")
	assert.Contains(t, out, "2.0KB")
	assert.Contains(t, out, "127.0.0.1:5000")
	assert.Contains(t, out, "(file not readable: no such file)")
	assert.Equal(t, 3, strings.Count(out, "\n"))

	assert.Contains(t, formatAuditRecords(nil, false), "empty")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "12B", formatBytes(12))
	assert.Equal(t, "1.5KB", formatBytes(1536))
	assert.Equal(t, "3.0MB", formatBytes(3<<20))
}

func TestResolveColor(t *testing.T) {
	assert.False(t, resolveColor("always", true), "--no-color wins")
	assert.True(t, resolveColor("always", false))
	assert.False(t, resolveColor("never", false))
}

func TestIsDBLockError(t *testing.T) {
	assert.False(t, isDBLockError(nil))
	assert.True(t, isDBLockError(fmt.Errorf("open audit log: %w", errors.New("bbolt open: timeout"))))
	assert.False(t, isDBLockError(errors.New("permission denied")))
}

// stubQueries answers control requests for a fake running server.
type stubQueries struct{}

func (stubQueries) Health() socket.HealthResult {
	return socket.HealthResult{Status: "ok", PID: 4242, Addr: "0.0.0.0:8420"}
}
func (stubQueries) RecentAccess(int) (socket.AuditResult, error) { return socket.AuditResult{}, nil }
func (stubQueries) DashboardURLs() socket.URLResult {
	return socket.URLResult{Local: "http://localhost:8420/?token=deadbeef"}
}

func TestDiagnoseDBLock(t *testing.T) {
	paths := app.NewPaths(t.TempDir())
	require.NoError(t, paths.EnsureDirs())

	assert.Contains(t, diagnoseDBLock(paths), "another process")

	require.NoError(t, paths.WritePID(os.Getpid()))
	assert.Contains(t, diagnoseDBLock(paths), fmt.Sprintf("pid %d", os.Getpid()))

	require.NoError(t, os.MkdirAll(filepath.Dir(paths.Socket), 0700))
	require.NoError(t, os.WriteFile(paths.Socket, nil, 0600))
	t.Cleanup(func() { os.RemoveAll(filepath.Dir(paths.Socket)) })
	assert.Contains(t, diagnoseDBLock(paths), "not responding")
}

func TestDiagnoseDBLock_ServerRunning(t *testing.T) {
	paths := app.NewPaths(t.TempDir())
	srv := socket.NewServer(paths.Socket, stubQueries{})
	require.NoError(t, srv.Start())
	t.Cleanup(func() { srv.Stop() })

	assert.True(t, running(paths))
	assert.Contains(t, diagnoseDBLock(paths), "dashgate stop")
}

func TestFormatConfig_NeverShowsToken(t *testing.T) {
	paths := app.NewPaths(t.TempDir())
	health := stubQueries{}.Health()

	cfg := app.DefaultConfig()
	out := formatConfig(cfg, paths, "/srv/dash", &health, false)

	assert.Contains(t, out, "Root:       /srv/dash")
	assert.Contains(t, out, "Listen:     0.0.0.0:8420")
	assert.Contains(t, out, "✓ running")
	assert.Contains(t, out, "pid 4242")
	assert.NotContains(t, out, "deadbeef")

	assert.Contains(t, formatConfig(cfg, paths, "/srv/dash", nil, false), "✗ not running")
}

func TestFormatHealth(t *testing.T) {
	out := formatHealth(&socket.HealthResult{
		Status:       "ok",
		Root:         "/srv/dash",
		Addr:         "0.0.0.0:8420",
		PID:          7,
		Uptime:       "3m0s",
		Requests:     12,
		AuditEnabled: true,
		AuditRecords: 40,
		AuditDropped: 2,
	}, false)

	assert.Contains(t, out, "ok (pid 7)")
	assert.Contains(t, out, "Requests: 12")
	assert.Contains(t, out, "Audit:    on, 40 records (2 dropped)")
	assert.Contains(t, out, "Watch:    off")
	assert.NotContains(t, out, "\033[")
}

func TestApplyServeFlags(t *testing.T) {
	f := serveCmd.Flags()
	require.NoError(t, f.Set("port", "9001"))
	require.NoError(t, f.Set("host", "127.0.0.1"))
	require.NoError(t, f.Set("no-audit", "true"))
	require.NoError(t, f.Set("log-level", "debug"))
	t.Cleanup(func() {
		servePort, serveHost, serveNoAudit, serveLogLevel = 0, "", false, ""
		for _, name := range []string{"port", "host", "no-audit", "log-level"} {
			f.Lookup(name).Changed = false
		}
	})

	cfg := app.DefaultConfig()
	require.NoError(t, applyServeFlags(serveCmd, cfg))

	assert.Equal(t, 9001, cfg.Port)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.False(t, cfg.Audit.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Watch, "unset flags keep config values")
	assert.Equal(t, "auto", cfg.Logging.Format)
}
