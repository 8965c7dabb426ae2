package app

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/dashgate/internal/adapters/bbolt"
	"github.com/corey/dashgate/internal/adapters/socket"
)

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// testConfig returns a loopback config over a fresh static root.
func testConfig(t *testing.T) *Config {
	t.Helper()
	base := t.TempDir()
	static := filepath.Join(base, "static")
	require.NoError(t, os.MkdirAll(static, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<h1>chin</h1>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(base, "secret.txt"), []byte("hunter2"), 0644))

	cfg := DefaultConfig()
	cfg.Root = static
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	cfg.StateDir = filepath.Join(base, "state")
	cfg.Logging.Format = "json"
	return cfg
}

func newTestApp(t *testing.T, cfg *Config) (*App, *syncBuffer) {
	t.Helper()
	logs := &syncBuffer{}
	a, err := New(cfg, logs)
	require.NoError(t, err)
	require.NoError(t, a.Start())
	t.Cleanup(func() { a.Stop() })
	return a, logs
}

func fetch(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func TestApp_ServesWithToken(t *testing.T) {
	a, _ := newTestApp(t, testConfig(t))

	assert.Len(t, a.Token.String(), 32)
	assert.Contains(t, a.LocalURL(), "token="+a.Token.String())

	status, body := fetch(t, a.LocalURL())
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "<h1>chin</h1>", body)

	base := fmt.Sprintf("http://127.0.0.1:%d", a.WebServer.Port())
	status, _ = fetch(t, base+"/")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = fetch(t, base+"/../secret.txt?token="+a.Token.String())
	assert.Equal(t, http.StatusForbidden, status)
	assert.NotContains(t, body, "hunter2")
}

func TestApp_TokenPerProcess(t *testing.T) {
	cfg := testConfig(t)
	cfg.Audit.Enabled = false
	a1, err := New(cfg, io.Discard)
	require.NoError(t, err)
	defer a1.Stop()
	a2, err := New(cfg, io.Discard)
	require.NoError(t, err)
	defer a2.Stop()

	assert.NotEqual(t, a1.Token, a2.Token)
}

func TestApp_RunFiles(t *testing.T) {
	a, _ := newTestApp(t, testConfig(t))

	assert.Equal(t, os.Getpid(), a.Paths.ReadPID())

	port, err := os.ReadFile(a.Paths.PortFile)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%d", a.WebServer.Port()), string(port))

	require.NoError(t, a.Stop())
	for _, f := range []string{a.Paths.PIDFile, a.Paths.PortFile, a.Paths.Socket} {
		_, err := os.Stat(f)
		assert.True(t, os.IsNotExist(err), f)
	}
}

func TestApp_AuditRecordsRequests(t *testing.T) {
	cfg := testConfig(t)
	a, _ := newTestApp(t, cfg)

	fetch(t, a.LocalURL())
	fetch(t, fmt.Sprintf("http://127.0.0.1:%d/nope.html?token=%s", a.WebServer.Port(), a.Token))
	require.NoError(t, a.Stop())

	store, err := bbolt.OpenReadOnly(a.Paths.DB)
	require.NoError(t, err)
	defer store.Close()

	recs, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	outcomes := []string{recs[0].Outcome, recs[1].Outcome}
	assert.ElementsMatch(t, []string{"ok", "not_found"}, outcomes)
	for _, rec := range recs {
		assert.NotContains(t, rec.Path, a.Token.String())
		assert.NotContains(t, rec.Cause, a.Token.String())
	}
}

func TestApp_AuditPrunedOnStop(t *testing.T) {
	cfg := testConfig(t)
	cfg.Audit.MaxEntries = 2
	a, _ := newTestApp(t, cfg)

	for i := 0; i < 5; i++ {
		fetch(t, a.LocalURL())
	}
	require.NoError(t, a.Stop())

	store, err := bbolt.OpenReadOnly(a.Paths.DB)
	require.NoError(t, err)
	defer store.Close()
	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestApp_AuditDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Audit.Enabled = false
	a, _ := newTestApp(t, cfg)

	assert.Nil(t, a.Store)
	status, _ := fetch(t, a.LocalURL())
	assert.Equal(t, http.StatusOK, status)
	require.NoError(t, a.Stop())

	_, err := os.Stat(a.Paths.DB)
	assert.True(t, os.IsNotExist(err))
}

func TestApp_SecondInstanceLocked(t *testing.T) {
	cfg := testConfig(t)
	_, _ = newTestApp(t, cfg)

	_, err := New(cfg, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestApp_StateDirInsideRootRejected(t *testing.T) {
	cfg := testConfig(t)
	cfg.StateDir = filepath.Join(cfg.Root, ".dashgate")

	_, err := New(cfg, io.Discard)
	assert.ErrorContains(t, err, "inside the static root")
}

func TestApp_MissingRoot(t *testing.T) {
	cfg := testConfig(t)
	cfg.Root = filepath.Join(t.TempDir(), "nope")

	_, err := New(cfg, io.Discard)
	assert.Error(t, err)
}

func TestApp_WatcherLogsAssetChanges(t *testing.T) {
	cfg := testConfig(t)
	a, logs := newTestApp(t, cfg)
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(a.Root.Dir(), "app.js"), []byte("1"), 0644))

	require.Eventually(t, func() bool {
		return strings.Contains(logs.String(), `"asset":"app.js"`)
	}, 2*time.Second, 20*time.Millisecond)
	assert.Contains(t, logs.String(), "asset changed")
}

func TestApp_StopIdempotent(t *testing.T) {
	a, _ := newTestApp(t, testConfig(t))
	require.NoError(t, a.Stop())
	require.NoError(t, a.Stop())
}

func TestApp_PublicURLs(t *testing.T) {
	cfg := testConfig(t)
	cfg.PublicHost = "dash.example.org"
	a, _ := newTestApp(t, cfg)

	urls := a.PublicURLs()
	require.Len(t, urls, 1)
	assert.Equal(t, fmt.Sprintf("http://dash.example.org:%d/?token=%s", a.WebServer.Port(), a.Token), urls[0])
}

func TestApp_ControlSocket(t *testing.T) {
	a, _ := newTestApp(t, testConfig(t))
	client := socket.NewClient(a.Paths.Socket)
	require.True(t, client.Ping())

	fetch(t, a.LocalURL())
	fetch(t, fmt.Sprintf("http://127.0.0.1:%d/", a.WebServer.Port()))

	health, err := client.Health()
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, a.Root.Dir(), health.Root)
	assert.Equal(t, os.Getpid(), health.PID)
	assert.True(t, health.AuditEnabled)
	assert.True(t, health.Watching)
	require.Eventually(t, func() bool {
		h, err := client.Health()
		return err == nil && h.Requests == 2
	}, time.Second, 10*time.Millisecond)

	urls, err := client.URLs()
	require.NoError(t, err)
	assert.Equal(t, a.LocalURL(), urls.Local)

	require.Eventually(t, func() bool {
		res, err := client.Audit(10)
		return err == nil && res.Count == 2
	}, 2*time.Second, 20*time.Millisecond)

	health, err = client.Health()
	require.NoError(t, err)
	assert.Equal(t, 2, health.AuditRecords, "health reports the stored record count")
}

func TestApp_ControlAuditDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Audit.Enabled = false
	a, _ := newTestApp(t, cfg)

	client := socket.NewClient(a.Paths.Socket)
	_, err := client.Audit(10)
	assert.ErrorContains(t, err, "audit log disabled")

	health, err := client.Health()
	require.NoError(t, err)
	assert.False(t, health.AuditEnabled)
	assert.Zero(t, health.AuditRecords)
}

func TestApp_RemoteShutdown(t *testing.T) {
	a, _ := newTestApp(t, testConfig(t))

	require.NoError(t, socket.NewClient(a.Paths.Socket).Shutdown())
	select {
	case <-a.ShutdownCh():
	case <-time.After(time.Second):
		t.Fatal("ShutdownCh should close after a remote shutdown")
	}
	require.NoError(t, a.Stop())
	assert.False(t, socket.NewClient(a.Paths.Socket).Ping())
}

func TestApp_SecondInstanceWithoutAudit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Audit.Enabled = false
	first, _ := newTestApp(t, cfg)

	b, err := New(cfg, io.Discard)
	require.NoError(t, err)
	assert.ErrorContains(t, b.Start(), "already running")
	require.NoError(t, b.Stop())

	// The failed instance leaves the running one's run files and socket alone.
	for _, f := range []string{first.Paths.PortFile, first.Paths.PIDFile} {
		_, err := os.Stat(f)
		assert.NoError(t, err, f)
	}
	assert.True(t, socket.NewClient(first.Paths.Socket).Ping())
	status, _ := fetch(t, first.LocalURL())
	assert.Equal(t, http.StatusOK, status)
}

func TestApp_RelativeLogFileUnderState(t *testing.T) {
	cfg := testConfig(t)
	cfg.Logging.File = "dashgate.log"
	a, _ := newTestApp(t, cfg)
	require.NoError(t, a.Stop())

	data, err := os.ReadFile(filepath.Join(a.Paths.LogDir, "dashgate.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "dashboard serving")
}
