// Package app wires together all adapters and domain logic.
// It provides lifecycle management for the dashboard server: create, start, stop.
package app

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/corey/dashgate/internal/adapters/bbolt"
	fsw "github.com/corey/dashgate/internal/adapters/fsnotify"
	"github.com/corey/dashgate/internal/adapters/netinfo"
	"github.com/corey/dashgate/internal/adapters/socket"
	"github.com/corey/dashgate/internal/adapters/web"
	"github.com/corey/dashgate/internal/domain/gate"
	"github.com/corey/dashgate/internal/ports"
)

var errAuditDisabled = errors.New("audit log disabled")

var (
	_ socket.AppQueries = (*App)(nil)
	_ ports.AccessSink  = (*App)(nil)
)

// App is the fully wired dashboard server.
type App struct {
	Config *Config
	Paths  *Paths
	Token  gate.Token
	Root   gate.Root
	Log    zerolog.Logger

	Store     *bbolt.Store // nil when the audit log is disabled
	Watcher   *fsw.Watcher // nil when watching is disabled
	WebServer *web.Server
	Control   *socket.Server

	audit     *auditQueue
	requests  atomic.Int64
	started   atomic.Pointer[time.Time] // nil until Start succeeds
	logCloser io.Closer
	stopOnce  sync.Once
}

// New creates an App with all dependencies wired. Does not start services.
// Log output goes to logOut (normally os.Stderr).
func New(cfg *Config, logOut io.Writer) (*App, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	paths, root, err := ResolvePaths(cfg)
	if err != nil {
		return nil, err
	}
	if err := paths.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	logCfg := cfg.Logging
	logCfg.File = paths.LogFile(logCfg.File)
	log, logCloser, err := NewLogger(logCfg, logOut)
	if err != nil {
		return nil, err
	}

	token, err := gate.NewToken()
	if err != nil {
		logCloser.Close()
		return nil, err
	}

	a := &App{
		Config:    cfg,
		Paths:     paths,
		Token:     token,
		Root:      root,
		Log:       log,
		logCloser: logCloser,
	}

	if cfg.Audit.Enabled {
		store, err := bbolt.NewStore(paths.DB)
		if err != nil {
			logCloser.Close()
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		a.Store = store
		a.audit = newAuditQueue(store, log, auditQueueSize)
	}

	if cfg.Watch {
		watcher, err := fsw.NewWatcher(func(err error) {
			log.Warn().Err(err).Msg("asset watcher")
		})
		if err != nil {
			a.closeStore()
			logCloser.Close()
			return nil, fmt.Errorf("create watcher: %w", err)
		}
		a.Watcher = watcher
	}

	handler := web.AccessLog(web.NewHandler(token, root), log, a)
	a.WebServer = web.NewServer(handler, log, paths.PortFile)
	a.Control = socket.NewServer(paths.Socket, a)
	return a, nil
}

// ResolvePaths canonicalizes the static root and locates the state directory
// for cfg without creating anything. The state dir must not be inside the root.
func ResolvePaths(cfg *Config) (*Paths, gate.Root, error) {
	root, err := gate.NewRoot(cfg.Root)
	if err != nil {
		return nil, gate.Root{}, err
	}

	stateDir := cfg.StateDir
	if stateDir == "" {
		if stateDir, err = DefaultStateDir(root.Dir()); err != nil {
			return nil, gate.Root{}, err
		}
	}
	if stateDir, err = filepath.Abs(stateDir); err != nil {
		return nil, gate.Root{}, fmt.Errorf("state dir: %w", err)
	}
	if root.Contains(stateDir) || isWithin(cfg.Root, stateDir) {
		return nil, gate.Root{}, fmt.Errorf("state dir %s is inside the static root %s", stateDir, root.Dir())
	}
	return NewPaths(stateDir), root, nil
}

// Start binds the listener and control socket, then starts the audit writer
// and asset watcher. A failing watcher is logged and skipped. A failing
// listener or socket is fatal.
func (a *App) Start() error {
	if a.Store != nil {
		if n, err := a.Store.Prune(a.Config.Audit.MaxEntries); err != nil {
			a.Log.Warn().Err(err).Msg("prune audit log")
		} else if n > 0 {
			a.Log.Debug().Int("removed", n).Msg("pruned audit log")
		}
		a.audit.start()
	}

	// The control socket doubles as the single-instance guard, so it binds first.
	if err := a.Control.Start(); err != nil {
		a.audit.stop()
		return fmt.Errorf("start control socket: %w", err)
	}

	if err := a.WebServer.Start(a.Config.Host, a.Config.Port); err != nil {
		a.Control.Stop()
		a.audit.stop()
		return fmt.Errorf("start server: %w", err)
	}
	now := time.Now()
	a.started.Store(&now)

	if err := a.Paths.WritePID(os.Getpid()); err != nil {
		a.Log.Warn().Err(err).Msg("write pid file")
	}

	if a.Watcher != nil {
		if err := a.Watcher.Watch(a.Root.Dir(), a.onAssetChanged); err != nil {
			a.Log.Warn().Err(err).Msg("asset watcher unavailable")
		}
	}

	a.Log.Info().
		Str("root", a.Root.Dir()).
		Str("addr", net.JoinHostPort(a.Config.Host, strconv.Itoa(a.WebServer.Port()))).
		Bool("audit", a.Store != nil).
		Bool("watch", a.Watcher != nil).
		Str("socket", a.Paths.Socket).
		Msg("dashboard serving")
	return nil
}

// Stop shuts down the watcher, listener and control socket, drains and
// prunes the audit log, and removes run files. Idempotent.
func (a *App) Stop() error {
	var err error
	a.stopOnce.Do(func() {
		if a.Watcher != nil {
			a.Watcher.Stop()
		}
		a.WebServer.Stop()
		a.Control.Stop()

		if dropped := a.audit.stop(); dropped > 0 {
			a.Log.Warn().Int64("dropped", dropped).Msg("audit records dropped under load")
		}
		if a.Store != nil {
			if _, perr := a.Store.Prune(a.Config.Audit.MaxEntries); perr != nil {
				a.Log.Warn().Err(perr).Msg("prune audit log")
			}
		}
		err = a.closeStore()

		// Run files belong to whichever instance started successfully.
		if a.started.Load() != nil {
			a.Paths.CleanEphemeral()
		}
		a.Log.Info().Msg("dashboard stopped")
		a.logCloser.Close()
	})
	return err
}

// ShutdownCh is closed when a client asks the server to stop over the control socket.
func (a *App) ShutdownCh() <-chan struct{} {
	return a.Control.ShutdownCh()
}

// Record counts a handled request and queues it for the audit log.
func (a *App) Record(rec ports.AccessRecord) {
	a.requests.Add(1)
	a.audit.Record(rec)
}

// Health reports the running server's state for the control socket.
func (a *App) Health() socket.HealthResult {
	return socket.HealthResult{
		Status:       "ok",
		Root:         a.Root.Dir(),
		Addr:         net.JoinHostPort(a.Config.Host, strconv.Itoa(a.WebServer.Port())),
		PID:          os.Getpid(),
		Uptime:       a.uptime().String(),
		Requests:     a.requests.Load(),
		AuditEnabled: a.Store != nil,
		AuditRecords: a.auditRecords(),
		AuditDropped: a.audit.droppedCount(),
		Watching:     a.Watcher != nil,
	}
}

// auditRecords counts stored records; queued ones are not yet included.
func (a *App) auditRecords() int {
	if a.Store == nil {
		return 0
	}
	n, err := a.Store.Count()
	if err != nil {
		a.Log.Warn().Err(err).Msg("count audit log")
	}
	return n
}

func (a *App) uptime() time.Duration {
	started := a.started.Load()
	if started == nil {
		return 0
	}
	return time.Since(*started).Round(time.Second)
}

// RecentAccess returns the newest audit records, newest first.
func (a *App) RecentAccess(limit int) (socket.AuditResult, error) {
	if a.Store == nil {
		return socket.AuditResult{}, errAuditDisabled
	}
	recs, err := a.Store.Recent(limit)
	if err != nil {
		return socket.AuditResult{}, err
	}
	return socket.AuditResult{Records: recs, Count: len(recs)}, nil
}

// DashboardURLs returns the local and public dashboard URLs.
func (a *App) DashboardURLs() socket.URLResult {
	return socket.URLResult{Local: a.LocalURL(), Public: a.PublicURLs()}
}

// LocalURL is the loopback dashboard URL including the token.
func (a *App) LocalURL() string {
	return a.WebServer.URL("localhost", a.Token.String())
}

// PublicURLs lists the dashboard URL for each externally reachable host.
func (a *App) PublicURLs() []string {
	var urls []string
	for _, host := range netinfo.PublicHosts(a.Config.Host, a.Config.PublicHost) {
		urls = append(urls, a.WebServer.URL(host, a.Token.String()))
	}
	return urls
}

// isWithin reports whether path lies at or below dir, compared lexically on
// absolute paths. It catches state dirs given through a symlinked root spelling.
func isWithin(dir, path string) bool {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(abs, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (a *App) closeStore() error {
	if a.Store == nil {
		return nil
	}
	err := a.Store.Close()
	a.Store = nil
	return err
}
