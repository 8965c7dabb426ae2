package app

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/corey/dashgate/internal/adapters/socket"
)

// Paths holds all resolved filesystem paths for the state directory.
// All fields are pre-computed at construction.
type Paths struct {
	Root string // <state>/
	DB   string // <state>/dashgate.db

	LogDir string // <state>/log/ (relative logging.file lands here)

	RunDir   string // <state>/run/
	PIDFile  string // <state>/run/dashgate.pid
	PortFile string // <state>/run/http.port

	Socket string // /tmp/dashgate-{hash}.sock (control socket)
}

// NewPaths constructs all resolved paths from a state directory.
func NewPaths(stateDir string) *Paths {
	return &Paths{
		Root: stateDir,
		DB:   filepath.Join(stateDir, "dashgate.db"),

		LogDir: filepath.Join(stateDir, "log"),

		RunDir:   filepath.Join(stateDir, "run"),
		PIDFile:  filepath.Join(stateDir, "run", "dashgate.pid"),
		PortFile: filepath.Join(stateDir, "run", "http.port"),

		Socket: socket.SocketPath(stateDir),
	}
}

// DefaultStateDir returns <user cache dir>/dashgate/<hash>, where hash is the
// first 8 bytes of sha256(staticRoot) in hex. Each static root gets its own state.
func DefaultStateDir(staticRoot string) (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("user cache dir: %w", err)
	}
	h := sha256.Sum256([]byte(staticRoot))
	return filepath.Join(base, "dashgate", hex.EncodeToString(h[:8])), nil
}

// EnsureDirs creates all subdirectories of the state dir. Idempotent.
// The audit log records request paths, so directories are private to the user.
func (p *Paths) EnsureDirs() error {
	for _, d := range []string{p.Root, p.LogDir, p.RunDir} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}

// WritePID records the running server's PID.
func (p *Paths) WritePID(pid int) error {
	return os.WriteFile(p.PIDFile, []byte(strconv.Itoa(pid)), 0644)
}

// ReadPID returns the PID recorded by a running server, or 0 if none.
func (p *Paths) ReadPID() int {
	data, err := os.ReadFile(p.PIDFile)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}

// LogFile resolves a configured log file name. Relative names live in LogDir.
func (p *Paths) LogFile(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.LogDir, name)
}

// CleanEphemeral removes ephemeral runtime files (PID and port files).
// The socket is removed by the control server itself. Called on clean shutdown.
func (p *Paths) CleanEphemeral() {
	os.Remove(p.PIDFile)
	os.Remove(p.PortFile)
}
