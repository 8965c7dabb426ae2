// Package socket implements a JSON-over-Unix-socket control protocol for a
// running dashgate server. The protocol uses newline-delimited JSON: each
// message is one JSON object + \n. The socket is only reachable by the owning user.
package socket

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"github.com/corey/dashgate/internal/ports"
)

// SocketPath returns the Unix socket path for a given state directory.
// Format: $TMPDIR/dashgate-{first12hex}/ctl.sock, short enough for sun_path.
// The server creates the directory with mode 0700.
func SocketPath(stateDir string) string {
	abs, err := filepath.Abs(stateDir)
	if err != nil {
		abs = stateDir
	}
	h := sha256.Sum256([]byte(abs))
	return filepath.Join(os.TempDir(), fmt.Sprintf("dashgate-%x", h[:6]), "ctl.sock")
}

// Method names for the protocol.
const (
	MethodHealth   = "health"
	MethodAudit    = "audit"
	MethodURL      = "url"
	MethodShutdown = "shutdown"
)

// Request is the wire format for client-to-server messages.
type Request struct {
	ID     string      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// Response is the wire format for server-to-client messages.
type Response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// HealthResult is the result of a health request.
type HealthResult struct {
	Status       string `json:"status"`
	Root         string `json:"root"`
	Addr         string `json:"addr"`
	PID          int    `json:"pid"`
	Uptime       string `json:"uptime"`
	Requests     int64  `json:"requests"`
	AuditEnabled bool   `json:"audit_enabled"`
	AuditRecords int    `json:"audit_records"`
	AuditDropped int64  `json:"audit_dropped"`
	Watching     bool   `json:"watching"`
}

// AuditParams is the params for an audit request.
type AuditParams struct {
	Limit int `json:"limit"`
}

// AuditResult is the result of an audit request.
type AuditResult struct {
	Records []ports.AccessRecord `json:"records"`
	Count   int                  `json:"count"`
}

// URLResult carries the local dashboard URL, token included.
type URLResult struct {
	Local  string   `json:"local"`
	Public []string `json:"public,omitempty"`
}
