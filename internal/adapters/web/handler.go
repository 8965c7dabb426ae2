package web

import (
	"net/http"
	"strconv"

	"github.com/corey/dashgate/internal/domain/gate"
)

// Error bodies. None of them carry request or filesystem detail.
const (
	unauthorizedBody = "<h1>401 Unauthorized</h1><p>Add ?token=YOUR_TOKEN to the URL</p>"
	forbiddenBody    = "Forbidden"
	notFoundBody     = "<h1>404</h1>"
)

// Handler authenticates each request against the access token, resolves the
// path under the static root and writes the file or one of three error responses.
// It holds no mutable state and is safe for concurrent use.
type Handler struct {
	token gate.Token
	root  gate.Root
}

// NewHandler creates the request handler for a fixed token and root.
func NewHandler(token gate.Token, root gate.Root) *Handler {
	return &Handler{token: token, root: root}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.token.Matches(r.URL.Query().Get("token")) {
		writeOutcome(w, gate.Unauthorized)
		return
	}

	path, err := h.root.Resolve(r.URL.Path)
	var data []byte
	if err == nil {
		data, err = h.root.Read(path)
	}
	if err != nil {
		noteCause(w, err)
		writeOutcome(w, gate.OutcomeOf(err))
		return
	}

	w.Header().Set("Content-Type", gate.ContentType(path))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// writeOutcome writes the fixed response for a non-OK outcome.
func writeOutcome(w http.ResponseWriter, o gate.Outcome) {
	var ct, body string
	switch o {
	case gate.Unauthorized:
		ct, body = "text/html; charset=utf-8", unauthorizedBody
	case gate.Forbidden:
		ct, body = "text/plain; charset=utf-8", forbiddenBody
	default:
		o = gate.NotFound
		ct, body = "text/html; charset=utf-8", notFoundBody
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(o.Status())
	w.Write([]byte(body))
}
