// Package web serves the token-gated dashboard over HTTP.
// It binds to all interfaces by default, so every request must carry the
// access token as a query parameter.
package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPort is the dashboard port used when none is configured.
const DefaultPort = 8420

// Server owns the listener and the http.Server around a handler.
type Server struct {
	handler  http.Handler
	log      zerolog.Logger
	listener net.Listener
	httpSrv  *http.Server
	port     atomic.Int32 // zero until Start binds
	stopOnce sync.Once

	portFilePath string // run/http.port
}

// NewServer creates an HTTP server for handler.
// The portFilePath is where the bound port is written for discovery; empty disables it.
func NewServer(handler http.Handler, log zerolog.Logger, portFilePath string) *Server {
	return &Server{
		handler:      handler,
		log:          log,
		portFilePath: portFilePath,
	}
}

// Start binds host:port and serves in the background. Port 0 picks a free port.
// Writes the bound port to the port file.
func (s *Server) Start(host string, port int) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln
	bound := ln.Addr().(*net.TCPAddr).Port
	s.port.Store(int32(bound))

	s.httpSrv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.portFilePath != "" {
		if err := os.WriteFile(s.portFilePath, []byte(strconv.Itoa(bound)), 0644); err != nil {
			s.log.Warn().Err(err).Str("file", s.portFilePath).Msg("write port file")
		}
	}

	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("http server stopped")
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server. Idempotent.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		if s.httpSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.httpSrv.Shutdown(ctx); err != nil {
				s.log.Warn().Err(err).Msg("http shutdown")
			}
		}
		// The port file belongs to this server only if Start bound and wrote it.
		if s.listener != nil && s.portFilePath != "" {
			os.Remove(s.portFilePath)
		}
	})
}

// Port returns the bound port number, or 0 before Start.
func (s *Server) Port() int {
	return int(s.port.Load())
}

// URL returns the dashboard URL for host with the token attached.
func (s *Server) URL(host, token string) string {
	return DashboardURL(host, s.Port(), token)
}

// DashboardURL builds http://host:port/?token=... with the token query-escaped.
func DashboardURL(host string, port int, token string) string {
	u := url.URL{
		Scheme:   "http",
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		Path:     "/",
		RawQuery: url.Values{"token": {token}}.Encode(),
	}
	return u.String()
}
