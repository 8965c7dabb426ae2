package web

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/corey/dashgate/internal/domain/gate"
	"github.com/corey/dashgate/internal/ports"
)

// accessWriter captures the status, byte count and internal failure cause
// of a response for the access log.
type accessWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
	cause  error
}

func (aw *accessWriter) WriteHeader(code int) {
	if aw.status == 0 {
		aw.status = code
	}
	aw.ResponseWriter.WriteHeader(code)
}

func (aw *accessWriter) Write(b []byte) (int, error) {
	if aw.status == 0 {
		aw.status = http.StatusOK
	}
	n, err := aw.ResponseWriter.Write(b)
	aw.bytes += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (aw *accessWriter) Unwrap() http.ResponseWriter {
	return aw.ResponseWriter
}

// noteCause attaches the internal reason for a failed request so the access
// log can record it. It is a no-op when w is not wrapped by AccessLog.
func noteCause(w http.ResponseWriter, err error) {
	if aw, ok := w.(*accessWriter); ok {
		aw.cause = err
	}
}

// AccessLog wraps next with one structured log line and one audit record per
// request. sink may be nil.
func AccessLog(next http.Handler, log zerolog.Logger, sink ports.AccessSink) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		aw := &accessWriter{ResponseWriter: w}
		next.ServeHTTP(aw, r)
		if aw.status == 0 {
			aw.status = http.StatusOK
		}

		rec := ports.AccessRecord{
			Time:         start,
			Remote:       r.RemoteAddr,
			Method:       r.Method,
			Path:         r.URL.Path,
			Status:       aw.status,
			Outcome:      gate.OutcomeForStatus(aw.status).String(),
			Bytes:        aw.bytes,
			Duration:     time.Since(start),
			TokenPresent: r.URL.Query().Has("token"),
		}
		if aw.cause != nil {
			rec.Cause = aw.cause.Error()
		}

		ev := log.Info()
		if aw.status == http.StatusForbidden {
			ev = log.Warn()
		}
		if aw.cause != nil {
			ev = ev.Str("cause", rec.Cause)
		}
		ev.Str("method", rec.Method).
			Str("path", rec.Path).
			Int("status", rec.Status).
			Int64("bytes", rec.Bytes).
			Dur("duration", rec.Duration).
			Str("remote", rec.Remote).
			Msg("request")

		if sink != nil {
			sink.Record(rec)
		}
	})
}
