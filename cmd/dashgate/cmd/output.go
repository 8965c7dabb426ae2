package cmd

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/corey/dashgate/internal/adapters/socket"
	"github.com/corey/dashgate/internal/ports"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorCyan   = "\033[36m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// palette returns color codes, or empty strings when color is off.
type palette struct {
	reset, bold, cyan, green, yellow, red, gray string
}

func newPalette(color bool) palette {
	if !color {
		return palette{}
	}
	return palette{colorReset, colorBold, colorCyan, colorGreen, colorYellow, colorRed, colorGray}
}

// formatBanner renders the startup announcement.
//
//	⚡ dashgate serving /srv/dashboard
//	   Local:  http://localhost:8420/?token=…
//	   Public: http://192.168.1.20:8420/?token=…
func formatBanner(root, localURL string, publicURLs []string, color bool) string {
	c := newPalette(color)
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n%s⚡ dashgate serving%s %s\n", c.bold, c.reset, root)
	fmt.Fprintf(&sb, "   Local:  %s%s%s\n", c.cyan, localURL, c.reset)
	for _, u := range publicURLs {
		fmt.Fprintf(&sb, "   Public: %s%s%s\n", c.cyan, u, c.reset)
	}
	sb.WriteString("\n")
	return sb.String()
}

// formatHealth renders a running server's health.
func formatHealth(h *socket.HealthResult, color bool) string {
	c := newPalette(color)
	onOff := "off"
	if h.Watching {
		onOff = "on"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s⚡ dashgate%s\n", c.bold, c.reset)
	fmt.Fprintf(&sb, "  Status:   %s%s%s (pid %d)\n", c.green, h.Status, c.reset, h.PID)
	fmt.Fprintf(&sb, "  Root:     %s\n", h.Root)
	fmt.Fprintf(&sb, "  Listen:   %s\n", h.Addr)
	fmt.Fprintf(&sb, "  Uptime:   %s\n", h.Uptime)
	fmt.Fprintf(&sb, "  Requests: %d\n", h.Requests)
	if h.AuditEnabled {
		fmt.Fprintf(&sb, "  Audit:    on, %d records", h.AuditRecords)
		if h.AuditDropped > 0 {
			fmt.Fprintf(&sb, " %s(%d dropped)%s", c.yellow, h.AuditDropped, c.reset)
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("  Audit:    off\n")
	}
	fmt.Fprintf(&sb, "  Watch:    %s\n", onOff)
	return sb.String()
}

// statusColor picks a color per outcome class.
func statusColor(c palette, status int) string {
	switch {
	case status == http.StatusOK:
		return c.green
	case status == http.StatusForbidden:
		return c.red
	default:
		return c.yellow
	}
}

// formatAuditRecords renders records one per line, newest first.
//
//	2026-10-16 14:03:11  200  GET  /app.js  1.2KB  340µs  127.0.0.1:51234
//	2026-10-16 14:03:12  404  GET  /nope    12B    90µs   127.0.0.1:51234  (file not readable: …)
func formatAuditRecords(recs []ports.AccessRecord, color bool) string {
	c := newPalette(color)
	if len(recs) == 0 {
		return "⚡ audit log is empty\n"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s⚡ %d requests%s\n", c.bold, len(recs), c.reset)
	for _, r := range recs {
		fmt.Fprintf(&sb, "  %s%s%s  %s%d%s  %-6s %s  %s%s  %s%s",
			c.gray, r.Time.Local().Format(time.DateTime), c.reset,
			statusColor(c, r.Status), r.Status, c.reset,
			r.Method, r.Path,
			c.gray, formatBytes(r.Bytes), r.Duration.Round(time.Microsecond), c.reset)
		if r.Remote != "" {
			fmt.Fprintf(&sb, "  %s", r.Remote)
		}
		if r.Cause != "" {
			fmt.Fprintf(&sb, "  %s(%s)%s", c.gray, r.Cause, c.reset)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// formatBytes renders a byte count as B, KB or MB.
func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}
