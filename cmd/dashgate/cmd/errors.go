package cmd

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/corey/dashgate/internal/adapters/socket"
	"github.com/corey/dashgate/internal/app"
)

// isDBLockError returns true if the error chain contains a bbolt lock timeout.
// bbolt returns the string "timeout" when it cannot acquire the file lock
// within the configured deadline.
func isDBLockError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "timeout")
}

// diagnoseDBLock checks the server state and returns actionable guidance
// when a bbolt open fails due to lock contention. It distinguishes four
// scenarios: server running, stale socket, stale PID file, and unknown
// lock holder.
func diagnoseDBLock(paths *app.Paths) string {
	if running(paths) {
		return "audit log is locked by the running server\n" +
			"  → stop it first:  dashgate stop\n" +
			"  → or serve with:  dashgate serve --no-audit"
	}

	if _, err := os.Stat(paths.Socket); err == nil {
		return fmt.Sprintf("audit log is locked, and the server socket exists but is not responding\n"+
			"  → a previous server may have crashed\n"+
			"  → find the process:  ps aux | grep 'dashgate serve'\n"+
			"  → kill it:           kill <PID>\n"+
			"  → clean up socket:   rm %s", paths.Socket)
	}

	if pid := paths.ReadPID(); pid > 0 && processAlive(pid) {
		return fmt.Sprintf("audit log is locked by pid %d, which is not answering on its socket\n"+
			"  → stop it:   kill %d\n"+
			"  → then retry your command", pid, pid)
	}

	return "audit log is locked by another process\n" +
		"  → find the process:  ps aux | grep 'dashgate'\n" +
		"  → kill it:           kill <PID>\n" +
		"  → then retry your command"
}

// processAlive reports whether pid names a live process.
func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return p.Signal(syscall.Signal(0)) == nil
}

// running reports whether a server answers on the control socket for paths.
func running(paths *app.Paths) bool {
	return socket.NewClient(paths.Socket).Ping()
}
