package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// NewLogger builds the process logger from cfg. Output goes to out (normally
// stderr) as console text when format is console, or auto with a terminal;
// JSON otherwise. A configured file additionally receives JSON lines. The
// returned closer releases that file and is never nil.
func NewLogger(cfg LoggingConfig, out io.Writer) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("log level: %w", err)
	}

	var primary io.Writer = out
	if useConsole(cfg.Format, out) {
		primary = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("open log file: %w", err)
		}
		primary = zerolog.MultiLevelWriter(primary, f)
		closer = f
	}

	log := zerolog.New(primary).Level(level).With().Timestamp().Logger()
	return log, closer, nil
}

// useConsole resolves the "auto" format by checking whether out is a terminal.
func useConsole(format string, out io.Writer) bool {
	switch format {
	case "console":
		return true
	case "json":
		return false
	}
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
