// Package fsnotify implements the ports.Watcher interface using github.com/fsnotify/fsnotify.
// It recursively watches the static root, drops editor and VCS noise, and
// debounces rapid events (editors often trigger several writes per save).
package fsnotify

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/corey/dashgate/internal/ports"
)

// DebounceInterval is the minimum gap between two reported changes of one path.
const DebounceInterval = 50 * time.Millisecond

// Directories never watched.
var ignoreDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	".idea":        true,
	".vscode":      true,
	".cache":       true,
}

// Editor temp and OS metadata suffixes.
var ignoreSuffixes = []string{
	".DS_Store",
	".swp",
	".swx",
	".swo",
	".tmp",
	"~",
}

// Watcher implements ports.Watcher using fsnotify.
type Watcher struct {
	fw      *fsnotify.Watcher
	done    chan struct{}
	stopped bool
	mu      sync.Mutex
	errFn   func(error)
}

// NewWatcher creates a new file system watcher. onError, if non-nil, receives
// errors reported by the OS backend; the watch keeps running after them.
func NewWatcher(onError func(error)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fw:    fw,
		done:  make(chan struct{}),
		errFn: onError,
	}, nil
}

// Watch starts monitoring dir recursively.
func (w *Watcher) Watch(dir string, onChange func(ports.AssetChange)) error {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if _, err := os.Stat(absPath); err != nil {
		return err
	}
	if err := w.addTree(absPath); err != nil {
		return err
	}

	debounce := make(map[string]time.Time)

	go func() {
		for {
			select {
			case event, ok := <-w.fw.Events:
				if !ok {
					return
				}
				path := event.Name

				// New directories are not covered by the initial walk.
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(path); err == nil && info.IsDir() && !shouldIgnoreDir(info.Name()) {
						w.addTree(path)
					}
				}

				if shouldIgnorePath(path) {
					continue
				}
				op := opName(event.Op)
				if op == "" {
					continue
				}

				// Only this goroutine touches debounce.
				now := time.Now()
				if last, seen := debounce[path]; seen && now.Sub(last) < DebounceInterval {
					continue
				}
				debounce[path] = now

				onChange(ports.AssetChange{Path: path, Op: op})

			case err, ok := <-w.fw.Errors:
				if !ok {
					return
				}
				if w.errFn != nil {
					w.errFn(err)
				}

			case <-w.done:
				return
			}
		}
	}()

	return nil
}

// Stop ends monitoring and releases all resources.
// Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.done)
	return w.fw.Close()
}

// addTree adds root and every non-ignored directory below it.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible paths
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && shouldIgnoreDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fw.Add(path)
	})
}

// opName maps the fsnotify op to a change name. Chmod-only events return "".
func opName(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	default:
		return ""
	}
}

func shouldIgnoreDir(name string) bool {
	return ignoreDirs[name]
}

// shouldIgnorePath returns true if the path should not trigger onChange.
func shouldIgnorePath(path string) bool {
	base := filepath.Base(path)
	for _, suffix := range ignoreSuffixes {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	// vim probes directory writability with a file named 4913.
	if base == "4913" {
		return true
	}
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if ignoreDirs[part] {
			return true
		}
	}
	return false
}
