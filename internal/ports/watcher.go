package ports

// Watcher monitors the static root for asset changes.
// The adapter (fsnotify) must filter out editor noise (.git, swap files, etc.)
// before invoking onChange. Only one Watch call should be active at a time.
type Watcher interface {
	// Watch starts monitoring dir recursively. onChange is called once per
	// debounced change. The callback may be invoked from any goroutine.
	// Returns an error if the directory doesn't exist or permissions are
	// insufficient.
	Watch(dir string, onChange func(AssetChange)) error

	// Stop ends monitoring and releases all resources. After Stop returns,
	// no further onChange calls will fire. Safe to call multiple times.
	Stop() error
}

// AssetChange describes one change under the watched directory.
type AssetChange struct {
	Path string // absolute
	Op   string // "write", "create", "remove" or "rename"
}
