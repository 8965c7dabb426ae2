package gate

import "path/filepath"

// DefaultContentType is used for extensions missing from the MIME table.
const DefaultContentType = "text/plain"

// mimeTypes maps a file extension (case as given) to its content type.
var mimeTypes = map[string]string{
	".html": "text/html",
	".js":   "application/javascript",
	".css":  "text/css",
	".json": "application/json",
	".png":  "image/png",
	".svg":  "image/svg+xml",
}

// ContentType returns the content type for path based on its extension.
// Lookup is case-sensitive: ".HTML" falls back to DefaultContentType.
func ContentType(path string) string {
	if ct, ok := mimeTypes[filepath.Ext(path)]; ok {
		return ct
	}
	return DefaultContentType
}
