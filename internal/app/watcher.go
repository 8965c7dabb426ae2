package app

import "github.com/corey/dashgate/internal/ports"

// onAssetChanged reports edits under the static root. Nothing is cached, so
// the next request already sees the new content; this is purely informational.
func (a *App) onAssetChanged(c ports.AssetChange) {
	a.Log.Info().
		Str("asset", a.Root.Rel(c.Path)).
		Str("op", c.Op).
		Msg("asset changed")
}
