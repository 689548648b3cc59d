// Package appfs exposes build-time embedded assets (database migrations).
package appfs

import "embed"

//go:embed migrations
var FS embed.FS
