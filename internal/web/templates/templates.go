// Package templates renders the HTML pages of the listing service. The
// components are written in .templ files; run `templ generate` after
// editing them.
package templates

import (
	"fmt"
	"net/url"
)

// Flash levels.
const (
	LevelError   = "error"
	LevelWarning = "warning"
	LevelSuccess = "success"
)

// Flash is a one-time notice shown on the next page render.
type Flash struct {
	Level   string `json:"l"`
	Message string `json:"m"`
}

// IndexData feeds the upload page.
type IndexData struct {
	Flashes     []Flash
	Columns     []string
	MaxFileSize int64
}

// DownloadURL is the path that serves a generated listing.
func DownloadURL(name string) string {
	return "/download/" + url.PathEscape(name)
}

func alertLevel(level string) string {
	switch level {
	case LevelError, LevelWarning, LevelSuccess:
		return level
	default:
		return LevelWarning
	}
}

func formatSize(n int64) string {
	const mb = 1 << 20
	if n >= mb {
		return fmt.Sprintf("%d MB", n/mb)
	}
	return fmt.Sprintf("%d KB", n/1024)
}
