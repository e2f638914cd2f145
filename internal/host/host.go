// Package host defines the capability contracts tabwarden requires from the
// browser side, and the bridge that carries them over the local HTTP API. The
// companion extension pushes tab lifecycle events in and polls pending actions
// (close, group, window) back out.
package host

import (
	"context"
	"strings"
)

// Tab is the daemon's view of one browser tab. Tabs are owned by the browser;
// the daemon never invents IDs, it only mirrors what the extension reports.
type Tab struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Pinned      bool   `json:"pinned"`
	Active      bool   `json:"active"`
	MemoryBytes int64  `json:"memory_bytes,omitempty"`
}

// Directory enumerates live tabs.
type Directory interface {
	List(ctx context.Context) ([]Tab, error)
}

// Remover closes tabs by ID. A batch may partially or fully fail.
type Remover interface {
	Remove(ctx context.Context, ids []string) error
}

// Grouper consolidates a set of tabs, either into a labeled colored group or
// into a fresh window.
type Grouper interface {
	Group(ctx context.Context, name, color string, ids []string) error
	NewWindow(ctx context.Context, ids []string) error
}

// MemorySampler maps tab ID to private memory bytes. The capability is
// permission-gated on the browser side; an empty result is a valid state and
// callers must treat it as "no data", not an error.
type MemorySampler interface {
	Sample(ctx context.Context) (map[string]int64, error)
}

// privilegedPrefixes are browser-internal URL schemes. Tabs on these never
// participate in duplicate detection or workspace inference.
var privilegedPrefixes = []string{
	"chrome://",
	"chrome-extension://",
	"devtools://",
	"edge://",
	"brave://",
	"about:",
	"view-source:",
}

// Privileged reports whether a URL is browser-internal.
func Privileged(url string) bool {
	for _, p := range privilegedPrefixes {
		if strings.HasPrefix(url, p) {
			return true
		}
	}
	return url == ""
}
