package shairport

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
)

// DefaultStateDirs are the directories shairport-sync variants use for
// pairing and metadata caches. All of them are removed on an identity change
// so stale AirPlay 2 pairings cannot shadow the new identity.
var DefaultStateDirs = []string{
	"/var/lib/shairport-sync",
	"/var/cache/shairport-sync",
	"/var/lib/shairport",
	"/var/cache/shairport",
}

// ServiceController is the slice of systemd control the cleaner needs.
type ServiceController interface {
	StopUnit(ctx context.Context, unit string) error
	UnitUser(ctx context.Context, unit string) string
}

// CacheCleaner removes the daemon's cached state. Every step is independent
// and best-effort: failures are logged and swallowed, never propagated, so a
// partially successful cleanup cannot abort an identity run.
type CacheCleaner struct {
	Services  ServiceController // nil skips service stop and user lookup
	StateDirs []string
	HomeRoot  string // normally /home
}

// NewCacheCleaner returns a cleaner over the default directories.
func NewCacheCleaner(services ServiceController) *CacheCleaner {
	return &CacheCleaner{
		Services:  services,
		StateDirs: DefaultStateDirs,
		HomeRoot:  "/home",
	}
}

// Invalidate stops the daemon and removes its known state, cache and
// per-user profile directories.
func (c *CacheCleaner) Invalidate(ctx context.Context) {
	if c.Services != nil {
		if err := c.Services.StopUnit(ctx, ServiceUnit); err != nil {
			slog.Warn("shairport: stop before cleanup failed", "err", err)
		}
	}

	for _, dir := range c.StateDirs {
		removeTree(dir)
	}

	if c.Services == nil {
		return
	}
	user := c.Services.UnitUser(ctx, ServiceUnit)
	if user == "" {
		return
	}
	home := filepath.Join(c.HomeRoot, user)
	if _, err := os.Stat(home); err != nil {
		return
	}
	for _, sub := range []string{
		filepath.Join(home, ".config", "shairport-sync"),
		filepath.Join(home, ".local", "share", "shairport-sync"),
		filepath.Join(home, ".cache", "shairport-sync"),
	} {
		removeTree(sub)
	}
}

func removeTree(dir string) {
	if _, err := os.Stat(dir); err != nil {
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		slog.Warn("shairport: cleanup could not remove directory", "dir", dir, "err", err)
	} else {
		slog.Info("shairport: removed cached state", "dir", dir)
	}
}
