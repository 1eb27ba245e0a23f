// Package health snapshots the receiver stack: service activation states
// plus an mDNS check that the AirPlay service is actually visible on the LAN.
package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/grandcat/zeroconf"
)

// airplayService is the DNS-SD type AirPlay 2 receivers advertise under.
const airplayService = "_airplay._tcp"

// browseWindow bounds the mDNS browse; advertisements answer within a second
// or two on a healthy LAN.
const browseWindow = 3 * time.Second

// StatusReader is the slice of systemd the probe needs.
type StatusReader interface {
	ActiveState(ctx context.Context, unit string) string
}

// Report is the condensed health snapshot.
type Report struct {
	Services   map[string]string `json:"services"`
	Advertised bool              `json:"advertised"`
	Instances  []string          `json:"instances,omitempty"`
}

// watchedUnits are the services a provisioned receiver depends on.
var watchedUnits = []string{
	"shairport-sync.service",
	"nqptp.service",
	"avahi-daemon.service",
	"aw-identity.service",
}

// browse is swapped out in tests.
var browse = browseAirPlay

// Collect gathers the snapshot. A nil StatusReader (no D-Bus) reports every
// unit as unknown rather than failing; the mDNS browse degrades to
// "not advertised" on any error.
func Collect(ctx context.Context, services StatusReader) Report {
	report := Report{Services: make(map[string]string, len(watchedUnits))}
	for _, unit := range watchedUnits {
		if services == nil {
			report.Services[unit] = "unknown"
			continue
		}
		report.Services[unit] = services.ActiveState(ctx, unit)
	}
	report.Instances = browse(ctx)
	report.Advertised = len(report.Instances) > 0
	return report
}

// browseAirPlay lists AirPlay instances currently visible via mDNS.
func browseAirPlay(ctx context.Context) []string {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		slog.Debug("health: mDNS resolver unavailable", "err", err)
		return nil
	}

	browseCtx, cancel := context.WithTimeout(ctx, browseWindow)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	var instances []string
	done := make(chan struct{})
	go func() {
		defer close(done)
		for entry := range entries {
			instances = append(instances, entry.Instance)
		}
	}()

	if err := resolver.Browse(browseCtx, airplayService, "local.", entries); err != nil {
		slog.Debug("health: mDNS browse failed", "err", err)
		return nil
	}
	<-browseCtx.Done()
	<-done
	return instances
}
