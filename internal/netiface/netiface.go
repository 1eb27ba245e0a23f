// Package netiface picks the network interface that anchors the receiver's
// identity and mDNS advertisement.
package netiface

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/robertmayen/airplay-wyse/internal/execx"
)

// Selector enumerates interfaces through sysfs. SysRoot is variable so tests
// can point it at a fixture tree.
type Selector struct {
	SysRoot string // normally /sys/class/net

	routeOutput func(ctx context.Context) (string, error)
}

// NewSelector returns a Selector bound to the real system paths.
func NewSelector() *Selector {
	return &Selector{
		SysRoot: "/sys/class/net",
		routeOutput: func(ctx context.Context) (string, error) {
			return execx.Output(ctx, 0, "ip", "route")
		},
	}
}

// Choose resolves the interface using a fixed fallback chain: the explicit
// name when enumerable, the default-route device, the first non-loopback
// interface that is up with carrier, the first that is merely up, then any
// non-loopback interface at all. ok is false only when no non-loopback
// interface exists.
func (s *Selector) Choose(ctx context.Context, explicit string) (string, bool) {
	if explicit != "" && s.exists(explicit) {
		return explicit, true
	}
	if iface, ok := s.defaultRouteDevice(ctx); ok {
		return iface, true
	}

	ifaces := s.Interfaces()
	for _, iface := range ifaces {
		if iface == "lo" {
			continue
		}
		if s.operstate(iface) == "up" && s.carrier(iface) == "1" {
			return iface, true
		}
	}
	for _, iface := range ifaces {
		if iface == "lo" {
			continue
		}
		if s.operstate(iface) == "up" {
			return iface, true
		}
	}
	for _, iface := range ifaces {
		if iface != "lo" {
			return iface, true
		}
	}
	return "", false
}

// Interfaces lists interface names in sorted order. A missing sysfs tree
// yields an empty list.
func (s *Selector) Interfaces() []string {
	entries, err := os.ReadDir(s.SysRoot)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		// entries are symlinks to device directories on a real system
		if info, err := os.Stat(filepath.Join(s.SysRoot, e.Name())); err == nil && info.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// HardwareAddress reads the interface's link-layer address, lowercased.
// ok is false when the address file is absent or empty.
func (s *Selector) HardwareAddress(iface string) (string, bool) {
	value, ok := s.readAttr(iface, "address")
	if !ok || value == "" {
		return "", false
	}
	return strings.ToLower(value), true
}

// defaultRouteDevice asks the kernel routing table for the default route's
// device. Any failure resolves to not-found; the chain moves on.
func (s *Selector) defaultRouteDevice(ctx context.Context) (string, bool) {
	if s.routeOutput == nil {
		return "", false
	}
	out, err := s.routeOutput(ctx)
	if err != nil {
		return "", false
	}
	for _, line := range strings.Split(out, "\n") {
		if !strings.HasPrefix(line, "default ") {
			continue
		}
		fields := strings.Fields(line)
		for i, f := range fields {
			if f == "dev" && i+1 < len(fields) {
				if cand := fields[i+1]; s.exists(cand) {
					return cand, true
				}
			}
		}
	}
	return "", false
}

func (s *Selector) exists(iface string) bool {
	info, err := os.Stat(filepath.Join(s.SysRoot, iface))
	return err == nil && info.IsDir()
}

func (s *Selector) operstate(iface string) string {
	value, _ := s.readAttr(iface, "operstate")
	return value
}

func (s *Selector) carrier(iface string) string {
	value, _ := s.readAttr(iface, "carrier")
	return value
}

// readAttr reads one sysfs attribute; failures degrade to absent.
func (s *Selector) readAttr(iface, attr string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(s.SysRoot, iface, attr))
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}
