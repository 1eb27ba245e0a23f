// Package alsa enumerates playback hardware and maintains the ALSA device
// policy: which card/device shairport-sync plays through and which sample
// rate anchors the clock.
package alsa

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/robertmayen/airplay-wyse/internal/execx"
)

// PlaybackDevice is one playback PCM discovered by the hardware listing.
type PlaybackDevice struct {
	Card        int
	CardID      string
	Device      int
	Description string
}

// aplay -l output is a format-versioned external interface; all scraping of
// it lives in parsePlaybackList so a format drift is a one-place fix.
var (
	deviceRe = regexp.MustCompile(`card\s+(\d+):\s+([^\s,]+).*device\s+(\d+):\s*([^\[]*)`)
	ratesRe  = regexp.MustCompile(`Rates:\s*([^\n]+)`)
	rateRe   = regexp.MustCompile(`\d{4,6}`)
)

// Hardware reads ALSA device information from the running system. The roots
// are variable so tests can point them at fixtures.
type Hardware struct {
	ProcRoot string // card rate/id files, normally /proc/asound
	SysRoot  string // card bus metadata, normally /sys/class/sound

	listOutput func(ctx context.Context) (string, error)
}

// NewHardware returns a Hardware bound to the real system paths.
func NewHardware() *Hardware {
	return &Hardware{
		ProcRoot: "/proc/asound",
		SysRoot:  "/sys/class/sound",
		listOutput: func(ctx context.Context) (string, error) {
			return execx.Output(ctx, 0, "aplay", "-l")
		},
	}
}

// ListPlaybackDevices returns every playback device the listing tool reports.
// A missing tool or non-zero exit yields an empty list, never an error; the
// caller falls back to a default device instead.
func (h *Hardware) ListPlaybackDevices(ctx context.Context) []PlaybackDevice {
	out, err := h.listOutput(ctx)
	if err != nil {
		return nil
	}
	return parsePlaybackList(out)
}

// parsePlaybackList extracts devices from aplay -l output. The description is
// the free text after the device number, up to the bracketed alias.
func parsePlaybackList(out string) []PlaybackDevice {
	var devices []PlaybackDevice
	for _, line := range strings.Split(out, "\n") {
		m := deviceRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		card, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		dev, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}
		devices = append(devices, PlaybackDevice{
			Card:        card,
			CardID:      m[2],
			Device:      dev,
			Description: strings.TrimSpace(m[4]),
		})
	}
	return devices
}

// IsUSBCard reports whether the card sits on the USB bus, judged by the
// presence of both vendor and product id files in its device directory.
func (h *Hardware) IsUSBCard(card int) bool {
	base := filepath.Join(h.SysRoot, fmt.Sprintf("card%d", card), "device")
	if _, err := os.Stat(filepath.Join(base, "idVendor")); err != nil {
		return false
	}
	if _, err := os.Stat(filepath.Join(base, "idProduct")); err != nil {
		return false
	}
	return true
}

// SupportedRates collects the sample rates advertised across all of the
// card's stream status files. Missing files yield an empty set.
func (h *Hardware) SupportedRates(card int) map[int]bool {
	rates := make(map[int]bool)
	base := filepath.Join(h.ProcRoot, fmt.Sprintf("card%d", card))
	streams, err := filepath.Glob(filepath.Join(base, "stream*"))
	if err != nil {
		return rates
	}
	for _, stream := range streams {
		data, err := os.ReadFile(stream)
		if err != nil {
			continue
		}
		m := ratesRe.FindStringSubmatch(string(data))
		if m == nil {
			continue
		}
		for _, tok := range rateRe.FindAllString(m[1], -1) {
			if rate, err := strconv.Atoi(tok); err == nil {
				rates[rate] = true
			}
		}
	}
	return rates
}

// CardID reads the short OS-assigned id of a card. Absent or unreadable
// cards report ok=false.
func (h *Hardware) CardID(card int) (string, bool) {
	data, err := os.ReadFile(filepath.Join(h.ProcRoot, fmt.Sprintf("card%d", card), "id"))
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}
