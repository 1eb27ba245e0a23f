// Package shairport renders the receiver daemon's configuration, probes its
// build capabilities and clears its cached pairing state.
package shairport

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"github.com/robertmayen/airplay-wyse/internal/fsx"
	"github.com/robertmayen/airplay-wyse/internal/state"
)

// DefaultConfPath is where shairport-sync reads its configuration.
const DefaultConfPath = "/etc/shairport-sync.conf"

//go:embed shairport-sync.conf.tmpl
var confTemplate string

// Config holds everything the rendered configuration needs. Empty optional
// values drop their whole line from the output so shairport-sync falls back
// to its own defaults.
type Config struct {
	Name            string
	Device          string
	Mixer           string
	Interface       string
	HardwareAddress string
	OutputRate      int // 0 means unset
	Statistics      bool
	Interpolation   string
	AirplayDeviceID string
}

// ConfigFromState builds the render input from the persisted document's
// config view, applying the same defaults the daemon would.
func ConfigFromState(cfg state.Config) Config {
	out := Config{Name: "Wyse DAC", Device: "default", Statistics: cfg.Statistics}
	if cfg.Name != nil && *cfg.Name != "" {
		out.Name = *cfg.Name
	}
	if cfg.Device != nil && *cfg.Device != "" {
		out.Device = *cfg.Device
	}
	if cfg.Mixer != nil {
		out.Mixer = *cfg.Mixer
	}
	if cfg.Interface != nil {
		out.Interface = *cfg.Interface
	}
	if cfg.HardwareAddress != nil {
		out.HardwareAddress = *cfg.HardwareAddress
	}
	if cfg.OutputRate != nil {
		out.OutputRate = *cfg.OutputRate
	}
	if cfg.Interpolation != nil {
		out.Interpolation = *cfg.Interpolation
	}
	if cfg.AirplayDeviceID != nil {
		out.AirplayDeviceID = *cfg.AirplayDeviceID
	}
	return out
}

// optionalLines maps template placeholders to the config line they render
// into. When the placeholder's value is empty, the line is dropped entirely.
var optionalLines = map[string]*regexp.Regexp{
	"ALSA_MIXER":        regexp.MustCompile(`^[\t ]*mixer_control_name`),
	"ALSA_OUTPUT_RATE":  regexp.MustCompile(`^[\t ]*output_rate`),
	"INTERPOLATION":     regexp.MustCompile(`^[\t ]*interpolation`),
	"AVAHI_IFACE":       regexp.MustCompile(`^[\t ]*interface`),
	"HW_ADDR":           regexp.MustCompile(`^[\t ]*hardware_address`),
	"STATISTICS":        regexp.MustCompile(`^[\t ]*statistics`),
	"AIRPLAY_DEVICE_ID": regexp.MustCompile(`^[\t ]*airplay_device_id`),
}

func (c Config) context() map[string]string {
	rate := ""
	if c.OutputRate > 0 {
		rate = fmt.Sprintf("%d", c.OutputRate)
	}
	stats := ""
	if c.Statistics {
		stats = "yes"
	}
	return map[string]string{
		"AIRPLAY_NAME":      c.Name,
		"ALSA_DEVICE":       c.Device,
		"ALSA_MIXER":        c.Mixer,
		"AVAHI_IFACE":       c.Interface,
		"HW_ADDR":           c.HardwareAddress,
		"ALSA_OUTPUT_RATE":  rate,
		"STATISTICS":        stats,
		"INTERPOLATION":     c.Interpolation,
		"AIRPLAY_DEVICE_ID": c.AirplayDeviceID,
	}
}

// Render substitutes the template placeholders and strips lines whose
// optional value is empty.
func Render(cfg Config) string {
	ctx := cfg.context()
	text := confTemplate
	for key, value := range ctx {
		text = strings.ReplaceAll(text, "{{"+key+"}}", value)
	}

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		drop := false
		for key, re := range optionalLines {
			if ctx[key] == "" && re.MatchString(line) {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, line)
		}
	}
	out := strings.Join(kept, "\n")
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out
}

// WriteConfig renders and atomically installs the configuration.
func WriteConfig(cfg Config, path string) error {
	return fsx.WriteFileAtomic(path, []byte(Render(cfg)), 0644)
}
