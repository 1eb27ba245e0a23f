package alsa

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/robertmayen/airplay-wyse/internal/fsx"
	"github.com/robertmayen/airplay-wyse/internal/state"
)

// DefaultAsoundPath is the system-wide ALSA config the policy pins the
// default PCM in.
const DefaultAsoundPath = "/etc/asound.conf"

const stateKey = "alsa_policy"

// Policy is the persisted outcome of device selection. JSON tags are the
// on-disk document keys and must stay stable across versions.
type Policy struct {
	Device       string  `json:"device"`
	AnchorHz     int     `json:"anchor_hz"`
	RequiresSoxr bool    `json:"requires_soxr"`
	Mixer        *string `json:"mixer"`
	Card         *int    `json:"card"`
	CardID       *string `json:"card_id"`
	Dev          *int    `json:"dev_num"`
	IsUSB        *bool   `json:"is_usb"`

	// Changed is transient: true iff this run rewrote the asound config or
	// the persisted policy document.
	Changed bool `json:"-"`
}

// Manager wires device selection to the state store and the asound config.
type Manager struct {
	HW         *Hardware
	Store      *state.Store
	AsoundPath string
}

// NewManager returns a Manager bound to the real system paths.
func NewManager(store *state.Store) *Manager {
	return &Manager{
		HW:         NewHardware(),
		Store:      store,
		AsoundPath: DefaultAsoundPath,
	}
}

// EnsurePolicy selects the playback device, derives the rate anchor, pins
// the device as the ALSA default and persists the resulting policy.
// Enumeration and sysfs absences degrade to unknowns; only the config write
// can fail.
func (m *Manager) EnsurePolicy(ctx context.Context, manualDevice string) (Policy, error) {
	cached := state.Child(m.Store.Load(), stateKey)

	sel := m.HW.ChooseDevice(ctx, manualDevice)

	rates := map[int]bool{}
	if sel.Card != nil {
		rates = m.HW.SupportedRates(*sel.Card)
	}
	anchor, requiresSoxr := anchorRate(rates)

	policy := Policy{
		Device:       sel.Device,
		AnchorHz:     anchor,
		RequiresSoxr: requiresSoxr,
		Card:         sel.Card,
		CardID:       sel.CardID,
		Dev:          sel.Dev,
		IsUSB:        sel.IsUSB,
	}

	wrote, err := m.ensureAsound(sel)
	if err != nil {
		return Policy{}, fmt.Errorf("alsa: write %s: %w", m.AsoundPath, err)
	}

	doc := state.ToDocument(policy)
	policy.Changed = wrote || !state.Equal(doc, cached)

	if _, err := m.Store.Update(state.Document{stateKey: doc}); err != nil {
		return Policy{}, fmt.Errorf("alsa: persist policy: %w", err)
	}

	slog.Info("alsa: policy ensured",
		"device", policy.Device, "anchor_hz", policy.AnchorHz,
		"requires_soxr", policy.RequiresSoxr, "changed", policy.Changed)
	return policy, nil
}

// anchorRate picks the clock anchor from the supported rate set: 44.1 kHz
// when available, 48 kHz as second choice, 44.1 kHz again when the set is
// empty or holds neither. Resampling is required only for a 48 kHz anchor on
// hardware that cannot do 44.1 kHz natively.
func anchorRate(rates map[int]bool) (anchor int, requiresSoxr bool) {
	switch {
	case rates[44100]:
		anchor = 44100
	case rates[48000]:
		anchor = 48000
	default:
		anchor = 44100
	}
	return anchor, anchor == 48000 && !rates[44100]
}

// ensureAsound renders the managed asound.conf stanza and writes it only
// when its content differs from what is on disk.
func (m *Manager) ensureAsound(sel Selection) (bool, error) {
	card, dev := 0, 0
	if sel.Card != nil {
		card = *sel.Card
	}
	if sel.Dev != nil {
		dev = *sel.Dev
	}
	content := renderAsound(card, dev)
	return fsx.WriteFileIfChanged(m.AsoundPath, []byte(content), 0644)
}

func renderAsound(card, dev int) string {
	var b strings.Builder
	b.WriteString("# Managed by airplay-wyse\n")
	fmt.Fprintf(&b, "pcm.airplay_wyse_hw {\n    type hw\n    card %d\n    device %d\n}\n\n", card, dev)
	b.WriteString("pcm.!default {\n    type plug\n    slave.pcm airplay_wyse_hw\n}\n\n")
	fmt.Fprintf(&b, "ctl.!default {\n    type hw\n    card %d\n}\n", card)
	return b.String()
}
