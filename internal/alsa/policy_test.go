package alsa

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertmayen/airplay-wyse/internal/state"
)

func TestAnchorRate(t *testing.T) {
	cases := []struct {
		name     string
		rates    map[int]bool
		anchor   int
		wantSoxr bool
	}{
		{"native 44.1", map[int]bool{44100: true, 48000: true}, 44100, false},
		{"44.1 only", map[int]bool{44100: true}, 44100, false},
		{"48k only", map[int]bool{48000: true, 96000: true}, 48000, true},
		{"neither", map[int]bool{96000: true}, 44100, false},
		{"empty", map[int]bool{}, 44100, false},
		{"nil", nil, 44100, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			anchor, soxr := anchorRate(tc.rates)
			assert.Equal(t, tc.anchor, anchor)
			assert.Equal(t, tc.wantSoxr, soxr)
		})
	}
}

func TestRenderAsound(t *testing.T) {
	content := renderAsound(1, 0)

	assert.Contains(t, content, "# Managed by airplay-wyse")
	assert.Contains(t, content, "card 1")
	assert.Contains(t, content, "device 0")
	assert.Contains(t, content, "pcm.!default")
	assert.Contains(t, content, "slave.pcm airplay_wyse_hw")
}

func fixtureManager(t *testing.T) *Manager {
	t.Helper()
	hw := fixtureHardware(t)
	return &Manager{
		HW:         hw,
		Store:      state.NewStore(t.TempDir()),
		AsoundPath: filepath.Join(t.TempDir(), "asound.conf"),
	}
}

func TestEnsurePolicy_USBDACAnchors441(t *testing.T) {
	m := fixtureManager(t)
	markUSB(t, m.HW.SysRoot, "card1")
	writeCardFile(t, m.HW.ProcRoot, "card1", "stream0",
		"Playback:\n    Rates: 44100, 48000\n")

	policy, err := m.EnsurePolicy(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "hw:1,0", policy.Device)
	assert.Equal(t, 44100, policy.AnchorHz)
	assert.False(t, policy.RequiresSoxr)
	require.NotNil(t, policy.IsUSB)
	assert.True(t, *policy.IsUSB)
	assert.True(t, policy.Changed, "first run must report a change")

	data, err := os.ReadFile(m.AsoundPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "card 1")

	persisted := state.Child(m.Store.Load(), "alsa_policy")
	assert.Equal(t, "hw:1,0", persisted["device"])
	assert.Equal(t, float64(44100), persisted["anchor_hz"])
}

func TestEnsurePolicy_48kOnlyRequiresResampling(t *testing.T) {
	m := fixtureManager(t)
	m.HW.listOutput = func(context.Context) (string, error) {
		return "card 0: Gadget [USB Gadget], device 0: Output [Output]\n", nil
	}
	writeCardFile(t, m.HW.ProcRoot, "card0", "stream0",
		"Playback:\n    Rates: 48000\n")

	policy, err := m.EnsurePolicy(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, 48000, policy.AnchorHz)
	assert.True(t, policy.RequiresSoxr)
}

func TestEnsurePolicy_SecondRunUnchanged(t *testing.T) {
	m := fixtureManager(t)
	markUSB(t, m.HW.SysRoot, "card1")
	writeCardFile(t, m.HW.ProcRoot, "card1", "stream0",
		"Playback:\n    Rates: 44100\n")

	first, err := m.EnsurePolicy(context.Background(), "")
	require.NoError(t, err)
	require.True(t, first.Changed)

	second, err := m.EnsurePolicy(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.Equal(t, first.Device, second.Device)
	assert.Equal(t, first.AnchorHz, second.AnchorHz)
}

func TestEnsurePolicy_OpaqueOverrideSkipsRateProbing(t *testing.T) {
	m := fixtureManager(t)

	policy, err := m.EnsurePolicy(context.Background(), "plughw:2,0")
	require.NoError(t, err)

	assert.Equal(t, "plughw:2,0", policy.Device)
	assert.Equal(t, 44100, policy.AnchorHz)
	assert.False(t, policy.RequiresSoxr)
	assert.Nil(t, policy.Card)

	// the asound default falls back to card 0 when the override is opaque
	data, err := os.ReadFile(m.AsoundPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "card 0")
}

func TestEnsurePolicy_ManualHWOverride(t *testing.T) {
	m := fixtureManager(t)
	markUSB(t, m.HW.SysRoot, "card1")
	writeCardFile(t, m.HW.ProcRoot, "card1", "id", "DAC\n")
	writeCardFile(t, m.HW.ProcRoot, "card1", "stream0",
		"Playback:\n    Rates: 44100, 48000\n")

	policy, err := m.EnsurePolicy(context.Background(), "hw:1,0")
	require.NoError(t, err)

	assert.Equal(t, "hw:1,0", policy.Device)
	assert.Equal(t, 44100, policy.AnchorHz)
	assert.False(t, policy.RequiresSoxr)
	require.NotNil(t, policy.CardID)
	assert.Equal(t, "DAC", *policy.CardID)
	require.NotNil(t, policy.IsUSB)
	assert.True(t, *policy.IsUSB)
}
