// Package pipewire pins the audio server's clock policy so its graph rate
// follows the AirPlay stream instead of resampling it.
package pipewire

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/robertmayen/airplay-wyse/internal/fsx"
	"github.com/robertmayen/airplay-wyse/internal/state"
)

// DefaultConfPath is the drop-in fragment this policy owns.
const DefaultConfPath = "/etc/pipewire/pipewire.conf.d/90-airplay-wyse.conf"

// AllowedRates are the graph rates the policy permits.
var AllowedRates = []int{44100, 48000, 88200, 96000}

const stateKey = "pipewire_policy"

// Policy is the persisted outcome.
type Policy struct {
	Present   bool `json:"present"`
	Changed   bool `json:"changed"`
	ForceRate *int `json:"force_rate"`
}

// Manager writes the PipeWire rate policy.
type Manager struct {
	Store    *state.Store
	ConfPath string

	present func() bool
}

// NewManager returns a Manager bound to the real system paths.
func NewManager(store *state.Store) *Manager {
	return &Manager{
		Store:    store,
		ConfPath: DefaultConfPath,
		present:  pipewirePresent,
	}
}

// EnsurePolicy renders the rate-policy fragment when PipeWire is installed,
// writing only on content change. A forceRate outside AllowedRates is
// rejected before any state mutation.
func (m *Manager) EnsurePolicy(forceRate int) (Policy, error) {
	if !m.present() {
		policy := Policy{}
		if _, err := m.Store.Update(state.Document{stateKey: state.ToDocument(policy)}); err != nil {
			return Policy{}, fmt.Errorf("pipewire: persist policy: %w", err)
		}
		return policy, nil
	}

	var rate *int
	if forceRate != 0 {
		if !rateAllowed(forceRate) {
			return Policy{}, fmt.Errorf("pipewire: force rate %d not in %v", forceRate, AllowedRates)
		}
		rate = &forceRate
	}

	changed, err := fsx.WriteFileIfChanged(m.ConfPath, []byte(render(rate)), 0644)
	if err != nil {
		return Policy{}, fmt.Errorf("pipewire: write %s: %w", m.ConfPath, err)
	}

	policy := Policy{Present: true, Changed: changed, ForceRate: rate}
	if _, err := m.Store.Update(state.Document{stateKey: state.ToDocument(policy)}); err != nil {
		return Policy{}, fmt.Errorf("pipewire: persist policy: %w", err)
	}
	return policy, nil
}

func rateAllowed(rate int) bool {
	for _, r := range AllowedRates {
		if r == rate {
			return true
		}
	}
	return false
}

// pipewirePresent detects an installation by its tooling or config tree.
func pipewirePresent() bool {
	for _, bin := range []string{"pw-cli", "pw-dump", "pipewire"} {
		if _, err := exec.LookPath(bin); err == nil {
			return true
		}
	}
	_, err := os.Stat("/etc/pipewire")
	return err == nil
}

func render(forceRate *int) string {
	rates := make([]string, len(AllowedRates))
	for i, r := range AllowedRates {
		rates[i] = fmt.Sprintf("%d", r)
	}
	var b strings.Builder
	b.WriteString("# Managed by airplay-wyse\n")
	b.WriteString("context.properties = {\n")
	fmt.Fprintf(&b, "  default.clock.allowed-rates = [ %s ]\n", strings.Join(rates, " "))
	if forceRate != nil {
		fmt.Fprintf(&b, "  default.clock.force-rate = %d\n", *forceRate)
	}
	b.WriteString("}\n")
	return b.String()
}
