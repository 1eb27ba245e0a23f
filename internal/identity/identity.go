// Package identity derives the receiver's stable network identity and
// detects when a change must invalidate the receiver daemon's cached state.
//
// The identity is a fingerprint over machine id, hostname and hardware
// address. AirPlay 2 pairing state is keyed on the advertised device id, so
// whenever the fingerprint moves, the old pairing caches are poisoned and
// must be cleared.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/robertmayen/airplay-wyse/internal/fsx"
	"github.com/robertmayen/airplay-wyse/internal/netiface"
	"github.com/robertmayen/airplay-wyse/internal/state"
)

// ErrUnavailable means the machine id cannot be read. There is no safe
// synthetic fallback without it, so the operation fails.
var ErrUnavailable = errors.New("identity: machine-id unavailable")

// DefaultMachineIDPath is the systemd machine id file.
const DefaultMachineIDPath = "/etc/machine-id"

const recordFileName = "instance.json"

// Record is the persisted identity file: the fingerprint plus the time it
// last changed. JSON keys are an external interface and must stay stable.
type Record struct {
	MachineID string `json:"machine_id"`
	Host      string `json:"host"`
	MAC       string `json:"mac"`
	Updated   string `json:"updated"`
}

// fingerprint is the comparable triple; Updated is deliberately excluded.
type fingerprint struct {
	machineID string
	host      string
	mac       string
}

func (r Record) fingerprint() fingerprint {
	return fingerprint{machineID: r.MachineID, host: r.Host, mac: r.MAC}
}

// Result reports what Ensure decided.
type Result struct {
	MAC       string  `json:"mac"`
	Interface *string `json:"interface"`
	Changed   bool    `json:"changed"`
	Synthetic bool    `json:"synthetic"`
}

// Cleaner invalidates the receiver daemon's cached pairing state. All of its
// steps are best-effort; it never fails the identity run.
type Cleaner interface {
	Invalidate(ctx context.Context)
}

// Engine derives and persists the identity.
type Engine struct {
	Store         *state.Store
	Net           *netiface.Selector
	Cleaner       Cleaner
	MachineIDPath string
	RecordPath    string

	// EnvInterface returns the operator's interface override from the
	// environment, consulted before the persisted hint.
	EnvInterface func() string

	hostname func() string
	now      func() time.Time
}

// NewEngine returns an Engine bound to the real system paths. cleaner may be
// nil when no cache invalidation is wanted (tests, dry runs).
func NewEngine(store *state.Store, stateDir string, cleaner Cleaner) *Engine {
	return &Engine{
		Store:         store,
		Net:           netiface.NewSelector(),
		Cleaner:       cleaner,
		MachineIDPath: DefaultMachineIDPath,
		RecordPath:    filepath.Join(stateDir, recordFileName),
		EnvInterface:  func() string { return "" },
		hostname:      nodename,
		now:           time.Now,
	}
}

// Ensure resolves the interface and hardware address, derives the AirPlay
// device id and display name, compares the identity fingerprint against the
// previous run and clears dependent caches when it moved.
func (e *Engine) Ensure(ctx context.Context, force bool) (Result, error) {
	doc := e.Store.Load()
	cfg := state.ConfigFrom(doc)

	hint := ""
	if e.EnvInterface != nil {
		hint = e.EnvInterface()
	}
	if hint == "" && cfg.Interface != nil {
		hint = *cfg.Interface
	}
	iface, haveIface := e.Net.Choose(ctx, hint)

	machineID, err := e.readMachineID()
	if err != nil {
		return Result{}, err
	}

	mac := ""
	if cfg.HardwareAddress != nil {
		mac = *cfg.HardwareAddress
	}
	if mac == "" && haveIface {
		mac, _ = e.Net.HardwareAddress(iface)
	}
	synthetic := false
	if mac == "" || mac == ZeroMAC {
		mac = SyntheticMAC(machineID)
		synthetic = true
	}
	mac = strings.ToLower(mac)

	deviceID := DeviceID(mac)
	name := resolveName(cfg, mac, synthetic)

	updates, cfgChanged := configUpdates(cfg, iface, haveIface, mac, deviceID, name)

	previous := e.loadRecord()
	current := fingerprint{machineID: machineID, host: e.hostname(), mac: mac}
	changed := force || current != previous.fingerprint()

	record := previous
	if changed {
		if e.Cleaner != nil {
			e.Cleaner.Invalidate(ctx)
		}
		record = Record{
			MachineID: machineID,
			Host:      current.host,
			MAC:       mac,
			Updated:   e.now().UTC().Format("2006-01-02T15:04:05Z"),
		}
		if err := e.saveRecord(record); err != nil {
			return Result{}, fmt.Errorf("identity: save record: %w", err)
		}
		slog.Info("identity: fingerprint changed, caches invalidated",
			"mac", mac, "host", current.host, "synthetic", synthetic, "forced", force)
	}

	if cfgChanged || changed {
		update := state.Document{"identity": state.ToDocument(record)}
		if cfgChanged {
			update["config"] = updates
		}
		if _, err := e.Store.Update(update); err != nil {
			return Result{}, fmt.Errorf("identity: persist config: %w", err)
		}
	}

	result := Result{MAC: mac, Changed: changed, Synthetic: synthetic}
	if haveIface {
		result.Interface = &iface
	}
	return result, nil
}

// resolveName applies the display-name policy: keep a configured name unless
// it is absent or exactly the bare placeholder, in which case the default
// (suffixed for real addresses) is recomputed.
func resolveName(cfg state.Config, mac string, synthetic bool) string {
	suffixSource := mac
	if synthetic {
		suffixSource = ""
	}
	name := ""
	if cfg.Name != nil {
		name = *cfg.Name
	}
	if name == "" || strings.EqualFold(strings.TrimSpace(name), BaseName) {
		name = DefaultName(suffixSource)
	}
	return name
}

// configUpdates builds the minimal config patch: only fields whose value
// actually moved are included, so an unchanged identity writes nothing.
func configUpdates(cfg state.Config, iface string, haveIface bool, mac, deviceID, name string) (state.Document, bool) {
	updates := state.Document{}

	var ifaceVal *string
	if haveIface {
		ifaceVal = &iface
	}
	if !strPtrEqual(cfg.Interface, ifaceVal) {
		updates["interface"] = ptrToAny(ifaceVal)
	}
	if cfg.HardwareAddress == nil || *cfg.HardwareAddress != mac {
		updates["hardware_address"] = mac
	}
	if cfg.AirplayDeviceID == nil || *cfg.AirplayDeviceID != deviceID {
		updates["airplay_device_id"] = deviceID
	}
	if cfg.Name == nil || *cfg.Name != name {
		updates["name"] = name
	}
	return updates, len(updates) > 0
}

func (e *Engine) readMachineID() (string, error) {
	data, err := os.ReadFile(e.MachineIDPath)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnavailable, e.MachineIDPath)
	}
	id := strings.TrimSpace(string(data))
	if id == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrUnavailable, e.MachineIDPath)
	}
	return id, nil
}

// loadRecord reads the previous identity record; a missing or corrupt file
// is simply an empty record, which never matches a real fingerprint.
func (e *Engine) loadRecord() Record {
	data, err := os.ReadFile(e.RecordPath)
	if err != nil {
		return Record{}
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}
	}
	return rec
}

func (e *Engine) saveRecord(rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomic(e.RecordPath, data, 0644)
}

// nodename is the first label of the kernel hostname.
func nodename() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		host, _ := os.Hostname()
		return strings.SplitN(host, ".", 2)[0]
	}
	return strings.SplitN(unix.ByteSliceToString(uts.Nodename[:]), ".", 2)[0]
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func ptrToAny(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
