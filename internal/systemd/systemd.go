// Package systemd drives service lifecycle through systemd's D-Bus manager
// API instead of shelling out to systemctl.
package systemd

import (
	"context"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	busName     = "org.freedesktop.systemd1"
	managerPath = dbus.ObjectPath("/org/freedesktop/systemd1")
	managerIfc  = "org.freedesktop.systemd1.Manager"
)

// Conn is a connection to the systemd manager on the system bus.
type Conn struct {
	bus *dbus.Conn
	mgr dbus.BusObject
}

// Connect opens a system bus connection to systemd.
func Connect() (*Conn, error) {
	bus, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("systemd: connect system bus: %w", err)
	}
	return &Conn{bus: bus, mgr: bus.Object(busName, managerPath)}, nil
}

// Close releases the bus connection.
func (c *Conn) Close() {
	if c.bus != nil {
		c.bus.Close()
	}
}

// StopUnit stops a unit, replacing any queued jobs for it.
func (c *Conn) StopUnit(ctx context.Context, unit string) error {
	call := c.mgr.CallWithContext(ctx, managerIfc+".StopUnit", 0, unit, "replace")
	if call.Err != nil {
		return fmt.Errorf("systemd: stop %s: %w", unit, call.Err)
	}
	return nil
}

// RestartUnit restarts a unit.
func (c *Conn) RestartUnit(ctx context.Context, unit string) error {
	call := c.mgr.CallWithContext(ctx, managerIfc+".RestartUnit", 0, unit, "replace")
	if call.Err != nil {
		return fmt.Errorf("systemd: restart %s: %w", unit, call.Err)
	}
	return nil
}

// StartUnit starts a unit.
func (c *Conn) StartUnit(ctx context.Context, unit string) error {
	call := c.mgr.CallWithContext(ctx, managerIfc+".StartUnit", 0, unit, "replace")
	if call.Err != nil {
		return fmt.Errorf("systemd: start %s: %w", unit, call.Err)
	}
	return nil
}

// EnableUnit enables a unit persistently and optionally starts it now.
func (c *Conn) EnableUnit(ctx context.Context, unit string, now bool) error {
	call := c.mgr.CallWithContext(ctx, managerIfc+".EnableUnitFiles", 0, []string{unit}, false, true)
	if call.Err != nil {
		return fmt.Errorf("systemd: enable %s: %w", unit, call.Err)
	}
	if now {
		return c.StartUnit(ctx, unit)
	}
	return nil
}

// Reload makes systemd re-read its unit files, the daemon-reload equivalent.
func (c *Conn) Reload(ctx context.Context) error {
	call := c.mgr.CallWithContext(ctx, managerIfc+".Reload", 0)
	if call.Err != nil {
		return fmt.Errorf("systemd: daemon-reload: %w", call.Err)
	}
	return nil
}

// ActiveState reports a unit's activation state ("active", "inactive", ...).
// Any failure reads as "inactive" so status probes never abort callers.
func (c *Conn) ActiveState(ctx context.Context, unit string) string {
	obj, err := c.unitObject(ctx, unit)
	if err != nil {
		return "inactive"
	}
	prop, err := obj.GetProperty("org.freedesktop.systemd1.Unit.ActiveState")
	if err != nil {
		return "inactive"
	}
	if s, ok := prop.Value().(string); ok && s != "" {
		return s
	}
	return "inactive"
}

// UnitUser returns the User= a service runs as, or "" when unset or
// unresolvable.
func (c *Conn) UnitUser(ctx context.Context, unit string) string {
	obj, err := c.unitObject(ctx, unit)
	if err != nil {
		return ""
	}
	prop, err := obj.GetProperty("org.freedesktop.systemd1.Service.User")
	if err != nil {
		return ""
	}
	user, _ := prop.Value().(string)
	return strings.TrimSpace(user)
}

// unitObject resolves a unit name to its D-Bus object.
func (c *Conn) unitObject(ctx context.Context, unit string) (dbus.BusObject, error) {
	var path dbus.ObjectPath
	call := c.mgr.CallWithContext(ctx, managerIfc+".LoadUnit", 0, unit)
	if call.Err != nil {
		return nil, call.Err
	}
	if err := call.Store(&path); err != nil {
		return nil, err
	}
	return c.bus.Object(busName, path), nil
}
