package netiface

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureSelector(t *testing.T) *Selector {
	t.Helper()
	return &Selector{
		SysRoot: t.TempDir(),
		routeOutput: func(context.Context) (string, error) {
			return "", errors.New("no routing table")
		},
	}
}

func addIface(t *testing.T, s *Selector, name string, attrs map[string]string) {
	t.Helper()
	dir := filepath.Join(s.SysRoot, name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	for attr, value := range attrs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, attr), []byte(value+"\n"), 0644))
	}
}

func TestChoose_ExplicitWins(t *testing.T) {
	s := fixtureSelector(t)
	addIface(t, s, "eth0", map[string]string{"operstate": "up", "carrier": "1"})
	addIface(t, s, "wlan0", map[string]string{"operstate": "up", "carrier": "1"})

	iface, ok := s.Choose(context.Background(), "wlan0")
	require.True(t, ok)
	assert.Equal(t, "wlan0", iface)
}

func TestChoose_ExplicitUnknownFallsThrough(t *testing.T) {
	s := fixtureSelector(t)
	addIface(t, s, "eth0", map[string]string{"operstate": "up", "carrier": "1"})

	iface, ok := s.Choose(context.Background(), "tun9")
	require.True(t, ok)
	assert.Equal(t, "eth0", iface)
}

func TestChoose_DefaultRouteDevice(t *testing.T) {
	s := fixtureSelector(t)
	addIface(t, s, "eth0", map[string]string{"operstate": "down"})
	addIface(t, s, "wlan0", map[string]string{"operstate": "up", "carrier": "1"})
	s.routeOutput = func(context.Context) (string, error) {
		return "default via 192.168.1.1 dev eth0 proto dhcp metric 100\n" +
			"192.168.1.0/24 dev eth0 proto kernel scope link\n", nil
	}

	iface, ok := s.Choose(context.Background(), "")
	require.True(t, ok)
	assert.Equal(t, "eth0", iface, "routed interface beats link state")
}

func TestChoose_RouteDeviceMustExist(t *testing.T) {
	s := fixtureSelector(t)
	addIface(t, s, "wlan0", map[string]string{"operstate": "up", "carrier": "1"})
	s.routeOutput = func(context.Context) (string, error) {
		return "default via 10.0.0.1 dev ppp0\n", nil
	}

	iface, ok := s.Choose(context.Background(), "")
	require.True(t, ok)
	assert.Equal(t, "wlan0", iface)
}

func TestChoose_UpWithCarrierBeatsMerelyUp(t *testing.T) {
	s := fixtureSelector(t)
	addIface(t, s, "eth0", map[string]string{"operstate": "up", "carrier": "0"})
	addIface(t, s, "eth1", map[string]string{"operstate": "up", "carrier": "1"})

	iface, ok := s.Choose(context.Background(), "")
	require.True(t, ok)
	assert.Equal(t, "eth1", iface)
}

func TestChoose_MerelyUpBeatsDown(t *testing.T) {
	s := fixtureSelector(t)
	addIface(t, s, "eth0", map[string]string{"operstate": "down"})
	addIface(t, s, "eth1", map[string]string{"operstate": "up"})

	iface, ok := s.Choose(context.Background(), "")
	require.True(t, ok)
	assert.Equal(t, "eth1", iface)
}

func TestChoose_AnyNonLoopbackAsLastResort(t *testing.T) {
	s := fixtureSelector(t)
	addIface(t, s, "lo", map[string]string{"operstate": "unknown"})
	addIface(t, s, "eth0", map[string]string{"operstate": "down"})

	iface, ok := s.Choose(context.Background(), "")
	require.True(t, ok)
	assert.Equal(t, "eth0", iface)
}

func TestChoose_OnlyLoopbackFails(t *testing.T) {
	s := fixtureSelector(t)
	addIface(t, s, "lo", map[string]string{"operstate": "unknown"})

	_, ok := s.Choose(context.Background(), "")
	assert.False(t, ok)
}

func TestChoose_NoInterfacesFails(t *testing.T) {
	s := fixtureSelector(t)
	_, ok := s.Choose(context.Background(), "")
	assert.False(t, ok)
}

func TestInterfaces_Sorted(t *testing.T) {
	s := fixtureSelector(t)
	addIface(t, s, "wlan0", nil)
	addIface(t, s, "eth0", nil)
	addIface(t, s, "lo", nil)

	assert.Equal(t, []string{"eth0", "lo", "wlan0"}, s.Interfaces())
}

func TestHardwareAddress(t *testing.T) {
	s := fixtureSelector(t)
	addIface(t, s, "eth0", map[string]string{"address": "AA:BB:CC:DD:EE:FF"})
	addIface(t, s, "tun0", map[string]string{"address": ""})

	addr, ok := s.HardwareAddress("eth0")
	require.True(t, ok)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", addr)

	_, ok = s.HardwareAddress("tun0")
	assert.False(t, ok, "empty address file means no usable address")

	_, ok = s.HardwareAddress("missing")
	assert.False(t, ok)
}
