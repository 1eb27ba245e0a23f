package main

import (
	"log/slog"

	"github.com/spf13/viper"

	"github.com/robertmayen/airplay-wyse/internal/identity"
	"github.com/robertmayen/airplay-wyse/internal/shairport"
	"github.com/robertmayen/airplay-wyse/internal/state"
	"github.com/robertmayen/airplay-wyse/internal/systemd"
)

// stateDir resolves the state directory, flag over default.
func stateDir() string {
	if dir := viper.GetString("state-dir"); dir != "" {
		return dir
	}
	return state.DefaultDir
}

func newStore() *state.Store {
	return state.NewStore(stateDir())
}

// connectSystemd opens the D-Bus connection, or returns nil when the bus is
// unreachable (containers, tests). Callers treat nil as "no service
// control"; anything load-bearing checks for it explicitly.
func connectSystemd() *systemd.Conn {
	conn, err := systemd.Connect()
	if err != nil {
		slog.Warn("systemd unavailable, service operations will be skipped", "err", err)
		return nil
	}
	return conn
}

// newIdentityEngine wires the identity engine with the shairport cache
// cleaner. conn may be nil.
func newIdentityEngine(store *state.Store, conn *systemd.Conn) *identity.Engine {
	var services shairport.ServiceController
	if conn != nil {
		services = conn
	}
	engine := identity.NewEngine(store, stateDir(), shairport.NewCacheCleaner(services))
	engine.EnvInterface = func() string { return viper.GetString("interface-override") }
	return engine
}

// renderReceiverConfig re-renders /etc/shairport-sync.conf from the current
// persisted state.
func renderReceiverConfig(store *state.Store) error {
	cfg := shairport.ConfigFromState(state.ConfigFrom(store.Load()))
	return shairport.WriteConfig(cfg, shairport.DefaultConfPath)
}
