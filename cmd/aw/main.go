// Command aw provisions and maintains an AirPlay 2 audio receiver on a
// Linux host: sound hardware selection, clock policy, network identity and
// the systemd services that keep shairport-sync running.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "aw",
	Short: "Provision this host as an AirPlay 2 receiver",
	Long: `aw turns a small Linux box into a stable AirPlay 2 receiver.

It picks the playback device, anchors the sample-rate policy, derives a
persistent network identity for the AirPlay advertisement and installs the
systemd units that keep everything applied across reboots. Runs are
idempotent: re-running against an unchanged host changes nothing on disk.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initEnv)

	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("state-dir", "", "state directory (default /var/lib/airplay-wyse)")
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("state-dir", rootCmd.PersistentFlags().Lookup("state-dir"))
}

// initEnv binds the environment overrides consulted before persisted config.
func initEnv() {
	viper.BindEnv("interface-override", "AIRPLAY_WYSE_IFACE", "AIRPLAY_WYSE_INTERFACE", "AVAHI_IFACE")

	level := slog.LevelInfo
	if viper.GetBool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
