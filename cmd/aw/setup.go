package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/robertmayen/airplay-wyse/internal/alsa"
	"github.com/robertmayen/airplay-wyse/internal/deploy"
	"github.com/robertmayen/airplay-wyse/internal/execx"
	"github.com/robertmayen/airplay-wyse/internal/packages"
	"github.com/robertmayen/airplay-wyse/internal/pipewire"
	"github.com/robertmayen/airplay-wyse/internal/shairport"
	"github.com/robertmayen/airplay-wyse/internal/state"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Install and configure the AirPlay receiver stack",
	Long: `Install the receiver packages, pick the playback device, pin the audio
clock policy, derive the AirPlay identity and enable the systemd services.
Safe to re-run; unchanged hosts see no writes.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
	addConfigFlags(setupCmd)
	setupCmd.Flags().Bool("force-identity", false, "reset the AirPlay identity")
	setupCmd.Flags().Bool("statistics", false, "enable shairport-sync statistics output")
	setupCmd.Flags().Bool("no-statistics", false, "disable statistics even if previously enabled")
	setupCmd.Flags().Int("force-rate", 0, "pin the PipeWire clock to a specific rate (44100, 48000, 88200, 96000)")
}

// addConfigFlags registers the config options shared by setup and apply.
func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", "", "advertised receiver name")
	cmd.Flags().String("device", "", "preferred ALSA hardware device (hw:X,Y)")
	cmd.Flags().String("mixer", "", "optional ALSA mixer control")
	cmd.Flags().String("interface", "", "preferred network interface for mDNS")
}

func runSetup(cmd *cobra.Command, _ []string) error {
	if err := execx.EnsureRoot(); err != nil {
		return err
	}
	ctx := cmd.Context()
	flags := cmd.Flags()

	statistics, _ := flags.GetBool("statistics")
	noStatistics, _ := flags.GetBool("no-statistics")
	if statistics && noStatistics {
		return errors.New("--statistics and --no-statistics are mutually exclusive")
	}
	forceRate, _ := flags.GetInt("force-rate")
	if forceRate != 0 && !rateAllowed(forceRate) {
		return fmt.Errorf("--force-rate must be one of %v", pipewire.AllowedRates)
	}

	if err := packages.EnsureInstalled(ctx, "alsa-utils", "avahi-daemon", "shairport-sync", "nqptp"); err != nil {
		return err
	}
	stack := shairport.Probe(ctx)
	if !stack.HasAirPlay2 {
		return errors.New("shairport-sync does not report AirPlay 2 support")
	}

	store := newStore()

	device, _ := flags.GetString("device")
	policy, err := alsa.NewManager(store).EnsurePolicy(ctx, device)
	if err != nil {
		return err
	}
	if policy.RequiresSoxr && !stack.HasSoxr {
		return errors.New("shairport-sync lacks libsoxr while hardware needs a 48 kHz anchor")
	}

	pwPolicy, err := pipewire.NewManager(store).EnsurePolicy(forceRate)
	if err != nil {
		return err
	}

	updates := configUpdates(flags, policy, stack)
	if statistics {
		updates["statistics"] = true
	} else if noStatistics {
		updates["statistics"] = false
	}
	if _, err := store.Update(state.Document{"config": updates}); err != nil {
		return fmt.Errorf("persist config: %w", err)
	}

	conn := connectSystemd()
	if conn != nil {
		defer conn.Close()
	}

	forceIdentity, _ := flags.GetBool("force-identity")
	if _, err := newIdentityEngine(store, conn).Ensure(ctx, forceIdentity); err != nil {
		return err
	}
	if err := renderReceiverConfig(store); err != nil {
		return fmt.Errorf("render receiver config: %w", err)
	}

	if _, err := deploy.InstallUnits(deploy.DefaultUnitDir); err != nil {
		return err
	}
	if conn != nil {
		if err := conn.Reload(ctx); err != nil {
			return err
		}
		// best effort for the supporting services, fatal for the receiver
		for _, unit := range []string{"avahi-daemon.service", "nqptp.service"} {
			if err := conn.EnableUnit(ctx, unit, true); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: enable %s: %v\n", unit, err)
			}
		}
		for _, unit := range deploy.UnitNames() {
			if err := conn.EnableUnit(ctx, unit, false); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: enable %s: %v\n", unit, err)
			}
		}
		if err := conn.EnableUnit(ctx, shairport.ServiceUnit, true); err != nil {
			return err
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Setup complete")
	fmt.Fprintf(cmd.OutOrStdout(), "  ALSA device: %s (anchor %d Hz)\n", policy.Device, policy.AnchorHz)
	if pwPolicy.Present {
		rate := "auto"
		if pwPolicy.ForceRate != nil {
			rate = fmt.Sprintf("%d", *pwPolicy.ForceRate)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  PipeWire allowed rates: %v (force=%s)\n", pipewire.AllowedRates, rate)
	}
	return nil
}

// configUpdates assembles the config patch common to setup and apply.
func configUpdates(flags *pflag.FlagSet, policy alsa.Policy, stack shairport.Stack) state.Document {
	updates := state.Document{"device": "default"}

	if policy.RequiresSoxr {
		updates["output_rate"] = policy.AnchorHz
	} else {
		updates["output_rate"] = nil
	}
	if policy.RequiresSoxr && stack.HasSoxr {
		updates["interpolation"] = "soxr"
	} else {
		updates["interpolation"] = nil
	}

	if name, _ := flags.GetString("name"); name != "" {
		updates["name"] = name
	}
	if mixer, _ := flags.GetString("mixer"); mixer != "" {
		updates["mixer"] = mixer
	}
	if iface, _ := flags.GetString("interface"); iface != "" {
		updates["interface"] = iface
	}
	return updates
}

func rateAllowed(rate int) bool {
	for _, r := range pipewire.AllowedRates {
		if r == rate {
			return true
		}
	}
	return false
}
