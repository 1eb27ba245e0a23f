package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robertmayen/airplay-wyse/internal/alsa"
	"github.com/robertmayen/airplay-wyse/internal/execx"
	"github.com/robertmayen/airplay-wyse/internal/shairport"
	"github.com/robertmayen/airplay-wyse/internal/state"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Re-render configuration with updated options",
	Long: `Re-run device selection and identity derivation, merge any option
changes into persisted state, rewrite the receiver configuration and restart
shairport-sync. Assumes setup already ran.`,
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)
	addConfigFlags(applyCmd)
	applyCmd.Flags().Bool("force-identity", false, "reset the AirPlay identity")
	applyCmd.Flags().Bool("statistics", false, "enable shairport-sync statistics output")
	applyCmd.Flags().Bool("no-statistics", false, "disable statistics")
}

func runApply(cmd *cobra.Command, _ []string) error {
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

	if conn != nil {
		if err := conn.RestartUnit(ctx, shairport.ServiceUnit); err != nil {
			return err
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Configuration applied")
	return nil
}
