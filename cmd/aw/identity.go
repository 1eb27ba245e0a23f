package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robertmayen/airplay-wyse/internal/execx"
)

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Identity management commands",
}

var identityEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Ensure the AirPlay identity is stable and persisted",
	RunE:  runIdentityEnsure,
}

func init() {
	rootCmd.AddCommand(identityCmd)
	identityCmd.AddCommand(identityEnsureCmd)
	identityEnsureCmd.Flags().Bool("force", false, "force an identity reset")
}

func runIdentityEnsure(cmd *cobra.Command, _ []string) error {
	if err := execx.EnsureRoot(); err != nil {
		return err
	}
	ctx := cmd.Context()

	store := newStore()
	conn := connectSystemd()
	if conn != nil {
		defer conn.Close()
	}

	force, _ := cmd.Flags().GetBool("force")
	result, err := newIdentityEngine(store, conn).Ensure(ctx, force)
	if err != nil {
		return err
	}
	if err := renderReceiverConfig(store); err != nil {
		return fmt.Errorf("render receiver config: %w", err)
	}

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(payload))
	return nil
}
