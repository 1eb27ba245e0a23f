package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robertmayen/airplay-wyse/internal/deploy"
	"github.com/robertmayen/airplay-wyse/internal/execx"
)

var systemdCmd = &cobra.Command{
	Use:   "systemd",
	Short: "Systemd integration commands",
}

var systemdInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install or refresh the aw systemd units",
	RunE:  runSystemdInstall,
}

func init() {
	rootCmd.AddCommand(systemdCmd)
	systemdCmd.AddCommand(systemdInstallCmd)
}

func runSystemdInstall(cmd *cobra.Command, _ []string) error {
	if err := execx.EnsureRoot(); err != nil {
		return err
	}

	installed, err := deploy.InstallUnits(deploy.DefaultUnitDir)
	if err != nil {
		return err
	}

	conn := connectSystemd()
	if conn != nil {
		defer conn.Close()
		if err := conn.Reload(cmd.Context()); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Systemd units refreshed (%d installed)\n", len(installed))
	return nil
}
