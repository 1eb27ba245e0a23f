package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/robertmayen/airplay-wyse/internal/health"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Emit a condensed health snapshot",
	Long: `Report the activation state of the receiver stack's services and
whether the AirPlay advertisement is visible on the local network.`,
	RunE: runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
	healthCmd.Flags().Bool("json", false, "return a JSON payload")
}

func runHealth(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	conn := connectSystemd()
	var reader health.StatusReader
	if conn != nil {
		defer conn.Close()
		reader = conn
	}

	report := health.Collect(ctx, reader)

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Health summary:")
	units := make([]string, 0, len(report.Services))
	for unit := range report.Services {
		units = append(units, unit)
	}
	sort.Strings(units)
	for _, unit := range units {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", unit, report.Services[unit])
	}
	if report.Advertised {
		fmt.Fprintf(cmd.OutOrStdout(), "  mDNS: advertised (%v)\n", report.Instances)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "  mDNS: not visible")
	}
	return nil
}
