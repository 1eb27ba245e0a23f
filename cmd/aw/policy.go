package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robertmayen/airplay-wyse/internal/alsa"
	"github.com/robertmayen/airplay-wyse/internal/execx"
	"github.com/robertmayen/airplay-wyse/internal/pipewire"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Audio policy commands",
}

var policyAlsaCmd = &cobra.Command{
	Use:   "alsa",
	Short: "Ensure the ALSA device policy is applied",
	RunE:  runPolicyAlsa,
}

var policyPipewireCmd = &cobra.Command{
	Use:   "pipewire",
	Short: "Ensure the PipeWire clock policy is applied",
	RunE:  runPolicyPipewire,
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyAlsaCmd)
	policyCmd.AddCommand(policyPipewireCmd)

	policyAlsaCmd.Flags().String("device", "", "explicit ALSA hw device (e.g. hw:1,0)")
	policyAlsaCmd.Flags().Bool("json", false, "print JSON summary")

	policyPipewireCmd.Flags().Int("force-rate", 0, "pin the PipeWire clock to a specific rate (44100, 48000, 88200, 96000)")
	policyPipewireCmd.Flags().Bool("json", false, "print JSON summary")
}

func runPolicyAlsa(cmd *cobra.Command, _ []string) error {
	if err := execx.EnsureRoot(); err != nil {
		return err
	}

	device, _ := cmd.Flags().GetString("device")
	policy, err := alsa.NewManager(newStore()).EnsurePolicy(cmd.Context(), device)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		payload := struct {
			alsa.Policy
			Changed bool `json:"changed"`
		}{Policy: policy, Changed: policy.Changed}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	usb := "unknown"
	if policy.IsUSB != nil {
		usb = fmt.Sprintf("%t", *policy.IsUSB)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ALSA device: %s (anchor %d Hz, usb=%s)\n", policy.Device, policy.AnchorHz, usb)
	if policy.RequiresSoxr {
		fmt.Fprintln(cmd.OutOrStdout(), "  Note: requires libsoxr resampling")
	}
	return nil
}

func runPolicyPipewire(cmd *cobra.Command, _ []string) error {
	if err := execx.EnsureRoot(); err != nil {
		return err
	}

	forceRate, _ := cmd.Flags().GetInt("force-rate")
	policy, err := pipewire.NewManager(newStore()).EnsurePolicy(forceRate)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		payload := struct {
			pipewire.Policy
			AllowedRates []int `json:"allowed_rates"`
		}{Policy: policy, AllowedRates: pipewire.AllowedRates}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	if !policy.Present {
		fmt.Fprintln(cmd.OutOrStdout(), "PipeWire not detected; policy skipped")
		return nil
	}
	rate := "auto"
	if policy.ForceRate != nil {
		rate = fmt.Sprintf("%d", *policy.ForceRate)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "PipeWire policy ensured (force=%s, changed=%t)\n", rate, policy.Changed)
	return nil
}
