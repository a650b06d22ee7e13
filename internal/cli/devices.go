package cli

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/glorpus-work/apkfetch/pkg/device"
	"github.com/glorpus-work/apkfetch/pkg/platform"
	"github.com/spf13/cobra"
)

type deviceInfo struct {
	Key     string   `json:"key"`
	Name    string   `json:"name"`
	Android string   `json:"android"`
	ABIs    []string `json:"abis"`
	Default bool     `json:"default"`
	Native  bool     `json:"native"`
}

type regionInfo struct {
	Key      string `json:"key"`
	Country  string `json:"country"`
	Language string `json:"language"`
	TimeZone string `json:"timeZone"`
	Default  bool   `json:"default"`
}

// NewDevicesCmd creates the devices command.
func NewDevicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List device profiles and regions",
		Long:  "Display the simulated devices and the regions they can be combined with",
		Args:  cobra.NoArgs,
		RunE:  runDevices,
	}

	return cmd
}

func runDevices(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	hostABI := platform.HostABI()
	var devices []deviceInfo
	for _, hw := range device.Devices() {
		devices = append(devices, deviceInfo{
			Key:     hw.Key,
			Name:    hw.Name,
			Android: hw.Release(),
			ABIs:    hw.ABIs,
			Default: hw.Key == cfg.Settings.DefaultDevice,
			Native:  slices.Contains(hw.ABIs, hostABI),
		})
	}
	var regions []regionInfo
	for _, rg := range device.Regions() {
		regions = append(regions, regionInfo{
			Key:      rg.Key,
			Country:  rg.Country,
			Language: rg.Language,
			TimeZone: rg.TimeZone,
			Default:  rg.Key == cfg.Settings.DefaultRegion,
		})
	}

	w := cmd.OutOrStdout()
	if cfg.Settings.OutputFormat == "json" {
		return writeJSON(w, map[string]any{"devices": devices, "regions": regions})
	}

	tabWriter := tabwriter.NewWriter(w, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tabWriter, "DEVICE\tNAME\tANDROID\tABIS\tNATIVE")
	for _, d := range devices {
		native := ""
		if d.Native {
			native = "yes"
		}
		_, _ = fmt.Fprintf(tabWriter, "%s\t%s\t%s\t%s\t%s\n", marker(d.Key, d.Default), d.Name, d.Android, strings.Join(d.ABIs, ","), native)
	}
	_, _ = fmt.Fprintln(tabWriter)
	_, _ = fmt.Fprintln(tabWriter, "REGION\tCOUNTRY\tLANGUAGE\tTIMEZONE")
	for _, r := range regions {
		_, _ = fmt.Fprintf(tabWriter, "%s\t%s\t%s\t%s\n", marker(r.Key, r.Default), r.Country, r.Language, r.TimeZone)
	}
	return tabWriter.Flush()
}

// marker flags the configured default with an asterisk.
func marker(key string, isDefault bool) string {
	if isDefault {
		return key + " *"
	}
	return key
}
