// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/Thermoquad/helioflash/pkg/connection"
	"github.com/spf13/cobra"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	Long: `List the serial ports on this host.

With --filter only USB ports matching at least one VID[:PID] filter are shown.
Non-USB ports never match a filter.

Examples:
  helioflash ports
  helioflash ports --filter 10C4 --filter 1A86:7523`,
	RunE: runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
}

func runPorts(cmd *cobra.Command, args []string) error {
	filters, err := parseFilters(portFilters)
	if err != nil {
		return err
	}

	ports, err := connection.ListPorts(filters)
	if err != nil {
		return err
	}

	return printPorts(os.Stdout, ports)
}

func printPorts(w io.Writer, ports []connection.PortInfo) error {
	if len(ports) == 0 {
		_, err := fmt.Fprintln(w, "No serial ports found")
		return err
	}

	for _, p := range ports {
		if _, err := fmt.Fprintf(w, "%-24s %s\n", p.Name, portItem{port: p}.Description()); err != nil {
			return err
		}
	}
	return nil
}
