// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/Thermoquad/helioflash/pkg/connection"
	"github.com/Thermoquad/helioflash/pkg/esploader"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var outputFormat string

var identifyCmd = &cobra.Command{
	Use:   "identify",
	Short: "Connect to the ROM bootloader and report chip metadata",
	Long: `Reset the chip into download mode, sync with the ROM bootloader and
report what it is.

Reported fields:
  Chip      description (e.g. ESP32-D0WD, ESP8285)
  Crystal   nominal crystal frequency of the family
  MAC       factory MAC address from eFuse, or "unknown"
  Revision  silicon revision where the family has one, or "unknown"

Progress is written to stderr; the report goes to stdout.

Examples:
  helioflash identify --port /dev/ttyUSB0
  helioflash identify --filter 10C4:EA60 --output json
  helioflash identify --url ws://bridge.local/serial --output cbor > chip.cbor

Exit codes:
  0 - Chip identified
  1 - Port selection or connection failed`,
	RunE: runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)
	identifyCmd.Flags().StringVarP(&outputFormat, "output", "o", outputText, "Output format: text, json or cbor")
}

func runIdentify(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	filters, err := parseFilters(portFilters)
	if err != nil {
		return err
	}

	port, err := connection.RequestSerialPort(ctx, selectHost(), filters)
	if err != nil {
		if errors.Is(err, connection.ErrCapabilityUnavailable) {
			return fmt.Errorf("%w: pass --port or --url", err)
		}
		return err
	}

	terminal := connection.NewWriterTerminal(os.Stderr)
	terminal.WriteLine(fmt.Sprintf("Serial port %s", port))

	conn := connection.CreateConnection(esploader.NewClient, port, baudRate, terminal, connection.Options{
		DebugSerial:  debugSerial,
		DebugLogging: debugLogging,
	})
	defer conn.Close()

	profile, md, err := conn.Identify(ctx)
	if err != nil {
		return err
	}

	report := newIdentifyReport(port.Name, profile, md)
	return writeReport(os.Stdout, outputFormat, report, term.IsTerminal(int(os.Stdout.Fd())))
}
