// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Thermoquad/helioflash/pkg/chip"
	"github.com/charmbracelet/lipgloss"
	"github.com/fxamacker/cbor/v2"
)

// Output formats accepted by --output
const (
	outputText = "text"
	outputJSON = "json"
	outputCBOR = "cbor"
)

// identifyReport is what identify emits in machine-readable formats
type identifyReport struct {
	Port     string        `json:"port" cbor:"port"`
	Family   string        `json:"family" cbor:"family"`
	Metadata chip.Metadata `json:"metadata" cbor:"metadata"`
}

func newIdentifyReport(port string, profile chip.Profile, md chip.Metadata) identifyReport {
	return identifyReport{Port: port, Family: profile.Family.String(), Metadata: md}
}

// writeReport renders r in the requested format. Binary CBOR is hex-dumped
// when w is a terminal.
func writeReport(w io.Writer, format string, r identifyReport, isTerminal bool) error {
	switch format {
	case outputText:
		_, err := io.WriteString(w, renderReportText(r))
		return err

	case outputJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err

	case outputCBOR:
		data, err := cbor.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to encode CBOR: %w", err)
		}
		if isTerminal {
			_, err = io.WriteString(w, hex.Dump(data))
			return err
		}
		_, err = w.Write(data)
		return err

	default:
		return fmt.Errorf("unknown output format %q (use text, json or cbor)", format)
	}
}

func renderReportText(r identifyReport) string {
	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true).
		Width(10)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	unknownStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	var s strings.Builder
	fields := append([]chip.Field{{Label: "Port", Value: r.Port}}, chip.MetadataFields(r.Metadata)...)
	for _, f := range fields {
		value := valueStyle.Render(f.Value)
		if f.Value == "unknown" {
			value = unknownStyle.Render(f.Value)
		}
		s.WriteString(labelStyle.Render(f.Label+":") + value + "\n")
	}
	return s.String()
}
