// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/helioflash/pkg/chip"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var chipsCmd = &cobra.Command{
	Use:   "chips",
	Short: "Show the supported chip families",
	Long: `Print the constant profile of every supported chip family: register
addresses, flash write block size, bootloader offset, crystal frequency and
the ROM magic value used to detect the family.`,
	RunE: runChips,
}

func init() {
	rootCmd.AddCommand(chipsCmd)
}

func runChips(cmd *cobra.Command, args []string) error {
	fmt.Println(renderChipTable(chip.Profiles()))
	return nil
}

// renderChipTable lays profiles out one column per family
func renderChipTable(profiles []chip.Profile) string {
	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true).
		Padding(0, 1)

	cellStyle := lipgloss.NewStyle().
		Padding(0, 1)

	labelStyle := cellStyle.
		Foreground(lipgloss.Color("241"))

	headers := []string{""}
	columns := make([][]chip.Field, len(profiles))
	for i, p := range profiles {
		headers = append(headers, p.ChipName)
		columns[i] = chip.ProfileFields(p)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return labelStyle
			default:
				return cellStyle
			}
		})

	if len(columns) == 0 {
		return t.Render()
	}
	// Skip the Chip row, it is already the header
	for r := 1; r < len(columns[0]); r++ {
		row := []string{columns[0][r].Label}
		for _, fields := range columns {
			row = append(row, fields[r].Value)
		}
		t.Row(row...)
	}
	return t.Render()
}
