// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package chip

import "fmt"

// Field is one labelled line of a formatted record
type Field struct {
	Label string
	Value string
}

// MetadataFields returns the known fields of md in display order.
// Unknown optional fields are reported as "unknown" for the two fields
// every family can supply and omitted otherwise.
func MetadataFields(md Metadata) []Field {
	fields := []Field{
		{"Chip", md.Description},
		{"Crystal", fmt.Sprintf("%d MHz", md.CrystalFrequencyMHz)},
		{"MAC", stringOr(md.MACAddress, "unknown")},
		{"Revision", intOr(md.ChipRevision, "unknown")},
	}

	if md.Features != nil {
		fields = append(fields, Field{"Features", fmt.Sprintf("%v", *md.Features)})
	}
	if md.PkgVersion != nil {
		fields = append(fields, Field{"Package", fmt.Sprintf("%d", *md.PkgVersion)})
	}
	if md.MajorVersion != nil && md.MinorVersion != nil {
		fields = append(fields, Field{"Version", fmt.Sprintf("v%d.%d", *md.MajorVersion, *md.MinorVersion)})
	}
	if md.FlashVendor != nil {
		fields = append(fields, Field{"Flash vendor", *md.FlashVendor})
	}
	if md.FlashCapacity != nil {
		fields = append(fields, Field{"Flash size", fmt.Sprintf("%d MB", *md.FlashCapacity)})
	}
	if md.PSRAMVendor != nil {
		fields = append(fields, Field{"PSRAM vendor", *md.PSRAMVendor})
	}
	if md.PSRAMCapacity != nil {
		fields = append(fields, Field{"PSRAM size", fmt.Sprintf("%d MB", *md.PSRAMCapacity)})
	}
	if md.BlockVersionMajor != nil && md.BlockVersionMinor != nil {
		fields = append(fields, Field{"eFuse block", fmt.Sprintf("v%d.%d", *md.BlockVersionMajor, *md.BlockVersionMinor)})
	}

	return fields
}

// FormatMetadata formats md into a human-readable string
func FormatMetadata(md Metadata) string {
	result := ""
	for _, f := range MetadataFields(md) {
		result += fmt.Sprintf("%-9s %s\n", f.Label+":", f.Value)
	}
	return result
}

// ProfileFields returns the constant table of p in display order
func ProfileFields(p Profile) []Field {
	return []Field{
		{"Chip", p.ChipName},
		{"Image chip ID", fmt.Sprintf("0x%08X", p.ImageChipID)},
		{"eFuse base", fmt.Sprintf("0x%08X", p.EfuseBase)},
		{"MAC eFuse", fmt.Sprintf("0x%08X", p.MacEfuseRegister)},
		{"UART CLKDIV", fmt.Sprintf("0x%08X", p.UartClockDivisorRegister)},
		{"CLKDIV mask", fmt.Sprintf("0x%05X", p.UartClockDivisorMask)},
		{"UART date", fmt.Sprintf("0x%08X", p.UartDateRegisterAddress)},
		{"Write size", fmt.Sprintf("0x%X", p.FlashWriteSize)},
		{"Bootloader", fmt.Sprintf("0x%X", p.BootloaderFlashOffset)},
		{"Crystal", fmt.Sprintf("%d MHz", p.CrystalFrequencyMHz)},
		{"Detect magic", fmt.Sprintf("0x%08X", p.ChipDetectMagic)},
	}
}

func stringOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func intOr(v *int, fallback string) string {
	if v == nil {
		return fallback
	}
	return fmt.Sprintf("%d", *v)
}
