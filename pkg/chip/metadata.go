// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package chip

import (
	"context"
	"fmt"
	"strings"
)

// DeviceHandle is whatever the protocol client hands back for a connected
// device. Every capability is optional and discovered by type assertion;
// a nil handle behaves like a handle with no capabilities.
type DeviceHandle interface{}

// ChipNamer reports a display name. An empty name counts as absent.
type ChipNamer interface {
	ChipName() string
}

// RevisionReporter reports the silicon revision, if known.
type RevisionReporter interface {
	ChipRevision() (rev int, ok bool)
}

// MACReader reads the six factory MAC bytes from the device.
type MACReader interface {
	ReadMAC(ctx context.Context) ([]byte, error)
}

// Metadata describes an identified device. Nil pointer fields are unknown.
//
// Features, package, vendor, capacity and block version fields exist for
// richer chip families and are never set for ESP8266 or ESP32.
type Metadata struct {
	Description         string    `json:"description" cbor:"description"`
	Features            *[]string `json:"features,omitempty" cbor:"features,omitempty"`
	CrystalFrequencyMHz int       `json:"crystal_freq_mhz" cbor:"crystal_freq_mhz"`
	MACAddress          *string   `json:"mac_address,omitempty" cbor:"mac_address,omitempty"`
	PkgVersion          *int      `json:"pkg_version,omitempty" cbor:"pkg_version,omitempty"`
	ChipRevision        *int      `json:"chip_revision,omitempty" cbor:"chip_revision,omitempty"`
	MajorVersion        *int      `json:"major_version,omitempty" cbor:"major_version,omitempty"`
	MinorVersion        *int      `json:"minor_version,omitempty" cbor:"minor_version,omitempty"`
	FlashVendor         *string   `json:"flash_vendor,omitempty" cbor:"flash_vendor,omitempty"`
	PSRAMVendor         *string   `json:"psram_vendor,omitempty" cbor:"psram_vendor,omitempty"`
	FlashCapacity       *int      `json:"flash_cap,omitempty" cbor:"flash_cap,omitempty"`
	PSRAMCapacity       *int      `json:"psram_cap,omitempty" cbor:"psram_cap,omitempty"`
	BlockVersionMajor   *int      `json:"block_version_major,omitempty" cbor:"block_version_major,omitempty"`
	BlockVersionMinor   *int      `json:"block_version_minor,omitempty" cbor:"block_version_minor,omitempty"`
}

// MetadataReader extracts Metadata for one family. It never fails.
type MetadataReader func(ctx context.Context, h DeviceHandle) Metadata

// ReadESP8266Metadata extracts Metadata from an ESP8266 handle.
func ReadESP8266Metadata(ctx context.Context, h DeviceHandle) Metadata {
	return profiles[FamilyESP8266].ExtractMetadata(ctx, h)
}

// ReadESP32Metadata extracts Metadata from an ESP32 handle.
func ReadESP32Metadata(ctx context.Context, h DeviceHandle) Metadata {
	return profiles[FamilyESP32].ExtractMetadata(ctx, h)
}

// ExtractMetadata builds a fresh Metadata record for h using the profile's
// constants as fallbacks. Missing, failing or panicking capabilities leave
// the corresponding field at its fallback.
func (p Profile) ExtractMetadata(ctx context.Context, h DeviceHandle) Metadata {
	md := Metadata{
		Description:         p.ChipName,
		CrystalFrequencyMHz: p.CrystalFrequencyMHz,
	}

	if namer, ok := h.(ChipNamer); ok {
		guarded(func() {
			if name := namer.ChipName(); name != "" {
				md.Description = name
			}
		})
	}

	if rr, ok := h.(RevisionReporter); ok {
		guarded(func() {
			if rev, ok := rr.ChipRevision(); ok {
				md.ChipRevision = &rev
			}
		})
	}

	if reader, ok := h.(MACReader); ok {
		guarded(func() {
			if mac, ok := readMAC(ctx, reader); ok {
				md.MACAddress = &mac
			}
		})
	}

	return md
}

// guarded runs one capability call. A panic abandons only that call.
func guarded(fn func()) {
	defer func() {
		_ = recover()
	}()
	fn()
}

// readMAC is the only place a device read happens during extraction.
// Errors and nil results are absent; an empty result formats as "".
func readMAC(ctx context.Context, reader MACReader) (string, bool) {
	raw, err := reader.ReadMAC(ctx)
	if err != nil || raw == nil {
		return "", false
	}
	return FormatMAC(raw), true
}

// FormatMAC renders up to the first six bytes of raw as colon separated
// lowercase hex. Shorter input is formatted as-is, not padded.
func FormatMAC(raw []byte) string {
	if len(raw) > 6 {
		raw = raw[:6]
	}
	parts := make([]string, len(raw))
	for i, b := range raw {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, ":")
}
