// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package chip

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

// ============================================================
// Test Handles
// ============================================================

type emptyHandle struct{}

type nameHandle struct{ name string }

func (h nameHandle) ChipName() string { return h.name }

type revisionHandle struct {
	rev int
	ok  bool
}

func (h revisionHandle) ChipRevision() (int, bool) { return h.rev, h.ok }

type macHandle struct {
	raw   []byte
	err   error
	panic bool
	calls int
}

func (h *macHandle) ReadMAC(ctx context.Context) ([]byte, error) {
	h.calls++
	if h.panic {
		panic("device went away")
	}
	return h.raw, h.err
}

type panickyName struct{}

func (panickyName) ChipName() string { panic("device went away") }

type panickyRevision struct{}

func (panickyRevision) ChipRevision() (int, bool) { panic("device went away") }

// pointerHandle implements every capability on a pointer receiver
type pointerHandle struct {
	name string
	rev  int
	mac  []byte
}

func (h *pointerHandle) ChipName() string { return h.name }
func (h *pointerHandle) ChipRevision() (int, bool) { return h.rev, true }
func (h *pointerHandle) ReadMAC(ctx context.Context) ([]byte, error) { return h.mac, nil }

type fullHandle struct {
	nameHandle
	revisionHandle
	*macHandle
}

// ============================================================
// Profile Table Tests
// ============================================================

func TestProfiles_Constants(t *testing.T) {
	tests := []struct {
		profile    Profile
		name       string
		crystal    int
		efuseBase  uint32
		macReg     uint32
		bootloader uint32
		imageID    uint32
	}{
		{ESP8266Profile(), "ESP8266", 26, 0x3ff00050, 0x3ff00050, 0x0, 0xfff0c101},
		{ESP32Profile(), "ESP32", 40, 0x3ff5a000, 0x3ff5a050, 0x1000, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.profile
			if p.ChipName != tt.name {
				t.Errorf("ChipName = %q, want %q", p.ChipName, tt.name)
			}
			if p.CrystalFrequencyMHz != tt.crystal {
				t.Errorf("CrystalFrequencyMHz = %d, want %d", p.CrystalFrequencyMHz, tt.crystal)
			}
			if p.EfuseBase != tt.efuseBase {
				t.Errorf("EfuseBase = 0x%08X, want 0x%08X", p.EfuseBase, tt.efuseBase)
			}
			if p.MacEfuseRegister != tt.macReg {
				t.Errorf("MacEfuseRegister = 0x%08X, want 0x%08X", p.MacEfuseRegister, tt.macReg)
			}
			if p.BootloaderFlashOffset != tt.bootloader {
				t.Errorf("BootloaderFlashOffset = 0x%X, want 0x%X", p.BootloaderFlashOffset, tt.bootloader)
			}
			if p.ImageChipID != tt.imageID {
				t.Errorf("ImageChipID = 0x%X, want 0x%X", p.ImageChipID, tt.imageID)
			}
			if p.FlashWriteSize != 0x400 {
				t.Errorf("FlashWriteSize = 0x%X, want 0x400", p.FlashWriteSize)
			}
			if p.UartClockDivisorMask != 0xfffff {
				t.Errorf("UartClockDivisorMask = 0x%X, want 0xFFFFF", p.UartClockDivisorMask)
			}
		})
	}
}

func TestProfiles_UniqueNames(t *testing.T) {
	seen := make(map[string]bool)
	for _, p := range Profiles() {
		if seen[p.ChipName] {
			t.Errorf("duplicate chip name %q", p.ChipName)
		}
		seen[p.ChipName] = true
	}
	if len(seen) != 2 {
		t.Errorf("expected 2 profiles, got %d", len(seen))
	}
}

func TestProfiles_ReturnsCopies(t *testing.T) {
	ps := Profiles()
	ps[0].ChipName = "mutated"

	p := ESP32Profile()
	p.FlashWriteSize = 1

	if ESP8266Profile().ChipName != ESP8266ChipName {
		t.Error("mutating Profiles() result changed the table")
	}
	if ESP32Profile().FlashWriteSize != ESP32FlashWriteSize {
		t.Error("mutating a returned profile changed the table")
	}
}

func TestLookup(t *testing.T) {
	if p, ok := Lookup(FamilyESP32); !ok || p.ChipName != "ESP32" {
		t.Errorf("Lookup(FamilyESP32) = %v, %v", p, ok)
	}
	if _, ok := Lookup(Family(42)); ok {
		t.Error("Lookup of unknown family should fail")
	}
	if _, ok := Lookup(Family(-1)); ok {
		t.Error("Lookup of negative family should fail")
	}

	if p, ok := LookupName("esp8266"); !ok || p.Family != FamilyESP8266 {
		t.Errorf("LookupName(esp8266) = %v, %v", p, ok)
	}
	if _, ok := LookupName("ESP32-S3"); ok {
		t.Error("LookupName of unsupported chip should fail")
	}

	if p, ok := LookupMagic(0x00f01d83); !ok || p.Family != FamilyESP32 {
		t.Errorf("LookupMagic(ESP32) = %v, %v", p, ok)
	}
	if p, ok := LookupMagic(0xfff0c101); !ok || p.Family != FamilyESP8266 {
		t.Errorf("LookupMagic(ESP8266) = %v, %v", p, ok)
	}
	if _, ok := LookupMagic(0xdeadbeef); ok {
		t.Error("LookupMagic of unknown value should fail")
	}

	if p, ok := LookupImageChipID(50); !ok || p.Family != FamilyESP32 {
		t.Errorf("LookupImageChipID(50) = %v, %v", p, ok)
	}
}

func TestFamily_String(t *testing.T) {
	if FamilyESP8266.String() != "ESP8266" {
		t.Errorf("FamilyESP8266.String() = %q", FamilyESP8266.String())
	}
	if got := Family(9).String(); got != "???(9)" {
		t.Errorf("Family(9).String() = %q", got)
	}
}

// ============================================================
// Metadata Extraction Tests
// ============================================================

func TestExtractMetadata_EmptyHandle(t *testing.T) {
	for _, p := range Profiles() {
		t.Run(p.ChipName, func(t *testing.T) {
			for _, h := range []DeviceHandle{emptyHandle{}, nil} {
				md := p.ExtractMetadata(context.Background(), h)

				if md.Description != p.ChipName {
					t.Errorf("Description = %q, want %q", md.Description, p.ChipName)
				}
				if md.CrystalFrequencyMHz != p.CrystalFrequencyMHz {
					t.Errorf("CrystalFrequencyMHz = %d, want %d", md.CrystalFrequencyMHz, p.CrystalFrequencyMHz)
				}
				if md.MACAddress != nil {
					t.Errorf("MACAddress = %q, want unset", *md.MACAddress)
				}
				if md.ChipRevision != nil {
					t.Errorf("ChipRevision = %d, want unset", *md.ChipRevision)
				}
				assertForwardFieldsUnset(t, md)
			}
		})
	}
}

func TestExtractMetadata_FamilyReaders(t *testing.T) {
	readers := []struct {
		name    string
		read    MetadataReader
		crystal int
	}{
		{"ESP8266", ReadESP8266Metadata, 26},
		{"ESP32", ReadESP32Metadata, 40},
	}

	for _, r := range readers {
		t.Run(r.name, func(t *testing.T) {
			md := r.read(context.Background(), emptyHandle{})
			if md.Description != r.name {
				t.Errorf("Description = %q, want %q", md.Description, r.name)
			}
			if md.CrystalFrequencyMHz != r.crystal {
				t.Errorf("CrystalFrequencyMHz = %d, want %d", md.CrystalFrequencyMHz, r.crystal)
			}
		})
	}
}

func TestExtractMetadata_ChipNameOverrides(t *testing.T) {
	for _, p := range Profiles() {
		md := p.ExtractMetadata(context.Background(), nameHandle{"X"})
		if md.Description != "X" {
			t.Errorf("%s: Description = %q, want %q", p.ChipName, md.Description, "X")
		}
	}
}

func TestExtractMetadata_EmptyChipNameFallsBack(t *testing.T) {
	md := ESP32Profile().ExtractMetadata(context.Background(), nameHandle{""})
	if md.Description != "ESP32" {
		t.Errorf("Description = %q, want ESP32", md.Description)
	}
}

func TestExtractMetadata_CrystalNeverFromHandle(t *testing.T) {
	h := fullHandle{nameHandle{"ESP32-D0WD"}, revisionHandle{3, true}, &macHandle{raw: []byte{1, 2, 3, 4, 5, 6}}}
	md := ESP8266Profile().ExtractMetadata(context.Background(), h)
	if md.CrystalFrequencyMHz != 26 {
		t.Errorf("CrystalFrequencyMHz = %d, want 26", md.CrystalFrequencyMHz)
	}
}

func TestExtractMetadata_Revision(t *testing.T) {
	tests := []struct {
		name    string
		handle  DeviceHandle
		want    int
		present bool
	}{
		{"revision reported", revisionHandle{1, true}, 1, true},
		{"revision zero", revisionHandle{0, true}, 0, true},
		{"revision unknown", revisionHandle{7, false}, 0, false},
		{"no capability", emptyHandle{}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := ESP32Profile().ExtractMetadata(context.Background(), tt.handle)
			if (md.ChipRevision != nil) != tt.present {
				t.Fatalf("ChipRevision present = %v, want %v", md.ChipRevision != nil, tt.present)
			}
			if tt.present && *md.ChipRevision != tt.want {
				t.Errorf("ChipRevision = %d, want %d", *md.ChipRevision, tt.want)
			}
		})
	}
}

func TestExtractMetadata_MAC(t *testing.T) {
	tests := []struct {
		name   string
		handle *macHandle
		want   string
		unset  bool
	}{
		{"six bytes", &macHandle{raw: []byte{0, 1, 2, 3, 4, 5}}, "00:01:02:03:04:05", false},
		{"high bytes lowercase", &macHandle{raw: []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}}, "aa:bb:cc:dd:ee:ff", false},
		{"truncated to six", &macHandle{raw: []byte{1, 2, 3, 4, 5, 6, 7, 8}}, "01:02:03:04:05:06", false},
		{"short read kept short", &macHandle{raw: []byte{10, 20}}, "0a:14", false},
		{"read error", &macHandle{err: errors.New("timeout waiting for response")}, "", true},
		{"read panics", &macHandle{panic: true}, "", true},
		{"nil result", &macHandle{}, "", true},
		{"empty result", &macHandle{raw: []byte{}}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := ESP8266Profile().ExtractMetadata(context.Background(), tt.handle)
			if tt.handle.calls != 1 {
				t.Errorf("ReadMAC called %d times, want 1", tt.handle.calls)
			}
			if tt.unset {
				if md.MACAddress != nil {
					t.Errorf("MACAddress = %q, want unset", *md.MACAddress)
				}
				return
			}
			if md.MACAddress == nil {
				t.Fatal("MACAddress unset")
			}
			if *md.MACAddress != tt.want {
				t.Errorf("MACAddress = %q, want %q", *md.MACAddress, tt.want)
			}
		})
	}
}

func TestExtractMetadata_PanickingCapabilities(t *testing.T) {
	tests := []struct {
		name   string
		handle DeviceHandle
	}{
		{"ChipName panics", panickyName{}},
		{"ChipRevision panics", panickyRevision{}},
		{"ReadMAC panics", &macHandle{panic: true}},
		{"typed nil pointer", (*pointerHandle)(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := ESP32Profile().ExtractMetadata(context.Background(), tt.handle)
			if md.Description != "ESP32" {
				t.Errorf("Description = %q, want ESP32", md.Description)
			}
			if md.CrystalFrequencyMHz != 40 {
				t.Errorf("CrystalFrequencyMHz = %d, want 40", md.CrystalFrequencyMHz)
			}
			if md.ChipRevision != nil || md.MACAddress != nil {
				t.Errorf("metadata = %+v, want revision and MAC unset", md)
			}
		})
	}
}

func TestExtractMetadata_PanicKeepsOtherFields(t *testing.T) {
	h := struct {
		panickyName
		revisionHandle
		*macHandle
	}{panickyName{}, revisionHandle{2, true}, &macHandle{raw: []byte{1, 2, 3, 4, 5, 6}}}

	md := ESP32Profile().ExtractMetadata(context.Background(), h)
	if md.Description != "ESP32" {
		t.Errorf("Description = %q, want ESP32", md.Description)
	}
	if md.ChipRevision == nil || *md.ChipRevision != 2 {
		t.Errorf("ChipRevision = %v, want 2", md.ChipRevision)
	}
	if md.MACAddress == nil || *md.MACAddress != "01:02:03:04:05:06" {
		t.Errorf("MACAddress = %v", md.MACAddress)
	}
}

func TestExtractMetadata_Idempotent(t *testing.T) {
	h := fullHandle{nameHandle{"ESP32-D0WD"}, revisionHandle{1, true}, &macHandle{raw: []byte{0x24, 0x0a, 0xc4, 0x12, 0x34, 0x56}}}

	first := ESP32Profile().ExtractMetadata(context.Background(), h)
	second := ESP32Profile().ExtractMetadata(context.Background(), h)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("records differ:\n%+v\n%+v", first, second)
	}
	if first.MACAddress == second.MACAddress {
		t.Error("records share a MAC pointer; each extraction must build a fresh record")
	}
}

func assertForwardFieldsUnset(t *testing.T, md Metadata) {
	t.Helper()
	if md.Features != nil || md.PkgVersion != nil || md.MajorVersion != nil || md.MinorVersion != nil ||
		md.FlashVendor != nil || md.PSRAMVendor != nil || md.FlashCapacity != nil || md.PSRAMCapacity != nil ||
		md.BlockVersionMajor != nil || md.BlockVersionMinor != nil {
		t.Errorf("forward-compatibility fields must be unset: %+v", md)
	}
}

// ============================================================
// Formatter Tests
// ============================================================

func TestFormatMAC(t *testing.T) {
	tests := []struct {
		raw  []byte
		want string
	}{
		{[]byte{0, 1, 2, 3, 4, 5}, "00:01:02:03:04:05"},
		{[]byte{10, 20}, "0a:14"},
		{[]byte{0xff}, "ff"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := FormatMAC(tt.raw); got != tt.want {
			t.Errorf("FormatMAC(%v) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestFormatMetadata(t *testing.T) {
	mac := "aa:bb:cc:dd:ee:ff"
	rev := 1
	out := FormatMetadata(Metadata{Description: "ESP32-D0WD", CrystalFrequencyMHz: 40, MACAddress: &mac, ChipRevision: &rev})

	for _, want := range []string{"ESP32-D0WD", "40 MHz", mac, "Revision: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out = FormatMetadata(ESP8266Profile().ExtractMetadata(context.Background(), nil))
	if !strings.Contains(out, "MAC:      unknown") {
		t.Errorf("expected unknown MAC line:\n%s", out)
	}
	if strings.Contains(out, "Flash") {
		t.Errorf("unset forward fields should be omitted:\n%s", out)
	}
}

func TestProfileFields(t *testing.T) {
	fields := ProfileFields(ESP32Profile())
	got := make(map[string]string)
	for _, f := range fields {
		got[f.Label] = f.Value
	}
	if got["Bootloader"] != "0x1000" {
		t.Errorf("Bootloader = %q", got["Bootloader"])
	}
	if got["eFuse base"] != "0x3FF5A000" {
		t.Errorf("eFuse base = %q", got["eFuse base"])
	}
}
