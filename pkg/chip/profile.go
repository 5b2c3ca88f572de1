// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package chip holds the per-family constant tables for supported Espressif
// chips and the uniform routine that turns a live device handle into a
// Metadata record.
//
// Register addresses are as mapped in the device's own address space and
// are consumed by the loader and flashing layers.
package chip

import (
	"fmt"
	"strings"
)

// ESP8266 constants
const (
	ESP8266ChipName              = "ESP8266"
	ESP8266ImageChipID           = 0xfff0c101
	ESP8266EfuseBase             = 0x3ff00050
	ESP8266MacEfuseReg           = ESP8266EfuseBase
	ESP8266UartClkDivReg         = 0x60000014
	ESP8266UartClkDivMask        = 0xfffff
	ESP8266UartDateRegAddr       = 0x60000078
	ESP8266FlashWriteSize        = 0x400
	ESP8266BootloaderFlashOffset = 0x0
	ESP8266CrystalFrequencyMHz   = 26
	ESP8266ChipDetectMagic       = 0xfff0c101
)

// ESP32 constants
const (
	ESP32ChipName              = "ESP32"
	ESP32ImageChipID           = 50
	ESP32EfuseBase             = 0x3ff5a000
	ESP32MacEfuseReg           = ESP32EfuseBase + 0x50
	ESP32UartClkDivReg         = 0x3ff40014
	ESP32UartClkDivMask        = 0xfffff
	ESP32UartDateRegAddr       = 0x3ff40078
	ESP32FlashWriteSize        = 0x400
	ESP32BootloaderFlashOffset = 0x1000
	ESP32CrystalFrequencyMHz   = 40
	ESP32ChipDetectMagic       = 0x00f01d83
)

// Family identifies a supported chip family
type Family int

const (
	FamilyESP8266 Family = iota
	FamilyESP32
)

func (f Family) String() string {
	switch f {
	case FamilyESP8266:
		return ESP8266ChipName
	case FamilyESP32:
		return ESP32ChipName
	default:
		return fmt.Sprintf("???(%d)", int(f))
	}
}

// Profile is the constant table for one chip family. Profiles are handed
// out by value; the table itself is never modified.
type Profile struct {
	Family                   Family
	ChipName                 string
	ImageChipID              uint32
	EfuseBase                uint32
	MacEfuseRegister         uint32
	UartClockDivisorRegister uint32
	UartClockDivisorMask     uint32
	UartDateRegisterAddress  uint32
	FlashWriteSize           uint32
	BootloaderFlashOffset    uint32
	CrystalFrequencyMHz      int
	ChipDetectMagic          uint32
}

var profiles = [...]Profile{
	FamilyESP8266: {
		Family:                   FamilyESP8266,
		ChipName:                 ESP8266ChipName,
		ImageChipID:              ESP8266ImageChipID,
		EfuseBase:                ESP8266EfuseBase,
		MacEfuseRegister:         ESP8266MacEfuseReg,
		UartClockDivisorRegister: ESP8266UartClkDivReg,
		UartClockDivisorMask:     ESP8266UartClkDivMask,
		UartDateRegisterAddress:  ESP8266UartDateRegAddr,
		FlashWriteSize:           ESP8266FlashWriteSize,
		BootloaderFlashOffset:    ESP8266BootloaderFlashOffset,
		CrystalFrequencyMHz:      ESP8266CrystalFrequencyMHz,
		ChipDetectMagic:          ESP8266ChipDetectMagic,
	},
	FamilyESP32: {
		Family:                   FamilyESP32,
		ChipName:                 ESP32ChipName,
		ImageChipID:              ESP32ImageChipID,
		EfuseBase:                ESP32EfuseBase,
		MacEfuseRegister:         ESP32MacEfuseReg,
		UartClockDivisorRegister: ESP32UartClkDivReg,
		UartClockDivisorMask:     ESP32UartClkDivMask,
		UartDateRegisterAddress:  ESP32UartDateRegAddr,
		FlashWriteSize:           ESP32FlashWriteSize,
		BootloaderFlashOffset:    ESP32BootloaderFlashOffset,
		CrystalFrequencyMHz:      ESP32CrystalFrequencyMHz,
		ChipDetectMagic:          ESP32ChipDetectMagic,
	},
}

// ESP8266Profile returns the ESP8266 constant table
func ESP8266Profile() Profile { return profiles[FamilyESP8266] }

// ESP32Profile returns the ESP32 constant table
func ESP32Profile() Profile { return profiles[FamilyESP32] }

// Profiles returns every supported profile, ordered by Family.
func Profiles() []Profile {
	out := make([]Profile, len(profiles))
	copy(out, profiles[:])
	return out
}

// Lookup returns the profile for a family.
func Lookup(f Family) (Profile, bool) {
	if f < 0 || int(f) >= len(profiles) {
		return Profile{}, false
	}
	return profiles[f], true
}

// LookupName finds a profile by chip name, ignoring case.
func LookupName(name string) (Profile, bool) {
	for _, p := range profiles {
		if strings.EqualFold(p.ChipName, name) {
			return p, true
		}
	}
	return Profile{}, false
}

// LookupMagic finds the profile whose ROM reports magic at the chip
// detection register.
func LookupMagic(magic uint32) (Profile, bool) {
	for _, p := range profiles {
		if p.ChipDetectMagic == magic {
			return p, true
		}
	}
	return Profile{}, false
}

// LookupImageChipID finds the profile tagged with id in firmware image headers.
func LookupImageChipID(id uint32) (Profile, bool) {
	for _, p := range profiles {
		if p.ImageChipID == id {
			return p, true
		}
	}
	return Profile{}, false
}

func (p Profile) String() string {
	return p.ChipName
}
