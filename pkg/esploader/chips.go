// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package esploader

import (
	"context"
	"fmt"

	"github.com/Thermoquad/helioflash/pkg/chip"
	"github.com/juju/errors"
)

// RegReader reads a 32-bit word from the device's address space
type RegReader interface {
	ReadReg(ctx context.Context, addr uint32) (uint32, error)
}

// identity is what the loader learns about a chip beyond its family
type identity struct {
	name     string
	revision *int
}

// familyOps holds the reads that differ between families. Adding a family
// means adding a profile in package chip and an entry here.
type familyOps struct {
	describe func(ctx context.Context, rr RegReader, p chip.Profile) (identity, error)
	readMAC  func(ctx context.Context, rr RegReader, p chip.Profile) ([]byte, error)

	// ROM accepts CHANGE_BAUDRATE
	changeBaud bool
}

var families = map[chip.Family]familyOps{
	chip.FamilyESP8266: {
		describe: describeESP8266,
		readMAC:  readMACESP8266,
	},
	chip.FamilyESP32: {
		describe:   describeESP32,
		readMAC:    readMACESP32,
		changeBaud: true,
	},
}

func readWords(ctx context.Context, rr RegReader, addrs ...uint32) ([]uint32, error) {
	words := make([]uint32, len(addrs))
	for i, addr := range addrs {
		w, err := rr.ReadReg(ctx, addr)
		if err != nil {
			return nil, errors.Annotatef(err, "failed to read eFuse at 0x%08X", addr)
		}
		words[i] = w
	}
	return words, nil
}

// ============================================================
// ESP8266
// ============================================================

func describeESP8266(ctx context.Context, rr RegReader, p chip.Profile) (identity, error) {
	w, err := readWords(ctx, rr, p.EfuseBase, p.EfuseBase+8)
	if err != nil {
		return identity{}, err
	}
	// ESP8285 has flash in package; either marker bit identifies it
	if w[0]&(1<<4) != 0 || w[1]&(1<<16) != 0 {
		return identity{name: "ESP8285"}, nil
	}
	return identity{name: "ESP8266EX"}, nil
}

func readMACESP8266(ctx context.Context, rr RegReader, p chip.Profile) ([]byte, error) {
	base := p.MacEfuseRegister
	w, err := readWords(ctx, rr, base, base+4, base+12)
	if err != nil {
		return nil, err
	}
	mac0, mac1, mac3 := w[0], w[1], w[2]

	var oui []byte
	switch {
	case mac3 != 0:
		oui = []byte{byte(mac3 >> 16), byte(mac3 >> 8), byte(mac3)}
	case (mac1>>16)&0xff == 0:
		oui = []byte{0x18, 0xfe, 0x34}
	case (mac1>>16)&0xff == 1:
		oui = []byte{0xac, 0xd0, 0x74}
	default:
		return nil, errors.Errorf("unknown OUI in eFuse (0x%08X)", mac1)
	}

	return append(oui, byte(mac1>>8), byte(mac1), byte(mac0>>24)), nil
}

// ============================================================
// ESP32
// ============================================================

const esp32APBCtlDate = 0x3ff6607c

var esp32Packages = map[uint32]string{
	0: "ESP32-D0WDQ6",
	1: "ESP32-D0WD",
	2: "ESP32-D2WD",
	4: "ESP32-U4WDH",
	5: "ESP32-PICO-D4",
	6: "ESP32-PICO-V3-02",
}

func describeESP32(ctx context.Context, rr RegReader, p chip.Profile) (identity, error) {
	w, err := readWords(ctx, rr, p.EfuseBase+12, p.EfuseBase+20)
	if err != nil {
		return identity{}, err
	}
	word3, word5 := w[0], w[1]

	name, ok := esp32Packages[(word3>>9)&0x7]
	if !ok {
		name = fmt.Sprintf("ESP32 (package %d)", (word3>>9)&0x7)
	}

	bits := (word3>>15)&1 | ((word5>>20)&1)<<1
	if bits == 0x3 {
		apb, err := rr.ReadReg(ctx, esp32APBCtlDate)
		if err != nil {
			return identity{}, errors.Annotate(err, "failed to read APB_CTL_DATE")
		}
		bits |= ((apb >> 31) & 1) << 2
	}

	rev := 0
	switch bits {
	case 0x1:
		rev = 1
	case 0x3:
		rev = 2
	case 0x7:
		rev = 3
	}
	return identity{name: name, revision: &rev}, nil
}

func readMACESP32(ctx context.Context, rr RegReader, p chip.Profile) ([]byte, error) {
	w, err := readWords(ctx, rr, p.EfuseBase+4, p.EfuseBase+8)
	if err != nil {
		return nil, err
	}
	word1, word2 := w[0], w[1]
	return []byte{
		byte(word2 >> 8), byte(word2),
		byte(word1 >> 24), byte(word1 >> 16), byte(word1 >> 8), byte(word1),
	}, nil
}
