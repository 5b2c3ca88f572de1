// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package esploader

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Thermoquad/helioflash/pkg/chip"
	"github.com/Thermoquad/helioflash/pkg/connection"
	"github.com/juju/errors"
)

// ROM command opcodes
const (
	opSync           = 0x08
	opReadReg        = 0x0A
	opChangeBaudrate = 0x0F
)

// Packet direction bytes
const (
	dirRequest  = 0x00
	dirResponse = 0x01
)

const (
	// ChipDetectMagicReg holds a per-family constant in every ROM
	ChipDetectMagicReg = 0x40001000

	// ROMBaudRate is the speed the ROM loader starts at
	ROMBaudRate = 115200

	packetHeaderSize = 8
	connectAttempts  = 7
	syncAttempts     = 5
	syncTimeout      = 100 * time.Millisecond
	commandTimeout   = 3 * time.Second
	baudSettleTime   = 50 * time.Millisecond
)

var syncPayload = append([]byte{0x07, 0x07, 0x12, 0x20}, bytes.Repeat([]byte{0x55}, 32)...)

// ErrNotConnected is returned by device reads before Connect succeeds
var ErrNotConnected = errors.New("loader is not connected")

// Loader talks to the ROM bootloader. After Connect it satisfies
// chip.ChipNamer, chip.RevisionReporter and chip.MACReader.
type Loader struct {
	transport   *Transport
	terminal    connection.Terminal
	desiredBaud int
	log         *log.Logger

	mu       sync.Mutex
	profile  *chip.Profile
	identity identity
}

// Connect opens the transport, syncs with the ROM, detects the chip family
// and switches to the desired baud rate when the ROM and port allow it.
func (l *Loader) Connect(ctx context.Context) (chip.Profile, error) {
	if err := l.transport.Open(ctx); err != nil {
		return chip.Profile{}, errors.Annotatef(err, "failed to open %s", l.transport.Name())
	}
	if !l.transport.HasControlLines() {
		l.log.Printf("%s has no control lines, device must already be in download mode", l.transport.Name())
	}

	l.write("Connecting...")
	err := l.sync(ctx)
	l.writeLine("")
	if err != nil {
		return chip.Profile{}, err
	}

	l.write("Detecting chip type... ")
	magic, err := l.ReadReg(ctx, ChipDetectMagicReg)
	if err != nil {
		l.writeLine("")
		return chip.Profile{}, errors.Annotate(err, "failed to read chip detect register")
	}
	profile, ok := chip.LookupMagic(magic)
	if !ok {
		l.writeLine("unknown")
		return chip.Profile{}, errors.Errorf("unsupported chip (magic value 0x%08X)", magic)
	}
	l.writeLine(profile.ChipName)

	ops, ok := families[profile.Family]
	if !ok {
		return chip.Profile{}, errors.Errorf("no loader support for %s", profile.ChipName)
	}
	id, err := ops.describe(ctx, l, profile)
	if err != nil {
		return chip.Profile{}, errors.Annotatef(err, "failed to identify %s", profile.ChipName)
	}

	l.mu.Lock()
	l.profile = &profile
	l.identity = id
	l.mu.Unlock()

	if id.revision != nil {
		l.writeLine(fmt.Sprintf("Chip is %s (revision %d)", id.name, *id.revision))
	} else {
		l.writeLine(fmt.Sprintf("Chip is %s", id.name))
	}

	if l.desiredBaud > 0 && l.desiredBaud != l.transport.Baud() {
		if err := l.changeBaud(ctx, profile, ops); err != nil {
			return chip.Profile{}, err
		}
	}
	return profile, nil
}

// Profile returns the detected profile
func (l *Loader) Profile() (chip.Profile, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.profile == nil {
		return chip.Profile{}, false
	}
	return *l.profile, true
}

// ChipName returns the detected chip description, empty before Connect
func (l *Loader) ChipName() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.identity.name
}

// ChipRevision returns the silicon revision when the family exposes one
func (l *Loader) ChipRevision() (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.identity.revision == nil {
		return 0, false
	}
	return *l.identity.revision, true
}

// ReadMAC reads the factory MAC address from eFuse
func (l *Loader) ReadMAC(ctx context.Context) ([]byte, error) {
	profile, ok := l.Profile()
	if !ok {
		return nil, ErrNotConnected
	}
	ops, ok := families[profile.Family]
	if !ok {
		return nil, errors.Errorf("no loader support for %s", profile.ChipName)
	}
	mac, err := ops.readMAC(ctx, l, profile)
	if err != nil {
		return nil, errors.Annotate(err, "failed to read MAC")
	}
	return mac, nil
}

// ReadReg reads a 32-bit register
func (l *Loader) ReadReg(ctx context.Context, addr uint32) (uint32, error) {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, addr)

	value, _, err := l.command(ctx, opReadReg, data, 0)
	if err != nil {
		return 0, errors.Trace(err)
	}
	l.log.Printf("READ_REG 0x%08X = 0x%08X", addr, value)
	return value, nil
}

func (l *Loader) sync(ctx context.Context) error {
	var lastErr error

	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if err := l.transport.ResetIntoBootloader(ctx); err != nil {
			return errors.Trace(err)
		}
		l.transport.Flush()

		for i := 1; i <= syncAttempts; i++ {
			l.log.Printf("sync attempt %d.%d", attempt, i)

			syncCtx, cancel := context.WithTimeout(ctx, syncTimeout)
			_, _, err := l.command(syncCtx, opSync, syncPayload, 0)
			cancel()

			if err == nil {
				l.log.Printf("synced")
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
		}
		l.write(".")
	}

	return errors.Annotatef(lastErr, "failed to connect to %s", l.transport.Name())
}

func (l *Loader) changeBaud(ctx context.Context, profile chip.Profile, ops familyOps) error {
	if !ops.changeBaud || !l.transport.CanSetBaudRate() {
		l.writeLine(fmt.Sprintf("Staying at %d baud (%s ROM or port cannot switch)", l.transport.Baud(), profile.ChipName))
		return nil
	}

	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data[0:4], uint32(l.desiredBaud))
	binary.LittleEndian.PutUint32(data[4:8], 0) // previous baud, 0 when talking to ROM

	if _, _, err := l.command(ctx, opChangeBaudrate, data, 0); err != nil {
		return errors.Annotate(err, "failed to change baud rate")
	}
	if err := l.transport.SetBaudRate(l.desiredBaud); err != nil {
		return errors.Trace(err)
	}

	select {
	case <-time.After(baudSettleTime):
	case <-ctx.Done():
		return ctx.Err()
	}
	l.transport.Flush()

	l.writeLine(fmt.Sprintf("Changed baud rate to %d", l.desiredBaud))
	return nil
}

// command sends one request and waits for the matching response. Frames
// for other opcodes (late SYNC replies, noise) are skipped.
func (l *Loader) command(ctx context.Context, op byte, data []byte, checksum uint32) (uint32, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	packet := make([]byte, packetHeaderSize+len(data))
	packet[0] = dirRequest
	packet[1] = op
	binary.LittleEndian.PutUint16(packet[2:4], uint16(len(data)))
	binary.LittleEndian.PutUint32(packet[4:8], checksum)
	copy(packet[packetHeaderSize:], data)

	if err := l.transport.WriteFrame(packet); err != nil {
		return 0, nil, errors.Annotatef(err, "failed to send %s", opName(op))
	}

	for {
		frame, err := l.transport.ReadFrame(ctx)
		if err != nil {
			return 0, nil, errors.Annotatef(err, "no response to %s", opName(op))
		}

		resp, ok := parseResponse(frame)
		if !ok || resp.op != op {
			l.log.Printf("ignoring %d byte frame while waiting for %s", len(frame), opName(op))
			continue
		}

		status, code, ok := resp.status()
		if !ok {
			return 0, nil, errors.Errorf("%s response too short (%d data bytes)", opName(op), len(resp.data))
		}
		if status != 0 {
			return 0, nil, &CommandError{Op: op, Status: status, Code: code}
		}
		return resp.value, resp.data, nil
	}
}

func (l *Loader) write(s string) {
	if l.terminal != nil {
		l.terminal.Write(s)
	}
}

func (l *Loader) writeLine(s string) {
	if l.terminal != nil {
		l.terminal.WriteLine(s)
	}
}

type response struct {
	op    byte
	value uint32
	data  []byte
}

func parseResponse(frame []byte) (response, bool) {
	if len(frame) < packetHeaderSize || frame[0] != dirResponse {
		return response{}, false
	}
	size := int(binary.LittleEndian.Uint16(frame[2:4]))
	if len(frame) < packetHeaderSize+size {
		return response{}, false
	}
	return response{
		op:    frame[1],
		value: binary.LittleEndian.Uint32(frame[4:8]),
		data:  frame[packetHeaderSize : packetHeaderSize+size],
	}, true
}

// status returns the status/error pair. The ESP8266 ROM appends two status
// bytes, the ESP32 ROM four (the last two reserved).
func (r response) status() (status, code byte, ok bool) {
	switch n := len(r.data); {
	case n >= 4:
		return r.data[n-4], r.data[n-3], true
	case n >= 2:
		return r.data[n-2], r.data[n-1], true
	default:
		return 0, 0, false
	}
}

func opName(op byte) string {
	switch op {
	case opSync:
		return "SYNC"
	case opReadReg:
		return "READ_REG"
	case opChangeBaudrate:
		return "CHANGE_BAUDRATE"
	default:
		return fmt.Sprintf("command 0x%02X", op)
	}
}
