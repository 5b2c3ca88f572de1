// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package esploader

import "fmt"

// SLIP framing bytes
const (
	slipEnd    = 0xC0
	slipEsc    = 0xDB
	slipEscEnd = 0xDC
	slipEscEsc = 0xDD
)

// MaxFrameSize bounds a decoded frame; larger frames are discarded
const MaxFrameSize = 0x4000

// EncodeSLIP wraps data in END bytes, escaping END and ESC inside it.
func EncodeSLIP(data []byte) []byte {
	frame := make([]byte, 0, len(data)*2+2)
	frame = append(frame, slipEnd)
	for _, b := range data {
		switch b {
		case slipEnd:
			frame = append(frame, slipEsc, slipEscEnd)
		case slipEsc:
			frame = append(frame, slipEsc, slipEscEsc)
		default:
			frame = append(frame, b)
		}
	}
	return append(frame, slipEnd)
}

// SLIPDecoder reassembles frames from a byte stream. Bytes outside a frame
// (ROM boot messages, line noise) are ignored. After a framing error the
// rest of the corrupt frame is dropped up to and including its closing END.
type SLIPDecoder struct {
	inFrame    bool
	escapeNext bool
	discarding bool
	buffer     []byte
}

// NewSLIPDecoder creates a decoder waiting for the first END byte
func NewSLIPDecoder() *SLIPDecoder {
	return &SLIPDecoder{buffer: make([]byte, 0, 256)}
}

// Reset drops any partial frame and waits for the next opening END
func (d *SLIPDecoder) Reset() {
	d.inFrame = false
	d.escapeNext = false
	d.discarding = false
	d.buffer = d.buffer[:0]
}

// fail drops the current frame and skips to its closing END
func (d *SLIPDecoder) fail(err error) ([]byte, error) {
	d.Reset()
	d.discarding = true
	return nil, err
}

// DecodeByte feeds one byte. It returns a complete frame when b closes one,
// nil while a frame is incomplete, and an error when the frame is corrupt.
func (d *SLIPDecoder) DecodeByte(b byte) ([]byte, error) {
	if d.discarding {
		if b == slipEnd {
			d.discarding = false
		}
		return nil, nil
	}

	if b == slipEnd {
		if d.escapeNext {
			// This END closes the corrupt frame
			d.Reset()
			return nil, fmt.Errorf("END byte after ESC")
		}
		if !d.inFrame || len(d.buffer) == 0 {
			// Opening END, or back-to-back END bytes between frames
			d.inFrame = true
			return nil, nil
		}
		frame := make([]byte, len(d.buffer))
		copy(frame, d.buffer)
		d.Reset()
		return frame, nil
	}

	if !d.inFrame {
		return nil, nil
	}

	if d.escapeNext {
		d.escapeNext = false
		switch b {
		case slipEscEnd:
			b = slipEnd
		case slipEscEsc:
			b = slipEsc
		default:
			return d.fail(fmt.Errorf("invalid SLIP escape 0x%02X", b))
		}
	} else if b == slipEsc {
		d.escapeNext = true
		return nil, nil
	}

	if len(d.buffer) >= MaxFrameSize {
		return d.fail(fmt.Errorf("frame exceeds %d bytes", MaxFrameSize))
	}
	d.buffer = append(d.buffer, b)
	return nil, nil
}
