// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package esploader

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/juju/errors"
)

// ErrNotOpen is returned by Transport operations before Open
var ErrNotOpen = errors.New("transport is not open")

const frameQueueSize = 64

// Transport moves SLIP frames over a Port. The port is opened lazily by
// Open so that constructing a Transport never touches the device.
type Transport struct {
	name  string
	baud  int
	open  portOpener
	trace *log.Logger

	mu       sync.Mutex
	port     Port
	frames   chan []byte
	readDone chan struct{}
	readErr  error
}

func newTransport(name string, baud int, open portOpener, trace *log.Logger) *Transport {
	return &Transport{name: name, baud: baud, open: open, trace: trace}
}

// Name returns the port name the transport is bound to
func (t *Transport) Name() string {
	return t.name
}

// Baud returns the current line speed
func (t *Transport) Baud() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.baud
}

// Open opens the port and starts the frame reader. Opening an already open
// transport is a no-op.
func (t *Transport) Open(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port != nil {
		return nil
	}

	port, err := t.open(ctx, t.name, t.baud)
	if err != nil {
		return errors.Trace(err)
	}

	t.port = port
	t.frames = make(chan []byte, frameQueueSize)
	t.readDone = make(chan struct{})
	t.readErr = nil
	go t.readLoop(port, t.frames, t.readDone)

	t.trace.Printf("opened %s @ %d baud", t.name, t.baud)
	return nil
}

// Close closes the port. Closing a transport that is not open is a no-op.
func (t *Transport) Close() error {
	t.mu.Lock()
	port := t.port
	t.port = nil
	t.mu.Unlock()

	if port == nil {
		return nil
	}
	t.trace.Printf("closing %s", t.name)
	return port.Close()
}

func (t *Transport) readLoop(port Port, frames chan<- []byte, done chan<- struct{}) {
	defer close(done)

	decoder := NewSLIPDecoder()
	buf := make([]byte, 256)

	for {
		n, err := port.Read(buf)
		if n > 0 {
			t.trace.Printf("RX %3d: % x", n, buf[:n])
			for i := 0; i < n; i++ {
				frame, decodeErr := decoder.DecodeByte(buf[i])
				if decodeErr != nil {
					t.trace.Printf("RX framing error: %v", decodeErr)
					continue
				}
				if frame == nil {
					continue
				}
				select {
				case frames <- frame:
				default:
					t.trace.Printf("RX queue full, dropping %d byte frame", len(frame))
				}
			}
		}
		if err != nil {
			t.mu.Lock()
			t.readErr = err
			t.mu.Unlock()
			return
		}
	}
}

// WriteFrame SLIP-encodes packet and writes it in one call
func (t *Transport) WriteFrame(packet []byte) error {
	t.mu.Lock()
	port := t.port
	t.mu.Unlock()

	if port == nil {
		return ErrNotOpen
	}

	frame := EncodeSLIP(packet)
	t.trace.Printf("TX %3d: % x", len(frame), frame)
	_, err := port.Write(frame)
	return errors.Trace(err)
}

// ReadFrame waits for the next decoded frame
func (t *Transport) ReadFrame(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	frames, done := t.frames, t.readDone
	t.mu.Unlock()

	if frames == nil {
		return nil, ErrNotOpen
	}

	select {
	case frame := <-frames:
		return frame, nil
	case <-done:
		select {
		case frame := <-frames:
			return frame, nil
		default:
		}
		t.mu.Lock()
		err := t.readErr
		t.mu.Unlock()
		if err == nil {
			err = io.EOF
		}
		return nil, errors.Annotate(err, "read failed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Flush discards frames already received
func (t *Transport) Flush() {
	t.mu.Lock()
	frames := t.frames
	t.mu.Unlock()

	if frames == nil {
		return
	}
	for {
		select {
		case <-frames:
		default:
			return
		}
	}
}

// HasControlLines reports whether the open port can drive DTR and RTS
func (t *Transport) HasControlLines() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.port.(controlLines)
	return ok
}

// ResetIntoBootloader performs the classic DTR/RTS sequence that holds IO0
// low while releasing EN. Ports without control lines are left alone.
func (t *Transport) ResetIntoBootloader(ctx context.Context) error {
	t.mu.Lock()
	lines, ok := t.port.(controlLines)
	t.mu.Unlock()

	if !ok {
		return nil
	}

	steps := []struct {
		dtr, rts bool
		hold     time.Duration
	}{
		{false, true, 100 * time.Millisecond}, // EN low
		{true, false, 50 * time.Millisecond},  // EN high, IO0 low
		{false, false, 0},                     // release IO0
	}

	for _, s := range steps {
		if err := lines.SetDTR(s.dtr); err != nil {
			return errors.Annotate(err, "failed to set DTR")
		}
		if err := lines.SetRTS(s.rts); err != nil {
			return errors.Annotate(err, "failed to set RTS")
		}
		if s.hold == 0 {
			continue
		}
		select {
		case <-time.After(s.hold):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	t.trace.Printf("reset %s into download mode", t.name)
	return nil
}

// CanSetBaudRate reports whether the open port can change line speed
func (t *Transport) CanSetBaudRate() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.port.(baudSetter)
	return ok
}

// SetBaudRate changes the line speed of the open port
func (t *Transport) SetBaudRate(baud int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	setter, ok := t.port.(baudSetter)
	if !ok {
		return errors.Errorf("%s cannot change baud rate", t.name)
	}
	if err := setter.SetBaudRate(baud); err != nil {
		return errors.Annotatef(err, "failed to set baud rate %d", baud)
	}
	t.baud = baud
	t.trace.Printf("baud rate now %d", baud)
	return nil
}
