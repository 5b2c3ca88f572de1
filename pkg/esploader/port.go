// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package esploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.bug.st/serial"
)

// Port is the byte stream a Transport drives
type Port interface {
	io.Reader
	io.Writer
	io.Closer
}

// controlLines is implemented by ports wired to the chip's EN and IO0 pins
// through DTR and RTS
type controlLines interface {
	SetDTR(dtr bool) error
	SetRTS(rts bool) error
}

// baudSetter is implemented by ports whose line speed can change after open
type baudSetter interface {
	SetBaudRate(baud int) error
}

// portOpener opens a port by name at an initial baud rate
type portOpener func(ctx context.Context, name string, baud int) (Port, error)

// openPort opens a serial device, or a WebSocket serial bridge when name is
// a ws:// or wss:// URL.
func openPort(ctx context.Context, name string, baud int) (Port, error) {
	if strings.HasPrefix(name, "ws://") || strings.HasPrefix(name, "wss://") {
		return openWebSocketPort(ctx, name)
	}
	return openSerialPort(name, baud)
}

// serialPort wraps a local serial device
type serialPort struct {
	port serial.Port
	mode *serial.Mode
}

func openSerialPort(name string, baud int) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}

	return &serialPort{port: port, mode: mode}, nil
}

func (s *serialPort) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *serialPort) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *serialPort) Close() error {
	return s.port.Close()
}

func (s *serialPort) SetDTR(dtr bool) error {
	return s.port.SetDTR(dtr)
}

func (s *serialPort) SetRTS(rts bool) error {
	return s.port.SetRTS(rts)
}

func (s *serialPort) SetBaudRate(baud int) error {
	s.mode.BaudRate = baud
	return s.port.SetMode(s.mode)
}

// ErrConnectionClosed is returned by reads once the bridge socket is gone
var ErrConnectionClosed = errors.New("websocket bridge closed")

const (
	wsHandshakeTimeout = 10 * time.Second
	wsDialTimeout      = 15 * time.Second
	wsCloseGrace       = time.Second
)

// websocketPort carries raw serial bytes over binary WebSocket messages.
// A bridge has no DTR/RTS, so the chip must already be in download mode.
type websocketPort struct {
	conn    *websocket.Conn
	pending []byte
	err     error
}

func openWebSocketPort(ctx context.Context, rawURL string) (Port, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid bridge URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("unsupported bridge scheme %q (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout}

	ctx, cancel := context.WithTimeout(ctx, wsDialTimeout)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("bridge %s refused upgrade (HTTP %d): %w", u.Host, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("bridge %s unreachable: %w", u.Host, err)
	}

	return &websocketPort{conn: conn}, nil
}

// Read returns bytes from binary messages in order. Text messages are bridge
// chatter and are skipped.
func (w *websocketPort) Read(p []byte) (int, error) {
	for len(w.pending) == 0 {
		if w.err != nil {
			return 0, w.err
		}
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.err = fmt.Errorf("%w: %v", ErrConnectionClosed, err)
			return 0, w.err
		}
		if messageType == websocket.BinaryMessage {
			w.pending = data
		}
	}

	n := copy(p, w.pending)
	w.pending = w.pending[n:]
	return n, nil
}

func (w *websocketPort) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	}
	return len(p), nil
}

// Close says goodbye to the bridge before dropping the socket
func (w *websocketPort) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsCloseGrace))
	return w.conn.Close()
}
