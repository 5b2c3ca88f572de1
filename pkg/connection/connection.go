// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package connection stands up a session with a device: it asks a host for
// a serial port and assembles a transport/loader pair bound to it through
// an injected client factory.
package connection

import (
	"context"
	"errors"

	"github.com/Thermoquad/helioflash/pkg/chip"
)

// ErrCapabilityUnavailable is returned when the environment offers no way
// to select a serial port.
var ErrCapabilityUnavailable = errors.New("serial port selection is not available in this environment")

// Options toggles diagnostic output. The zero value disables both.
type Options struct {
	DebugSerial  bool // log raw transport bytes
	DebugLogging bool // log protocol events
}

// ClientConfig is everything a ClientFactory needs to build a client
type ClientConfig struct {
	Port         PortInfo
	Terminal     Terminal
	DesiredBaud  int
	DebugSerial  bool
	DebugLogging bool
}

// Transport wraps the raw port. The owner of a Connection closes it.
type Transport interface {
	Name() string
	Close() error
}

// Loader is the protocol-level device handle. After a successful Connect
// it is expected to satisfy some of the chip.DeviceHandle capabilities.
type Loader interface {
	Connect(ctx context.Context) (chip.Profile, error)
}

// Client is what a ClientFactory produces
type Client struct {
	Transport Transport
	Loader    Loader
}

// ClientFactory builds a client without touching the device
type ClientFactory func(cfg ClientConfig) Client

// Connection is one established session
type Connection struct {
	Transport Transport
	Loader    Loader
}

// CreateConnection builds a client bound to port at baudRate. term receives
// human-readable diagnostics. No I/O happens here; the caller drives the
// loader and closes the transport.
func CreateConnection(factory ClientFactory, port PortInfo, baudRate int, term Terminal, opts Options) *Connection {
	client := factory(ClientConfig{
		Port:         port,
		Terminal:     term,
		DesiredBaud:  baudRate,
		DebugSerial:  opts.DebugSerial,
		DebugLogging: opts.DebugLogging,
	})
	return &Connection{Transport: client.Transport, Loader: client.Loader}
}

// Identify connects the loader and extracts metadata with the profile of
// the detected family. Only the connect step can fail.
func (c *Connection) Identify(ctx context.Context) (chip.Profile, chip.Metadata, error) {
	profile, err := c.Loader.Connect(ctx)
	if err != nil {
		return chip.Profile{}, chip.Metadata{}, err
	}
	return profile, profile.ExtractMetadata(ctx, c.Loader), nil
}

// Close closes the underlying transport
func (c *Connection) Close() error {
	if c.Transport == nil {
		return nil
	}
	return c.Transport.Close()
}
