// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package esploader is a minimal client for the Espressif ROM serial
// bootloader: SLIP framing, SYNC, READ_REG and CHANGE_BAUDRATE, enough to
// identify a chip and read its factory MAC.
//
// NewClient satisfies connection.ClientFactory:
//
//	conn := connection.CreateConnection(esploader.NewClient, port, 921600, term, connection.Options{})
//	defer conn.Close()
//	profile, md, err := conn.Identify(ctx)
package esploader

import (
	"io"
	"log"

	"github.com/Thermoquad/helioflash/pkg/connection"
)

// NewClient builds a transport/loader pair for cfg. Nothing is opened
// until the loader connects.
func NewClient(cfg connection.ClientConfig) connection.Client {
	return newClient(cfg, openPort)
}

func newClient(cfg connection.ClientConfig, open portOpener) connection.Client {
	transport := newTransport(cfg.Port.Name, ROMBaudRate, open, debugLogger(cfg.Terminal, cfg.DebugSerial, "serial: "))
	loader := &Loader{
		transport:   transport,
		terminal:    cfg.Terminal,
		desiredBaud: cfg.DesiredBaud,
		log:         debugLogger(cfg.Terminal, cfg.DebugLogging, "loader: "),
	}
	return connection.Client{Transport: transport, Loader: loader}
}

func debugLogger(term connection.Terminal, enabled bool, prefix string) *log.Logger {
	if !enabled {
		return log.New(io.Discard, "", 0)
	}
	return log.New(connection.TerminalWriter(term), prefix, log.Ltime|log.Lmicroseconds)
}
