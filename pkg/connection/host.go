// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package connection

//go:generate mockgen -source=host.go -destination=../../mocks/serial_host.go -package=mocks

import "context"

// SerialHost is the environment's port selection capability. RequestPort
// may block for as long as the selection flow takes.
type SerialHost interface {
	RequestPort(ctx context.Context, filters []PortFilter) (PortInfo, error)
}

// RequestSerialPort asks host for a port. A nil host means the environment
// has no serial capability and ErrCapabilityUnavailable is returned without
// further interaction. Filters and host errors pass through unchanged.
func RequestSerialPort(ctx context.Context, host SerialHost, filters []PortFilter) (PortInfo, error) {
	if host == nil {
		return PortInfo{}, ErrCapabilityUnavailable
	}
	return host.RequestPort(ctx, filters)
}

// FixedHost is a host whose selection is already made, e.g. from a --port
// flag. Filters are ignored.
type FixedHost struct {
	Port PortInfo
}

// NamedHost returns a FixedHost for a port name or WebSocket bridge URL
func NamedHost(name string) *FixedHost {
	return &FixedHost{Port: PortInfo{Name: name}}
}

// RequestPort returns the fixed port
func (h *FixedHost) RequestPort(ctx context.Context, filters []PortFilter) (PortInfo, error) {
	if err := ctx.Err(); err != nil {
		return PortInfo{}, err
	}
	return h.Port, nil
}
