// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package connection

import (
	"fmt"
	"strconv"
	"strings"

	"go.bug.st/serial/enumerator"
)

// PortInfo identifies a port. Name is a device path (/dev/ttyUSB0, COM3)
// or a ws:// / wss:// serial bridge URL. USB fields are zero for
// non-USB ports.
type PortInfo struct {
	Name         string
	IsUSB        bool
	VendorID     uint16
	ProductID    uint16
	SerialNumber string
	Product      string
}

func (p PortInfo) String() string {
	if !p.IsUSB {
		return p.Name
	}
	return fmt.Sprintf("%s (%04x:%04x)", p.Name, p.VendorID, p.ProductID)
}

// PortFilter selects USB ports by vendor and, optionally, product ID
type PortFilter struct {
	VendorID  uint16
	ProductID *uint16
}

// ParsePortFilter parses VID or VID:PID in hex, with or without 0x.
func ParsePortFilter(s string) (PortFilter, error) {
	vid, pid, hasPID := strings.Cut(strings.TrimSpace(s), ":")

	v, err := parseUSBID(vid)
	if err != nil {
		return PortFilter{}, fmt.Errorf("invalid vendor id in filter %q: %w", s, err)
	}
	f := PortFilter{VendorID: v}

	if hasPID {
		p, err := parseUSBID(pid)
		if err != nil {
			return PortFilter{}, fmt.Errorf("invalid product id in filter %q: %w", s, err)
		}
		f.ProductID = &p
	}
	return f, nil
}

// Matches reports whether port satisfies the filter. Non-USB ports never match.
func (f PortFilter) Matches(port PortInfo) bool {
	if !port.IsUSB || port.VendorID != f.VendorID {
		return false
	}
	return f.ProductID == nil || *f.ProductID == port.ProductID
}

func (f PortFilter) String() string {
	if f.ProductID == nil {
		return fmt.Sprintf("%04x", f.VendorID)
	}
	return fmt.Sprintf("%04x:%04x", f.VendorID, *f.ProductID)
}

// FilterPorts keeps the ports matching any filter. With no filters every
// port is kept.
func FilterPorts(ports []PortInfo, filters []PortFilter) []PortInfo {
	if len(filters) == 0 {
		return ports
	}
	out := make([]PortInfo, 0, len(ports))
	for _, p := range ports {
		for _, f := range filters {
			if f.Matches(p) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// ListPorts enumerates the host's serial ports and applies filters
func ListPorts(filters []PortFilter) ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, portInfoFromDetails(d))
	}
	return FilterPorts(ports, filters), nil
}

func portInfoFromDetails(d *enumerator.PortDetails) PortInfo {
	info := PortInfo{Name: d.Name, IsUSB: d.IsUSB}
	if !d.IsUSB {
		return info
	}
	// Unparseable IDs stay zero and simply fail to match filters
	info.VendorID, _ = parseUSBID(d.VID)
	info.ProductID, _ = parseUSBID(d.PID)
	info.SerialNumber = d.SerialNumber
	info.Product = d.Product
	return info
}

func parseUSBID(s string) (uint16, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	if s == "" {
		return 0, fmt.Errorf("empty id")
	}
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}
