// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package connection

import "testing"

func TestParsePortFilter(t *testing.T) {
	tests := []struct {
		input   string
		vid     uint16
		pid     uint16
		hasPID  bool
		wantErr bool
	}{
		{input: "303a", vid: 0x303a},
		{input: "303A:1001", vid: 0x303a, pid: 0x1001, hasPID: true},
		{input: "0x10c4:0xEA60", vid: 0x10c4, pid: 0xea60, hasPID: true},
		{input: " 1a86 ", vid: 0x1a86},
		{input: "", wantErr: true},
		{input: "303a:", wantErr: true},
		{input: "zz", wantErr: true},
		{input: "12345", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			f, err := ParsePortFilter(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", f)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if f.VendorID != tt.vid {
				t.Errorf("VendorID = 0x%04x, want 0x%04x", f.VendorID, tt.vid)
			}
			if (f.ProductID != nil) != tt.hasPID {
				t.Fatalf("ProductID present = %v, want %v", f.ProductID != nil, tt.hasPID)
			}
			if tt.hasPID && *f.ProductID != tt.pid {
				t.Errorf("ProductID = 0x%04x, want 0x%04x", *f.ProductID, tt.pid)
			}
		})
	}
}

func TestPortFilter_String(t *testing.T) {
	f, _ := ParsePortFilter("303A:1001")
	if f.String() != "303a:1001" {
		t.Errorf("String() = %q", f.String())
	}
	f, _ = ParsePortFilter("1a86")
	if f.String() != "1a86" {
		t.Errorf("String() = %q", f.String())
	}
}

func TestFilterPorts(t *testing.T) {
	ports := []PortInfo{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyUSB0", IsUSB: true, VendorID: 0x10c4, ProductID: 0xea60},
		{Name: "/dev/ttyUSB1", IsUSB: true, VendorID: 0x1a86, ProductID: 0x7523},
		{Name: "/dev/ttyACM0", IsUSB: true, VendorID: 0x303a, ProductID: 0x1001},
	}
	pid := uint16(0x7523)
	wrongPID := uint16(0x0001)

	tests := []struct {
		name    string
		filters []PortFilter
		want    []string
	}{
		{"no filters keeps all", nil, []string{"/dev/ttyS0", "/dev/ttyUSB0", "/dev/ttyUSB1", "/dev/ttyACM0"}},
		{"vendor only", []PortFilter{{VendorID: 0x303a}}, []string{"/dev/ttyACM0"}},
		{"vendor and product", []PortFilter{{VendorID: 0x1a86, ProductID: &pid}}, []string{"/dev/ttyUSB1"}},
		{"product mismatch", []PortFilter{{VendorID: 0x1a86, ProductID: &wrongPID}}, []string{}},
		{"any filter matches", []PortFilter{{VendorID: 0x303a}, {VendorID: 0x10c4}}, []string{"/dev/ttyUSB0", "/dev/ttyACM0"}},
		{"zero vendor never matches non-USB", []PortFilter{{VendorID: 0}}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterPorts(ports, tt.filters)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d ports %v, want %v", len(got), got, tt.want)
			}
			for i := range got {
				if got[i].Name != tt.want[i] {
					t.Errorf("port[%d] = %q, want %q", i, got[i].Name, tt.want[i])
				}
			}
		})
	}
}

func TestPortInfo_String(t *testing.T) {
	if s := (PortInfo{Name: "COM3"}).String(); s != "COM3" {
		t.Errorf("String() = %q", s)
	}
	p := PortInfo{Name: "/dev/ttyUSB0", IsUSB: true, VendorID: 0x10c4, ProductID: 0xea60}
	if s := p.String(); s != "/dev/ttyUSB0 (10c4:ea60)" {
		t.Errorf("String() = %q", s)
	}
}
