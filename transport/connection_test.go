// Copyright (c) 2024  The gridhost Authors
//
// This file is part of gridhost.
//
// gridhost is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.
//
// gridhost is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public
// License, version 3, along with gridhost. If not, see
// <http://www.gnu.org/licenses/>

package transport

import (
	"encoding/json"
	"testing"
)

func TestNewManagerDefaultsPingEnabled(t *testing.T) {
	m := NewManager(nil)
	if !m.PingEnabled {
		t.Error("expected PingEnabled to default to true")
	}
	if m.PingInterval != pingPeriod {
		t.Errorf("PingInterval = %v, want default %v", m.PingInterval, pingPeriod)
	}
}

func TestResolveNameAssignsFreshConnection(t *testing.T) {
	m := NewManager(nil)
	c := m.resolveName("Ada")
	if c.DisplayName() != "Ada" {
		t.Errorf("DisplayName = %q, want %q", c.DisplayName(), "Ada")
	}
}

func TestResolveNameReusesInactiveConnection(t *testing.T) {
	m := NewManager(nil)
	first := m.resolveName("Ada")
	// Never rebound, so first is still inactive.

	second := m.resolveName("Ada")
	if second != first {
		t.Error("expected the same inactive record to be reused")
	}
}

func TestResolveNameSuffixesWhenNameIsActive(t *testing.T) {
	m := NewManager(nil)
	first := m.resolveName("Ada")
	first.active = true

	second := m.resolveName("Ada")
	if second == first {
		t.Fatal("expected a distinct connection for an active name")
	}
	if second.DisplayName() != "Ada (2)" {
		t.Errorf("DisplayName = %q, want %q", second.DisplayName(), "Ada (2)")
	}

	second.active = true
	third := m.resolveName("Ada")
	if third.DisplayName() != "Ada (2) (2)" {
		t.Errorf("DisplayName = %q, want %q", third.DisplayName(), "Ada (2) (2)")
	}
}

func TestConnSendDropsWhenBufferFull(t *testing.T) {
	c := newConn("Ada")
	for i := 0; i < cap(c.out)+10; i++ {
		c.Send("noop", nil)
	}
	if len(c.out) != cap(c.out) {
		t.Errorf("expected the channel to stay at capacity %d, got %d", cap(c.out), len(c.out))
	}
}

func TestOutboundFrameOmitsEmptyFields(t *testing.T) {
	raw, err := json.Marshal(outboundFrame{Command: "ping"})
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if _, ok := decoded["parameters"]; ok {
		t.Error("expected parameters to be omitted when nil")
	}
	if _, ok := decoded["error"]; ok {
		t.Error("expected error to be omitted when empty")
	}
}
