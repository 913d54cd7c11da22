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

package grid

import "testing"

func TestFabricSetMovesConnectionBetweenGames(t *testing.T) {
	f := NewFabric()
	g1, g2 := &Game{ID: "g1"}, &Game{ID: "g2"}
	conn := newStubConnection("alice")

	f.Set(g1, conn)
	if got, _ := f.GetGame(conn); got != g1 {
		t.Fatalf("expected conn subscribed to g1, got %v", got)
	}
	if len(f.Connections(g1)) != 1 {
		t.Fatalf("expected g1 to have one subscriber")
	}

	f.Set(g2, conn)
	if got, _ := f.GetGame(conn); got != g2 {
		t.Fatalf("expected conn subscribed to g2, got %v", got)
	}
	if len(f.Connections(g1)) != 0 {
		t.Errorf("expected g1 to have no subscribers after move, got %d", len(f.Connections(g1)))
	}
	if len(f.Connections(g2)) != 1 {
		t.Errorf("expected g2 to have one subscriber")
	}
}

func TestFabricRemoveGameLeavesNoDanglingEntries(t *testing.T) {
	f := NewFabric()
	g := &Game{ID: "g"}
	a, b := newStubConnection("a"), newStubConnection("b")
	f.Set(g, a)
	f.Set(g, b)

	f.RemoveGame(g)

	if _, ok := f.GetGame(a); ok {
		t.Error("expected a's forward-map entry to be gone")
	}
	if _, ok := f.GetGame(b); ok {
		t.Error("expected b's forward-map entry to be gone")
	}
	if len(f.Connections(g)) != 0 {
		t.Error("expected no subscribers left for removed game")
	}
}

func TestFabricRemoveConnectionLeavesNoDanglingReverseEntry(t *testing.T) {
	f := NewFabric()
	g := &Game{ID: "g"}
	a, b := newStubConnection("a"), newStubConnection("b")
	f.Set(g, a)
	f.Set(g, b)

	f.RemoveConnection(a)

	conns := f.Connections(g)
	if len(conns) != 1 || conns[0] != b {
		t.Errorf("expected only b left subscribed to g, got %v", conns)
	}
	if _, ok := f.GetGame(a); ok {
		t.Error("expected a's forward-map entry removed")
	}
}
