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

import (
	"context"
	"testing"
	"time"
)

func newTestGame(t *testing.T) (*Game, Connection) {
	t.Helper()
	owner := newStubConnection("owner")
	fabric := NewFabric()
	g, err := NewGame("Test Game", owner, "testfixtures", newFixtureController(), nil, fabric, nopLogger{})
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	fabric.Set(g, owner)
	g.AddPlayer(owner, White)
	return g, owner
}

func TestGameHistoryNeverEmpty(t *testing.T) {
	g, _ := newTestGame(t)
	if len(g.Data().History) == 0 {
		t.Fatal("history must never be empty")
	}
}

func TestGameSingleAdvanceAppliesImmediately(t *testing.T) {
	g, owner := newTestGame(t)

	from, to := Vector2{0, 0}, Vector2{1, 0}
	plies := g.GetPlies(owner, from, to)
	if len(plies) != 1 {
		t.Fatalf("expected exactly one ply, got %d", len(plies))
	}
	if plies[0].Name != "Walk" {
		t.Fatalf("unexpected ply name %q", plies[0].Name)
	}

	g.ApplyOrOfferChoices(from, to, plies, owner)

	stub := owner.(*stubConnection)
	for _, m := range stub.sent {
		if m.command == "offer_plies" {
			t.Fatal("single candidate should apply immediately, not offer a choice")
		}
	}
	if _, ok := g.Data().Board()[Vector2{1, 0}]; !ok {
		t.Fatal("expected piece to have moved to destination")
	}
}

func TestGamePliesOutOfBoundsReturnsEmpty(t *testing.T) {
	g, owner := newTestGame(t)
	plies := g.GetPlies(owner, Vector2{0, 0}, Vector2{99, 99})
	if len(plies) != 0 {
		t.Errorf("expected no plies for an out-of-bounds destination, got %d", len(plies))
	}
}

func TestGamePliesFromUnoccupiedReturnsEmpty(t *testing.T) {
	g, owner := newTestGame(t)
	plies := g.GetPlies(owner, Vector2{3, 3}, Vector2{4, 3})
	if len(plies) != 0 {
		t.Errorf("expected no plies from an unoccupied position, got %d", len(plies))
	}
}

func TestGameApplyPlyBroadcastsToSubscribers(t *testing.T) {
	g, owner := newTestGame(t)
	watcher := newStubConnection("watcher")
	g.subscribers.(*Fabric).Set(g, watcher)

	g.ApplyPly(White, &Ply{Name: "Walk", Actions: []Action{Move(Vector2{0, 0}, Vector2{1, 0})}})

	stub := watcher.(*stubConnection)
	found := false
	for _, m := range stub.sent {
		if m.command == "apply_ply" {
			found = true
		}
	}
	if !found {
		t.Error("expected watcher to receive an apply_ply broadcast")
	}
}

func TestGameApplyPlyRecoversInvalidPly(t *testing.T) {
	g, owner := newTestGame(t)
	historyLen := len(g.Data().History)

	// Destroying an unoccupied position is a Controller/Piece bug, not
	// client input, and must not crash the game.
	g.ApplyPly(White, &Ply{Name: "Bad", Actions: []Action{Destroy(Vector2{5, 5})}})

	if len(g.Data().History) != historyLen {
		t.Errorf("invalid ply should not be committed to history")
	}
	stub := owner.(*stubConnection)
	if len(stub.errors) == 0 {
		t.Error("expected the ply's color to receive a show_error")
	}
}

func TestGameWinnerIsIdempotent(t *testing.T) {
	g, _ := newTestGame(t)
	watcher := newStubConnection("watcher")
	g.subscribers.(*Fabric).Set(g, watcher)

	g.Winner([]Color{White}, "checkmate")
	g.Winner([]Color{White}, "checkmate again")

	stub := watcher.(*stubConnection)
	count := 0
	for _, m := range stub.sent {
		if m.command == "update_winners" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one update_winners broadcast, got %d", count)
	}
	if !g.Terminal() {
		t.Error("expected game to be terminal after Winner")
	}
}

func TestGameOwnerHoldsWhiteSeat(t *testing.T) {
	g, _ := newTestGame(t)
	second := newStubConnection("second")
	if _, taken := g.players.GetConnection(White); !taken {
		t.Fatal("expected White to already be taken by the owner")
	}
	_ = second
}

func TestGameClickButtonInvokesCallback(t *testing.T) {
	g, owner := newTestGame(t)
	clicked := NoColor
	g.UpdatePublicInfo([]InfoElement{InfoButton("Resign", "resign", func(c Color) { clicked = c })})

	g.ClickButton(owner, "resign")

	if clicked != White {
		t.Errorf("expected callback invoked with White, got %v", clicked)
	}
}

func TestGameRunAsyncCancelledByShutdown(t *testing.T) {
	g, _ := newTestGame(t)
	observedDone := make(chan struct{})

	g.RunAsync(func(ctx context.Context) error {
		<-ctx.Done()
		close(observedDone)
		return ctx.Err()
	})

	g.Shutdown()

	select {
	case <-observedDone:
	case <-time.After(time.Second):
		t.Fatal("background task never observed ctx.Done() after Shutdown")
	}
}

func TestGameRunAsyncCancelledByWinner(t *testing.T) {
	g, _ := newTestGame(t)
	observedDone := make(chan struct{})

	g.RunAsync(func(ctx context.Context) error {
		<-ctx.Done()
		close(observedDone)
		return ctx.Err()
	})

	g.Winner([]Color{White}, "checkmate")

	select {
	case <-observedDone:
	case <-time.After(time.Second):
		t.Fatal("background task never observed ctx.Done() after Winner")
	}
}
