// Subscription fabric
//
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

import "sync"

// Fabric keeps the connection↔game subscription symmetric: every
// connection subscribes to at most one game at a time, and every game
// tracks the full set of connections currently watching it. All
// operations are O(1) amortized.
type Fabric struct {
	mu          sync.Mutex
	connToGame  map[Connection]*Game
	gameToConns map[*Game]map[Connection]struct{}
}

// NewFabric builds an empty subscription fabric.
func NewFabric() *Fabric {
	return &Fabric{
		connToGame:  make(map[Connection]*Game),
		gameToConns: make(map[*Game]map[Connection]struct{}),
	}
}

// Set subscribes connection to game, first removing it from whatever
// game it was previously subscribed to (if any).
func (f *Fabric) Set(game *Game, connection Connection) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeConnectionLocked(connection)

	f.connToGame[connection] = game
	if f.gameToConns[game] == nil {
		f.gameToConns[game] = make(map[Connection]struct{})
	}
	f.gameToConns[game][connection] = struct{}{}
}

// Connections returns the current subscribers of game. It satisfies
// the Subscribers interface Game calls through to broadcast.
func (f *Fabric) Connections(game *Game) []Connection {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := f.gameToConns[game]
	out := make([]Connection, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// GetGame returns the game connection currently subscribes to, if any.
func (f *Fabric) GetGame(connection Connection) (*Game, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.connToGame[connection]
	return g, ok
}

// RemoveGame drops game and every connection's subscription to it,
// leaving no dangling forward-map entries.
func (f *Fabric) RemoveGame(game *Game) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for conn := range f.gameToConns[game] {
		delete(f.connToGame, conn)
	}
	delete(f.gameToConns, game)
}

// RemoveConnection drops connection's subscription, leaving no
// dangling reverse-set entry in its former game's set.
func (f *Fabric) RemoveConnection(connection Connection) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeConnectionLocked(connection)
}

func (f *Fabric) removeConnectionLocked(connection Connection) {
	game, ok := f.connToGame[connection]
	if !ok {
		return
	}
	delete(f.connToGame, connection)
	if set := f.gameToConns[game]; set != nil {
		delete(set, connection)
		if len(set) == 0 {
			delete(f.gameToConns, game)
		}
	}
}
