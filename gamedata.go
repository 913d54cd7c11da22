// Game history and the state reducer
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

import "fmt"

// Board is the occupancy map of a single point in history.
type Board map[Vector2]Piece

func (b Board) copy() Board {
	out := make(Board, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// GameState is one entry of a Game's history: the board after some
// ply was applied, plus the color and ply that produced it. The
// initial state has PlyColor NoColor and Ply nil.
type GameState struct {
	Board    Board
	PlyColor Color // NoColor for the initial state
	HasPly   bool
	Ply      *Ply
}

// GameData is the append-only history of a game together with the
// board metadata a Controller declares once at construction.
type GameData struct {
	History   []GameState
	BoardSize Vector2
	Colors    []Color
}

// Board returns the occupancy map of the most recent history entry.
func (d *GameData) Board() Board {
	return d.History[len(d.History)-1].Board
}

// nextState is the pure reducer: it deep-copies the current board,
// applies the ply's actions in order, and returns the resulting
// state. It panics on a Destroy of an unoccupied position or a Move
// whose source is unoccupied or identical to its destination — these
// are Controller/Piece bugs, not client input, and are recovered at
// the call site in apply_ply (see Game.ApplyPly).
func (d *GameData) nextState(color Color, ply *Ply) GameState {
	board := d.Board().copy()

	if ply != nil {
		for _, action := range ply.Actions {
			switch {
			case action.IsMove():
				if action.From == action.To {
					panic(fmt.Sprintf("move action: from and to are both %s", action.From))
				}
				piece, ok := board[action.From]
				if !ok {
					panic(fmt.Sprintf("move action: no piece at %s", action.From))
				}
				delete(board, action.From)
				board[action.To] = incrementMoves(piece)
			case action.IsDestroy():
				if _, ok := board[action.Pos]; !ok {
					panic(fmt.Sprintf("destroy action: no piece at %s", action.Pos))
				}
				delete(board, action.Pos)
			case action.IsCreate():
				board[action.Pos] = action.Piece.Copy()
			}
		}
	}

	return GameState{Board: board, PlyColor: color, HasPly: ply != nil, Ply: ply}
}
