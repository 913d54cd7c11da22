// Board mutation primitives
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

// Action is a single primitive board mutation. Exactly one of the
// three constructors below should be used to build a value; the tag
// is read off which fields are set.
type Action struct {
	kind actionKind

	// Move
	From, To Vector2

	// Destroy
	Pos Vector2

	// Create
	Piece Piece
}

type actionKind uint8

const (
	actionMove actionKind = iota
	actionDestroy
	actionCreate
)

// Move relocates the piece at from to to, overwriting any occupant at to.
func Move(from, to Vector2) Action {
	return Action{kind: actionMove, From: from, To: to}
}

// Destroy removes the piece at pos.
func Destroy(pos Vector2) Action {
	return Action{kind: actionDestroy, Pos: pos}
}

// Create places a fresh copy of piece at pos, overwriting any occupant.
func Create(piece Piece, pos Vector2) Action {
	return Action{kind: actionCreate, Piece: piece, Pos: pos}
}

func (a Action) IsMove() bool    { return a.kind == actionMove }
func (a Action) IsDestroy() bool { return a.kind == actionDestroy }
func (a Action) IsCreate() bool  { return a.kind == actionCreate }
