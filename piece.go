// Piece capability interface
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

// NoMovesError is raised by a Piece or Controller to signal that no
// ply is possible for geometric or rule reasons, carrying a reason
// string meant to be shown to the client verbatim.
type NoMovesError struct {
	Reason string
}

func (e *NoMovesError) Error() string { return e.Reason }

// Piece is a logical game token. Implementations are registered per
// pack and instantiated by a Controller's init_board or by inventory
// drops; the engine never constructs one directly except via Copy.
type Piece interface {
	// Kind returns the piece's static, pack-scoped type name (e.g.
	// "Pawn"). It does not vary between instances of the same kind.
	Kind() string

	// PackID names the pack this piece kind was registered under.
	PackID() string

	// Image is the SVG payload associated with this piece's kind,
	// loaded once at pack-load time.
	Image() string

	// Attrs returns the piece's color, direction and move count.
	Attrs() PieceAttrs

	// Copy returns a fresh instance of the same kind, color and
	// direction, with MovesMade reset to zero.
	Copy() Piece

	// WithMovesMade returns a copy of this piece carrying the given
	// move count. The reducer uses it to bump MovesMade by one after
	// a Move action; it never mutates a Piece in place.
	WithMovesMade(n uint) Piece

	// GetPlies returns the candidate plies this piece is
	// intrinsically capable of performing, moving from fromPos to
	// toPos, given only its own movement geometry and the current
	// game data. It must not consult turn order or any rule whose
	// scope extends beyond this one piece, and may return a
	// *NoMovesError to explain why no geometry applies.
	GetPlies(fromPos, toPos Vector2, data *GameData) ([]*Ply, error)
}

// PieceAttrs is the runtime-mutable state every Piece carries. It is
// not part of a piece's wire identity: two pieces compare Equal iff
// their kind, color and direction match, regardless of MovesMade.
type PieceAttrs struct {
	Color     Color
	Direction Direction
	MovesMade uint
}

// PiecesEqual reports whether a and b are the same kind, color and
// direction — the wire-identity equality used by rule modules that
// need to recognize "the same piece" across positions, independent of
// its move count.
func PiecesEqual(a, b Piece) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.PackID() != b.PackID() || a.Kind() != b.Kind() {
		return false
	}
	aa, ba := a.Attrs(), b.Attrs()
	return aa.Color == ba.Color && aa.Direction == ba.Direction
}

// incrementMoves is invoked only by the state reducer's Move action
// handling — it is the single place MovesMade changes outside of a
// fresh Copy.
func incrementMoves(p Piece) Piece {
	return p.WithMovesMade(p.Attrs().MovesMade + 1)
}

// BasePiece carries the attribute bookkeeping (color, direction, move
// count) shared by every concrete piece kind. Embed it by value and
// provide Kind, PackID, Image and GetPlies to satisfy Piece; Copy and
// WithMovesMade still need a thin per-kind wrapper, since Go has no
// way to return the embedder's own concrete type from an embedded
// method.
type BasePiece struct {
	attrs PieceAttrs
}

// NewBasePiece constructs the embeddable attribute state for a piece
// of the given color and direction.
func NewBasePiece(color Color, direction Direction) BasePiece {
	return BasePiece{attrs: PieceAttrs{Color: color, Direction: direction}}
}

func (b BasePiece) Attrs() PieceAttrs { return b.attrs }

// Moved returns a copy of the embeddable state with MovesMade set to
// n; concrete kinds use it inside their own WithMovesMade.
func (b BasePiece) Moved(n uint) BasePiece {
	b.attrs.MovesMade = n
	return b
}
