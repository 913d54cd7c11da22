// Ply representation and equality
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

// Ply is one atomic turn's worth of actions. Actions are applied in
// order; together they succeed or fail as a unit.
type Ply struct {
	Name    string
	Actions []Action
}

// wireAction and wirePly mirror the JSON shapes in the external
// protocol (see §6 of the specification this package implements);
// they exist purely to give Ply a stable, comparable wire encoding for
// apply_ply and submit_ply without exposing Piece's Go interface type
// to json.Marshal.
type wireAction struct {
	Type  string   `json:"type"`
	From  *[2]int  `json:"from_pos,omitempty"`
	To    *[2]int  `json:"to_pos,omitempty"`
	Pos   *[2]int  `json:"pos,omitempty"`
	Piece *wirePiece `json:"piece,omitempty"`
}

type wirePiece struct {
	PackID      string `json:"pack_id"`
	PieceTypeID string `json:"piece_type_id"`
	Color       int    `json:"color"`
	Direction   int    `json:"direction"`
}

type wirePly struct {
	Name    string       `json:"name"`
	Actions []wireAction `json:"actions"`
}

func toWireAction(a Action) wireAction {
	switch {
	case a.IsMove():
		from := [2]int{a.From.Row, a.From.Col}
		to := [2]int{a.To.Row, a.To.Col}
		return wireAction{Type: "move", From: &from, To: &to}
	case a.IsDestroy():
		pos := [2]int{a.Pos.Row, a.Pos.Col}
		return wireAction{Type: "destroy", Pos: &pos}
	case a.IsCreate():
		pos := [2]int{a.Pos.Row, a.Pos.Col}
		attrs := a.Piece.Attrs()
		return wireAction{
			Type: "create",
			Pos:  &pos,
			Piece: &wirePiece{
				PackID:      a.Piece.PackID(),
				PieceTypeID: a.Piece.Kind(),
				Color:       int(attrs.Color),
				Direction:   int(attrs.Direction),
			},
		}
	default:
		panic("unknown action kind")
	}
}

// ToWire converts a Ply into the JSON-serializable shape sent to
// clients as part of offer_plies and apply_ply.
func (p *Ply) ToWire() any {
	w := wirePly{Name: p.Name}
	for _, a := range p.Actions {
		w.Actions = append(w.Actions, toWireAction(a))
	}
	return w
}

// Equal reports whether two plies encode the same name and ordered
// action sequence, comparing pieces by wire identity (kind, color,
// direction) rather than Go identity. submit_ply does not use it: it
// matches the submitted JSON against each candidate's wire encoding
// (see findSubmittedPly).
func (p *Ply) Equal(o *Ply) bool {
	if p == nil || o == nil {
		return p == o
	}
	if p.Name != o.Name || len(p.Actions) != len(o.Actions) {
		return false
	}
	for i, a := range p.Actions {
		b := o.Actions[i]
		if a.kind != b.kind {
			return false
		}
		switch {
		case a.IsMove():
			if a.From != b.From || a.To != b.To {
				return false
			}
		case a.IsDestroy():
			if a.Pos != b.Pos {
				return false
			}
		case a.IsCreate():
			if a.Pos != b.Pos || !PiecesEqual(a.Piece, b.Piece) {
				return false
			}
		}
	}
	return true
}
