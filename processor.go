// Ply-processor chain
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

// PlyProcessor consumes the candidate plies produced so far in a
// chain and returns the plies that should survive to the next stage.
// A processor that finds a rule violation returns a *NoMovesError
// explaining why, rather than filtering silently.
type PlyProcessor func(color Color, fromPos, toPos Vector2, data *GameData, candidates []*Ply) ([]*Ply, error)

// Processor pairs a PlyProcessor with its failure policy: when
// StopOnError is true, a *NoMovesError from Run aborts the whole
// chain (Chain.Apply re-raises it); when false, the chain swallows the
// error and carries the input through unchanged to the next stage.
type Processor struct {
	Run         PlyProcessor
	StopOnError bool
}

// Chain runs a sequence of Processors in order over an initial
// candidate list. It is re-built fresh for every call site; no
// Processor or Chain carries state between invocations.
type Chain []Processor

// Apply threads candidates through every Processor in the chain in
// order, honoring each one's StopOnError policy.
func (c Chain) Apply(color Color, fromPos, toPos Vector2, data *GameData, candidates []*Ply) ([]*Ply, error) {
	current := candidates
	for _, p := range c {
		out, err := p.Run(color, fromPos, toPos, data, current)
		if err != nil {
			if _, ok := err.(*NoMovesError); ok && !p.StopOnError {
				continue
			}
			return nil, err
		}
		current = out
	}
	return current, nil
}

// RequireOwnColor rejects any candidate whose source position holds a
// piece not belonging to the moving color. The dispatcher itself never
// makes this check (a player may be asked for plies on any square), so
// a Controller that wants ordinary turn-ownership wires this into its
// chain explicitly.
func RequireOwnColor() PlyProcessor {
	return func(color Color, fromPos, toPos Vector2, data *GameData, candidates []*Ply) ([]*Ply, error) {
		piece, ok := data.Board()[fromPos]
		if !ok || piece.Attrs().Color != color {
			return nil, &NoMovesError{Reason: "you do not own that piece"}
		}
		return candidates, nil
	}
}
