// Controller extension point and its declared options
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

// Option is a single configurable knob a Controller exposes to the
// game creator at create_game time. Exactly one of the constructors
// below should be used; the concrete type is read off by NewGame when
// it resolves the requested option values.
type Option interface {
	isOption()
	Default() any
}

// IntOption is a bounded integer knob, e.g. board size or a handicap.
type IntOption struct {
	DefaultValue int
	Min, Max     int
}

func Int(def, min, max int) IntOption { return IntOption{DefaultValue: def, Min: min, Max: max} }

func (IntOption) isOption()      {}
func (o IntOption) Default() any { return o.DefaultValue }

// BoolOption is a toggle, e.g. "allow undo".
type BoolOption struct {
	DefaultValue bool
}

func Bool(def bool) BoolOption { return BoolOption{DefaultValue: def} }

func (BoolOption) isOption()      {}
func (o BoolOption) Default() any { return o.DefaultValue }

// SelectOption restricts a string knob to a fixed set of choices, e.g.
// a variant name.
type SelectOption struct {
	DefaultValue string
	Choices      []string
}

func Select(def string, choices ...string) SelectOption {
	return SelectOption{DefaultValue: def, Choices: choices}
}

func (SelectOption) isOption()      {}
func (o SelectOption) Default() any { return o.DefaultValue }

// OptionValues is the resolved set of option values a game creator
// picked (or defaulted), keyed by the name the Controller declared it
// under in Options().
type OptionValues map[string]any

// IntValue reads a resolved int option, falling back to 0.
func (v OptionValues) IntValue(name string) int {
	if n, ok := v[name].(int); ok {
		return n
	}
	return 0
}

// BoolValue reads a resolved bool option, falling back to false.
func (v OptionValues) BoolValue(name string) bool {
	if b, ok := v[name].(bool); ok {
		return b
	}
	return false
}

// StringValue reads a resolved string option, falling back to "".
func (v OptionValues) StringValue(name string) string {
	if s, ok := v[name].(string); ok {
		return s
	}
	return ""
}

// Controller is the rule-module extension point: it owns turn order,
// legality beyond a piece's own geometry, inventory-drop legality, and
// whatever side effects a ply should trigger once committed. One
// Controller instance is constructed per Game.
type Controller interface {
	// Name is the controller's pack-scoped type name, e.g. "Chess",
	// shown to clients in game metadata.
	Name() string

	// Options declares this Controller's configurable knobs. Called
	// once, before InitBoard, to validate and resolve create_game's
	// requested options against the Controller's defaults and bounds.
	Options() map[string]Option

	// InitBoard populates the empty board passed in with this
	// Controller's starting position. Called once, at game creation,
	// with the resolved option values from Options().
	InitBoard(board Board, options OptionValues)

	// GetPlies returns the legal plies available for a move of the
	// piece currently at fromPos toward toPos, given full game state
	// and turn context. It wraps, filters or rejects what the piece's
	// own GetPlies offered; a nil, empty result together with a nil
	// error means "no legal ply here", which the game treats as a
	// silent no-op rather than as an error.
	GetPlies(color Color, fromPos, toPos Vector2, data *GameData) ([]*Ply, error)

	// GetInventoryPlies returns the legal plies available for
	// dropping the named inventory item at toPos.
	GetInventoryPlies(color Color, item InventoryItem, toPos Vector2, data *GameData) ([]*Ply, error)

	// AfterPly runs once a ply has been committed to history. It is
	// where a Controller declares winners, queues chat/info-element
	// updates, or schedules timers; g is the owning Game, through
	// which it may call back into the engine (UpdatePublicInfo,
	// Winner, and so on).
	AfterPly(g *Game)
}
