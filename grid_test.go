// Shared test fixtures: a minimal piece kind used across this
// package's tests, standing in for a real rule module's pieces.
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

// walker is a test-only piece that moves one step in any of the
// eight compass directions, used to exercise the engine without
// depending on any real rule module.
type walker struct {
	BasePiece
}

func newWalker(color Color, direction Direction) *walker {
	return &walker{BasePiece: NewBasePiece(color, direction)}
}

func (w *walker) Kind() string   { return "Walker" }
func (w *walker) PackID() string { return "testfixtures" }
func (w *walker) Image() string  { return "" }

func (w *walker) Copy() Piece {
	return newWalker(w.attrs.Color, w.attrs.Direction)
}

func (w *walker) WithMovesMade(n uint) Piece {
	return &walker{BasePiece: w.Moved(n)}
}

func (w *walker) GetPlies(fromPos, toPos Vector2, data *GameData) ([]*Ply, error) {
	_, ok := AxisDirection(fromPos, toPos)
	if !ok {
		return nil, &NoMovesError{Reason: "that piece can only move in a straight line"}
	}
	return []*Ply{{Name: "Walk", Actions: []Action{Move(fromPos, toPos)}}}, nil
}

// fixtureController is a minimal Controller that places a single
// walker and imposes no turn order or legality beyond the piece's own
// geometry, used to exercise Game end to end.
type fixtureController struct {
	boardSize Vector2
	colors    []Color
}

func newFixtureController() *fixtureController {
	return &fixtureController{boardSize: Vector2{8, 8}, colors: []Color{White, Black}}
}

func (c *fixtureController) Name() string { return "Fixture" }

func (c *fixtureController) Options() map[string]Option {
	return map[string]Option{"handicap": Int(0, 0, 8)}
}

func (c *fixtureController) Colors() []Color { return c.colors }

func (c *fixtureController) InitBoard(board Board, options OptionValues) {
	board[Vector2{0, 0}] = newWalker(White, South)
	board[Vector2{7, 7}] = newWalker(Black, North)
}

func (c *fixtureController) GetPlies(color Color, fromPos, toPos Vector2, data *GameData) ([]*Ply, error) {
	piece := data.Board()[fromPos]
	if piece == nil {
		return nil, nil
	}
	return piece.GetPlies(fromPos, toPos, data)
}

func (c *fixtureController) GetInventoryPlies(color Color, item InventoryItem, toPos Vector2, data *GameData) ([]*Ply, error) {
	return []*Ply{{Name: "Drop", Actions: []Action{Create(item.Piece, toPos)}}}, nil
}

func (c *fixtureController) AfterPly(g *Game) {}

// stubConnection is a no-op Connection recording what it was sent,
// for assertions in tests that don't need a real transport.
type stubConnection struct {
	id, name string
	sent     []sentMessage
	errors   []string
}

type sentMessage struct {
	command string
	payload any
}

func newStubConnection(name string) *stubConnection {
	return &stubConnection{id: name, name: name}
}

func (c *stubConnection) ID() string          { return c.id }
func (c *stubConnection) DisplayName() string { return c.name }
func (c *stubConnection) Send(command string, payload any) {
	c.sent = append(c.sent, sentMessage{command, payload})
}
func (c *stubConnection) ShowError(message string) { c.errors = append(c.errors, message) }
func (c *stubConnection) Close()                   {}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
