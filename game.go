// Session kernel
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

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Subscribers is the narrow slice of the subscription fabric a Game
// needs to reach its audience; *Fabric satisfies it.
type Subscribers interface {
	Connections(g *Game) []Connection
}

// Game is one running (or finished) match: it owns the append-only
// history, the per-color surfaces (inventory, info elements,
// decorator layers), the winner record, and the background tasks a
// Controller schedules through RunAsync. All mutating operations take
// glock; broadcasts to subscribers happen after it is released.
type Game struct {
	ID         string
	Name       string
	PackName   string
	Owner      Connection
	Controller Controller

	subscribers Subscribers

	glock sync.Mutex

	data *GameData

	players *ColorConnections

	decoratorLayers map[int]map[Vector2]Decorator
	publicInfo      []InfoElement
	privateInfo     map[Color][]InfoElement
	inventories     map[Color][]InventoryItem
	winners         *WinnerData
	chatLog         []ChatMessage

	ctx    context.Context
	cancel context.CancelFunc
	tasks  sync.WaitGroup

	logger Logger
}

// NewGame constructs and initializes a game: it resolves the
// Controller's options, lets it lay out the starting board, and
// allocates the per-color surfaces for every color the Controller
// declared.
func NewGame(name string, owner Connection, packName string, controller Controller, options OptionValues, subscribers Subscribers, logger Logger) (*Game, error) {
	resolved, err := resolveOptions(controller.Options(), options)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	g := &Game{
		ID:              uuid.NewString(),
		Name:            name,
		PackName:        packName,
		Owner:           owner,
		Controller:      controller,
		subscribers:     subscribers,
		players:         newColorConnections(),
		decoratorLayers: make(map[int]map[Vector2]Decorator),
		privateInfo:     make(map[Color][]InfoElement),
		inventories:     make(map[Color][]InventoryItem),
		ctx:             ctx,
		cancel:          cancel,
		logger:          logger,
	}

	board := make(Board)
	controller.InitBoard(board, resolved)

	colors := make([]Color, 0)
	for c := range collectColors(board, controller) {
		colors = append(colors, c)
		g.privateInfo[c] = nil
		g.inventories[c] = nil
	}

	boardSize := Vector2{}
	for pos := range board {
		if pos.Row+1 > boardSize.Row {
			boardSize.Row = pos.Row + 1
		}
		if pos.Col+1 > boardSize.Col {
			boardSize.Col = pos.Col + 1
		}
	}

	g.data = &GameData{
		History:   []GameState{{Board: board, PlyColor: NoColor}},
		BoardSize: boardSize,
		Colors:    colors,
	}

	return g, nil
}

// collectColors derives the color roster: a Controller with a
// Colors() []Color method supplies it directly (this covers colors
// with no starting piece, e.g. one that only ever drops from
// inventory); otherwise it is the set of colors on the initial board.
func collectColors(board Board, controller Controller) map[Color]struct{} {
	seen := make(map[Color]struct{})
	if declarer, ok := controller.(interface{ Colors() []Color }); ok {
		for _, c := range declarer.Colors() {
			seen[c] = struct{}{}
		}
		return seen
	}
	for _, piece := range board {
		seen[piece.Attrs().Color] = struct{}{}
	}
	return seen
}

func resolveOptions(declared map[string]Option, requested OptionValues) (OptionValues, error) {
	resolved := make(OptionValues, len(declared))
	for name, opt := range declared {
		value, given := requested[name]
		if !given {
			resolved[name] = opt.Default()
			continue
		}
		switch o := opt.(type) {
		case IntOption:
			n, ok := value.(int)
			if f, isFloat := value.(float64); isFloat && f == float64(int(f)) {
				n, ok = int(f), true
			}
			if !ok {
				return nil, fmt.Errorf("option %q must be an integer", name)
			}
			if n < o.Min || n > o.Max {
				return nil, fmt.Errorf("option %q must be between %d and %d", name, o.Min, o.Max)
			}
			resolved[name] = n
		case BoolOption:
			b, ok := value.(bool)
			if !ok {
				return nil, fmt.Errorf("option %q must be a boolean", name)
			}
			resolved[name] = b
		case SelectOption:
			s, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("option %q must be a string", name)
			}
			found := false
			for _, choice := range o.Choices {
				if choice == s {
					found = true
					break
				}
			}
			if !found {
				return nil, fmt.Errorf("option %q must be one of %v", name, o.Choices)
			}
			resolved[name] = s
		}
	}
	return resolved, nil
}

// Data returns the game's history/board/colors; callers must not
// mutate the returned value concurrently with game operations.
func (g *Game) Data() *GameData { return g.data }

// Terminal reports whether winner() has ever been called.
func (g *Game) Terminal() bool {
	g.glock.Lock()
	defer g.glock.Unlock()
	return g.winners != nil
}

// Winners returns the winner record, or nil if the game is still active.
func (g *Game) Winners() *WinnerData {
	g.glock.Lock()
	defer g.glock.Unlock()
	return g.winners
}

// AddPlayer assigns color to connection, evicting any previous holder
// of either side.
func (g *Game) AddPlayer(connection Connection, color Color) {
	g.glock.Lock()
	defer g.glock.Unlock()
	g.players.Set(color, connection)
}

// ColorOf returns the color connection currently plays, if any.
func (g *Game) ColorOf(connection Connection) (Color, bool) {
	g.glock.Lock()
	defer g.glock.Unlock()
	return g.players.GetColor(connection)
}

// AvailableColors returns the colors from the Controller's declared
// roster that no connection currently holds.
func (g *Game) AvailableColors() []Color {
	g.glock.Lock()
	defer g.glock.Unlock()
	taken := make(map[Color]bool, g.players.Len())
	for _, c := range g.data.Colors {
		if _, ok := g.players.GetConnection(c); ok {
			taken[c] = true
		}
	}
	available := make([]Color, 0, len(g.data.Colors))
	for _, c := range g.data.Colors {
		if !taken[c] {
			available = append(available, c)
		}
	}
	return available
}

// Metadata is the lobby-visible summary of this game: name, owner,
// controlling pack/controller, and seat assignments.
func (g *Game) Metadata() map[string]any {
	g.glock.Lock()
	defer g.glock.Unlock()
	players := make(map[int]string, g.players.Len())
	for c, conn := range g.players.colorToConn {
		players[int(c)] = conn.ID()
	}
	return map[string]any{
		"id":            g.ID,
		"display_name":  g.Name,
		"creator":       g.Owner.ID(),
		"pack_id":       g.PackName,
		"controller_id": g.Controller.Name(),
		"players":       players,
	}
}

// FullData produces the caller-specific full projection of the game:
// pieces, decorators, public info, the caller's private info and
// inventory (if seated), winners and chat log.
func (g *Game) FullData(connection Connection) map[string]any {
	g.glock.Lock()
	defer g.glock.Unlock()

	color, seated := g.players.GetColor(connection)

	pieces := make([]map[string]any, 0, len(g.data.Board()))
	for pos, piece := range g.data.Board() {
		attrs := piece.Attrs()
		pieces = append(pieces, map[string]any{
			"row": pos.Row, "col": pos.Col,
			"pack_id": piece.PackID(), "piece_type_id": piece.Kind(),
			"color": int(attrs.Color), "direction": int(attrs.Direction),
		})
	}

	decorators := make(map[int][]map[string]any, len(g.decoratorLayers))
	for layer, cells := range g.decoratorLayers {
		entries := make([]map[string]any, 0, len(cells))
		for pos, dec := range cells {
			entries = append(entries, map[string]any{
				"row": pos.Row, "col": pos.Col,
				"pack_id": dec.PackID(), "decorator_type_id": dec.Kind(),
			})
		}
		decorators[layer] = entries
	}

	publicInfo := make([]map[string]any, 0, len(g.publicInfo))
	for _, e := range g.publicInfo {
		publicInfo = append(publicInfo, e.toJSON())
	}

	chat := make([]map[string]any, 0, len(g.chatLog))
	for _, m := range g.chatLog {
		chat = append(chat, m.toJSON())
	}

	result := map[string]any{
		"id":                    g.ID,
		"pieces":                pieces,
		"decorators":            decorators,
		"public_info_elements":  publicInfo,
		"chat_messages":         chat,
	}
	if g.winners != nil {
		result["winners"] = g.winners.toJSON()
	} else {
		result["winners"] = nil
	}

	if seated {
		privateInfo := make([]map[string]any, 0, len(g.privateInfo[color]))
		for _, e := range g.privateInfo[color] {
			privateInfo = append(privateInfo, e.toJSON())
		}
		result["private_info_elements"] = privateInfo

		inventory := make([]map[string]any, 0, len(g.inventories[color]))
		for _, item := range g.inventories[color] {
			inventory = append(inventory, item.toJSON())
		}
		result["inventory_items"] = inventory
	}

	return result
}

// GetPlies bounds-checks toPos and, unless the game is terminal or
// fromPos is unoccupied, forwards to the Controller, turning a
// *NoMovesError into a client-addressed error message rather than
// propagating it.
func (g *Game) GetPlies(connection Connection, fromPos, toPos Vector2) []*Ply {
	g.glock.Lock()
	defer g.glock.Unlock()

	if g.winners != nil {
		return nil
	}
	if _, occupied := g.data.Board()[fromPos]; !occupied {
		return nil
	}
	if !toPos.InBounds(g.data.BoardSize) {
		return nil
	}

	color, _ := g.players.GetColor(connection)
	plies, err := g.Controller.GetPlies(color, fromPos, toPos, g.data)
	if err != nil {
		if nme, ok := err.(*NoMovesError); ok {
			connection.ShowError(nme.Reason)
			return nil
		}
		connection.ShowError(err.Error())
		return nil
	}
	return plies
}

// GetInventoryPlies is GetPlies' counterpart for dropping an
// inventory item rather than moving a board piece.
func (g *Game) GetInventoryPlies(connection Connection, item InventoryItem, toPos Vector2) []*Ply {
	g.glock.Lock()
	defer g.glock.Unlock()

	if g.winners != nil {
		return nil
	}
	if !toPos.InBounds(g.data.BoardSize) {
		return nil
	}

	color, _ := g.players.GetColor(connection)
	plies, err := g.Controller.GetInventoryPlies(color, item, toPos, g.data)
	if err != nil {
		if nme, ok := err.(*NoMovesError); ok {
			connection.ShowError(nme.Reason)
			return nil
		}
		connection.ShowError(err.Error())
		return nil
	}
	return plies
}

// ApplyOrOfferChoices is the move-submission policy: no candidate
// plies is a silent no-op, exactly one is applied immediately, more
// than one is sent to the client as an offer_plies choice.
func (g *Game) ApplyOrOfferChoices(fromPos, toPos Vector2, plies []*Ply, connection Connection) {
	switch len(plies) {
	case 0:
		return
	case 1:
		color, _ := g.ColorOf(connection)
		g.ApplyPly(color, plies[0])
	default:
		wire := make([]any, len(plies))
		for i, p := range plies {
			wire[i] = p.ToWire()
		}
		connection.Send("offer_plies", map[string]any{
			"game_id": g.ID,
			"from_pos": [2]int{fromPos.Row, fromPos.Col},
			"to_pos":   [2]int{toPos.Row, toPos.Col},
			"plies":    wire,
		})
	}
}

// ApplyPly appends the ply's resulting state to history, broadcasts
// it to every subscriber, and runs the Controller's AfterPly hook. A
// panic from the reducer (a Controller/Piece bug, not client input) is
// recovered and surfaced to color as a show_error instead of crashing
// the game.
func (g *Game) ApplyPly(color Color, ply *Ply) {
	var toNotify []Connection
	applied := false

	func() {
		g.glock.Lock()
		defer g.glock.Unlock()

		defer func() {
			if r := recover(); r != nil {
				if conn, ok := g.players.GetConnection(color); ok {
					conn.ShowError(fmt.Sprintf("invalid ply: %v", r))
				}
				g.logger.Errorf("game %s: recovered from invalid ply: %v", g.ID, r)
			}
		}()

		next := g.data.nextState(color, ply)
		g.data.History = append(g.data.History, next)
		toNotify = g.subscribers.Connections(g)
		applied = true
	}()

	if !applied {
		return
	}

	if ply != nil {
		wire := ply.ToWire()
		for _, conn := range toNotify {
			conn.Send("apply_ply", map[string]any{"game_id": g.ID, "ply": wire})
		}
	}

	g.Controller.AfterPly(g)
}

// ClickButton locates button_id among the caller's visible info
// elements (public, then the caller's private list) and invokes its
// callback with the caller's color.
func (g *Game) ClickButton(connection Connection, buttonID string) {
	g.glock.Lock()
	color, seated := g.players.GetColor(connection)
	if !seated {
		g.glock.Unlock()
		return
	}
	candidates := append(append([]InfoElement{}, g.publicInfo...), g.privateInfo[color]...)
	g.glock.Unlock()

	for _, e := range candidates {
		if e.IsButton() && e.ID() == buttonID {
			e.callback(color)
			return
		}
	}
}

// UpdatePublicInfo replaces the public info-element list and pushes
// it to every subscriber.
func (g *Game) UpdatePublicInfo(elements []InfoElement) {
	g.glock.Lock()
	g.publicInfo = elements
	conns := g.subscribers.Connections(g)
	g.glock.Unlock()

	wire := make([]map[string]any, len(elements))
	for i, e := range elements {
		wire[i] = e.toJSON()
	}
	for _, conn := range conns {
		conn.Send("update_info_elements", map[string]any{"game_id": g.ID, "is_public": true, "elements": wire})
	}
}

// UpdatePrivateInfo replaces color's private info-element list and
// pushes it to that color's connection, if seated.
func (g *Game) UpdatePrivateInfo(color Color, elements []InfoElement) {
	g.glock.Lock()
	g.privateInfo[color] = elements
	conn, seated := g.players.GetConnection(color)
	g.glock.Unlock()

	if !seated {
		return
	}
	wire := make([]map[string]any, len(elements))
	for i, e := range elements {
		wire[i] = e.toJSON()
	}
	conn.Send("update_info_elements", map[string]any{"game_id": g.ID, "is_public": false, "elements": wire})
}

// UpdateInventory replaces color's inventory and pushes it to that
// color's connection, if seated.
func (g *Game) UpdateInventory(color Color, items []InventoryItem) {
	g.glock.Lock()
	g.inventories[color] = items
	conn, seated := g.players.GetConnection(color)
	g.glock.Unlock()

	if !seated {
		return
	}
	wire := make([]map[string]any, len(items))
	for i, it := range items {
		wire[i] = it.toJSON()
	}
	conn.Send("update_inventory_items", map[string]any{"game_id": g.ID, "items": wire})
}

// UpdateDecoratorLayers merges the given layers into the game's
// decorator state and pushes the affected layers to every subscriber.
func (g *Game) UpdateDecoratorLayers(layers map[int]map[Vector2]Decorator) {
	g.glock.Lock()
	for layer, cells := range layers {
		g.decoratorLayers[layer] = cells
	}
	conns := g.subscribers.Connections(g)
	g.glock.Unlock()

	wire := make(map[int][]map[string]any, len(layers))
	for layer, cells := range layers {
		entries := make([]map[string]any, 0, len(cells))
		for pos, dec := range cells {
			entries = append(entries, map[string]any{
				"row": pos.Row, "col": pos.Col,
				"pack_id": dec.PackID(), "decorator_type_id": dec.Kind(),
			})
		}
		wire[layer] = entries
	}
	for _, conn := range conns {
		conn.Send("update_decorators", map[string]any{"game_id": g.ID, "layers": wire})
	}
}

// AddChatMessage appends a message to the game's chat log and pushes
// it to every subscriber.
func (g *Game) AddChatMessage(sender Connection, text string) {
	msg := ChatMessage{Sender: sender, Text: text}

	g.glock.Lock()
	g.chatLog = append(g.chatLog, msg)
	conns := g.subscribers.Connections(g)
	g.glock.Unlock()

	wire := msg.toJSON()
	for _, conn := range conns {
		conn.Send("receive_game_chat_message", map[string]any{"game_id": g.ID, "message": wire})
	}
}

// Winner sets the terminal state, pushes winners to every subscriber
// exactly once, and cancels pending background tasks. Calling it more
// than once is a no-op after the first call.
func (g *Game) Winner(colors []Color, reason string) {
	g.glock.Lock()
	if g.winners != nil {
		g.glock.Unlock()
		return
	}
	g.winners = &WinnerData{Colors: colors, Reason: reason}
	conns := g.subscribers.Connections(g)
	g.glock.Unlock()

	wire := g.winners.toJSON()
	for _, conn := range conns {
		conn.Send("update_winners", map[string]any{"game_id": g.ID, "winners": wire})
	}

	g.Shutdown()
}

// RunAsync schedules fn as a background task tracked by this game, so
// Shutdown can cancel it cleanly. A panic or error returned by fn is
// logged rather than propagated.
func (g *Game) RunAsync(fn func(ctx context.Context) error) {
	g.tasks.Add(1)
	go func() {
		defer g.tasks.Done()
		defer func() {
			if r := recover(); r != nil {
				g.logger.Errorf("game %s: background task panicked: %v", g.ID, r)
			}
		}()
		if err := fn(g.ctx); err != nil && g.ctx.Err() == nil {
			g.logger.Errorf("game %s: background task failed: %v", g.ID, err)
		}
	}()
}

// Shutdown cancels every background task this game has scheduled. It
// is idempotent.
func (g *Game) Shutdown() {
	g.cancel()
}
