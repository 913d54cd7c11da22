// Server façade
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
	"encoding/json"
	"reflect"
	"sync"
)

const lobbyGameID = "server"

// Server owns the games catalog, the subscription fabric, the pack
// registry and the set of live connections. It is the single
// long-lived object a process constructs; everything else is reached
// through it.
type Server struct {
	mu    sync.Mutex
	games map[string]*Game
	conns map[Connection]struct{}

	Packs    map[string]*Pack
	Fabric   *Fabric
	Logger   Logger
}

// NewServer builds a Server over an already-loaded pack catalog.
func NewServer(packs map[string]*Pack, logger Logger) *Server {
	return &Server{
		games:  make(map[string]*Game),
		conns:  make(map[Connection]struct{}),
		Packs:  packs,
		Fabric: NewFabric(),
		Logger: logger,
	}
}

// RegisterHandlers wires every inbound command from §6 onto d.
func (s *Server) RegisterHandlers(d *Dispatcher) {
	d.Register("login", s.onLogin)
	d.Register("create_game", s.onCreateGame)
	d.Register("delete_game", s.onDeleteGame)
	d.Register("show_game", s.onShowGame)
	d.Register("join_game", s.onJoinGame)
	d.Register("leave_game", s.onLeaveGame)
	d.Register("plies", s.onPlies)
	d.Register("inventory_plies", s.onInventoryPlies)
	d.Register("submit_ply", s.onSubmitPly)
	d.Register("click_button", s.onClickButton)
	d.Register("send_chat_message", s.onSendChatMessage)
}

// OnConnect registers a newly accepted connection and pushes the
// initial catalog snapshot: the other handlers never need to push
// it again, since they each re-broadcast only what they changed.
func (s *Server) OnConnect(conn Connection) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	s.broadcastPlayers()
	s.onLogin(conn, struct{}{})
}

// OnDisconnect drops conn's game subscription and removes it from the
// live connection set. Any seat it holds is kept, so a reconnect under
// the same display name resumes it; subscribers of a game in which it
// is seated receive refreshed game data.
func (s *Server) OnDisconnect(conn Connection) {
	s.mu.Lock()
	games := make([]*Game, 0, len(s.games))
	for _, g := range s.games {
		games = append(games, g)
	}
	delete(s.conns, conn)
	s.mu.Unlock()

	changed := false
	for _, g := range games {
		if _, subscribed := s.Fabric.GetGame(conn); subscribed {
			s.Fabric.RemoveConnection(conn)
		}
		if color, seated := g.ColorOf(conn); seated {
			s.broadcastGameData(g)
			_ = color
			changed = true
		}
	}

	if changed {
		s.broadcastGameMetadata()
	}
	s.broadcastPlayers()
}

func (s *Server) broadcastPlayers() {
	s.mu.Lock()
	conns := make([]Connection, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Send("update_players", map[string]any{"count": len(conns)})
	}
}

func (s *Server) broadcastGameMetadata() {
	s.mu.Lock()
	metadata := make([]map[string]any, 0, len(s.games))
	for _, g := range s.games {
		metadata = append(metadata, g.Metadata())
	}
	conns := make([]Connection, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Send("update_game_metadata", map[string]any{"games": metadata})
	}
}

func (s *Server) broadcastGameData(g *Game) {
	for _, c := range s.Fabric.Connections(g) {
		c.Send("update_game_data", g.FullData(c))
	}
}

func (s *Server) onLogin(conn Connection, _ struct{}) {
	packData := make(map[string]any, len(s.Packs))
	for name, p := range s.Packs {
		packData[name] = p.ToJSON()
	}
	conn.Send("set_player", map[string]any{"id": conn.ID(), "display_name": conn.DisplayName()})
	conn.Send("update_pack_data", map[string]any{"packs": packData})

	s.mu.Lock()
	metadata := make([]map[string]any, 0, len(s.games))
	for _, g := range s.games {
		metadata = append(metadata, g.Metadata())
	}
	s.mu.Unlock()
	conn.Send("update_game_metadata", map[string]any{"games": metadata})
}

type createGameParams struct {
	Name              string         `json:"name"`
	ControllerPackID  string         `json:"controller_pack_id"`
	ControllerID      string         `json:"controller_id"`
	Options           map[string]any `json:"options"`
}

func (s *Server) onCreateGame(conn Connection, p createGameParams) {
	pack, ok := s.Packs[p.ControllerPackID]
	if !ok {
		conn.ShowError("package does not exist")
		return
	}

	var info *ControllerInfo
	for i := range pack.Controllers {
		if pack.Controllers[i].Name == p.ControllerID {
			info = &pack.Controllers[i]
			break
		}
	}
	if info == nil {
		conn.ShowError("controller does not exist")
		return
	}

	controller := info.New()
	g, err := NewGame(p.Name, conn, p.ControllerPackID, controller, OptionValues(p.Options), s.Fabric, s.Logger)
	if err != nil {
		conn.ShowError(err.Error())
		return
	}

	s.mu.Lock()
	s.games[g.ID] = g
	s.mu.Unlock()

	s.broadcastGameMetadata()
	conn.Send("focus_game", map[string]any{"game_id": g.ID})
}

type gameIDParams struct {
	GameID string `json:"game_id"`
}

func (s *Server) onDeleteGame(conn Connection, p gameIDParams) {
	s.mu.Lock()
	g, ok := s.games[p.GameID]
	if !ok {
		s.mu.Unlock()
		conn.ShowError("game does not exist")
		return
	}
	if g.Owner.DisplayName() != conn.DisplayName() {
		s.mu.Unlock()
		conn.ShowError("only the owner of this game can delete it")
		return
	}
	delete(s.games, p.GameID)
	s.mu.Unlock()

	s.Fabric.RemoveGame(g)
	g.Shutdown()
	s.broadcastGameMetadata()
}

func (s *Server) onShowGame(conn Connection, p gameIDParams) {
	s.mu.Lock()
	g, ok := s.games[p.GameID]
	s.mu.Unlock()
	if !ok {
		conn.ShowError("game does not exist")
		return
	}

	s.Fabric.Set(g, conn)
	conn.Send("update_game_data", g.FullData(conn))
}

type joinGameParams struct {
	GameID string `json:"game_id"`
	Color  int    `json:"color"`
}

func (s *Server) onJoinGame(conn Connection, p joinGameParams) {
	s.mu.Lock()
	g, ok := s.games[p.GameID]
	s.mu.Unlock()
	if !ok {
		conn.ShowError("game id does not exist")
		return
	}

	if _, seated := g.ColorOf(conn); seated {
		conn.ShowError("player is already in this game")
		return
	}

	color := Color(p.Color)
	if !color.Valid() {
		conn.ShowError("color does not exist")
		return
	}
	if _, taken := g.players.GetConnection(color); taken {
		conn.ShowError("that color is already taken in this game")
		return
	}

	g.AddPlayer(conn, color)
	s.broadcastGameMetadata()
	s.broadcastGameData(g)
}

func (s *Server) onLeaveGame(conn Connection, p gameIDParams) {
	s.mu.Lock()
	g, ok := s.games[p.GameID]
	s.mu.Unlock()
	if !ok {
		conn.ShowError("game id does not exist")
		return
	}

	if _, seated := g.ColorOf(conn); !seated {
		conn.ShowError("player is not in this game")
		return
	}

	g.players.RemoveConnection(conn)
	s.broadcastGameMetadata()
	s.broadcastGameData(g)
}

type pliesParams struct {
	GameID string `json:"game_id"`
	FromRow int   `json:"from_row"`
	FromCol int   `json:"from_col"`
	ToRow   int   `json:"to_row"`
	ToCol   int   `json:"to_col"`
}

func (s *Server) onPlies(conn Connection, p pliesParams) {
	s.mu.Lock()
	g, ok := s.games[p.GameID]
	s.mu.Unlock()
	if !ok {
		conn.ShowError("game id does not exist")
		return
	}
	if _, seated := g.ColorOf(conn); !seated {
		conn.ShowError("player is not in this game")
		return
	}

	from := Vector2{Row: p.FromRow, Col: p.FromCol}
	to := Vector2{Row: p.ToRow, Col: p.ToCol}
	plies := g.GetPlies(conn, from, to)
	g.ApplyOrOfferChoices(from, to, plies, conn)
}

type inventoryPliesParams struct {
	GameID          string `json:"game_id"`
	InventoryItemID string `json:"inventory_item_id"`
	ToRow           int    `json:"to_row"`
	ToCol           int    `json:"to_col"`
}

func (s *Server) onInventoryPlies(conn Connection, p inventoryPliesParams) {
	s.mu.Lock()
	g, ok := s.games[p.GameID]
	s.mu.Unlock()
	if !ok {
		conn.ShowError("game id does not exist")
		return
	}
	if _, seated := g.ColorOf(conn); !seated {
		conn.ShowError("player is not in this game")
		return
	}

	color, _ := g.ColorOf(conn)
	var item InventoryItem
	found := false
	g.glock.Lock()
	for _, it := range g.inventories[color] {
		if it.ID == p.InventoryItemID {
			item, found = it, true
			break
		}
	}
	g.glock.Unlock()
	if !found {
		conn.ShowError("you do not have that item in your inventory")
		return
	}

	to := Vector2{Row: p.ToRow, Col: p.ToCol}
	plies := g.GetInventoryPlies(conn, item, to)
	g.ApplyOrOfferChoices(Vector2{Row: -1, Col: -1}, to, plies, conn)
}

type submitPlyParams struct {
	GameID  string         `json:"game_id"`
	FromRow int            `json:"from_row"`
	FromCol int            `json:"from_col"`
	ToRow   int            `json:"to_row"`
	ToCol   int            `json:"to_col"`
	Ply     map[string]any `json:"ply"`
}

func (s *Server) onSubmitPly(conn Connection, p submitPlyParams) {
	s.mu.Lock()
	g, ok := s.games[p.GameID]
	s.mu.Unlock()
	if !ok {
		conn.ShowError("game id does not exist")
		return
	}

	color, seated := g.ColorOf(conn)
	if !seated {
		conn.ShowError("player is not in this game")
		return
	}
	from := Vector2{Row: p.FromRow, Col: p.FromCol}
	to := Vector2{Row: p.ToRow, Col: p.ToCol}
	candidates := g.GetPlies(conn, from, to)

	chosen := findSubmittedPly(candidates, p.Ply)
	if chosen == nil {
		conn.ShowError("ply not available")
		return
	}

	g.ApplyPly(color, chosen)
}

// findSubmittedPly locates the candidate whose wire encoding matches
// the client-submitted ply object exactly, per the submit_ply
// matching rule — the client can only ever "pick" a ply the server
// itself offered, never construct an arbitrary one.
func findSubmittedPly(candidates []*Ply, submitted map[string]any) *Ply {
	submittedBytes, err := json.Marshal(submitted)
	if err != nil {
		return nil
	}
	var submittedGeneric any
	if err := json.Unmarshal(submittedBytes, &submittedGeneric); err != nil {
		return nil
	}

	for _, candidate := range candidates {
		wireBytes, err := json.Marshal(candidate.ToWire())
		if err != nil {
			continue
		}
		var wireGeneric any
		if err := json.Unmarshal(wireBytes, &wireGeneric); err != nil {
			continue
		}
		if reflect.DeepEqual(wireGeneric, submittedGeneric) {
			return candidate
		}
	}
	return nil
}

func (s *Server) onClickButton(conn Connection, p struct {
	GameID   string `json:"game_id"`
	ButtonID string `json:"button_id"`
}) {
	s.mu.Lock()
	g, ok := s.games[p.GameID]
	s.mu.Unlock()
	if !ok {
		conn.ShowError("game id does not exist")
		return
	}
	g.ClickButton(conn, p.ButtonID)
}

func (s *Server) onSendChatMessage(conn Connection, p struct {
	Text   string `json:"text"`
	GameID string `json:"game_id"`
}) {
	if p.GameID == lobbyGameID {
		s.mu.Lock()
		conns := make([]Connection, 0, len(s.conns))
		for c := range s.conns {
			conns = append(conns, c)
		}
		s.mu.Unlock()

		for _, c := range conns {
			c.Send("receive_server_chat_message", map[string]any{"sender_id": conn.ID(), "text": p.Text})
		}
		return
	}

	s.mu.Lock()
	g, ok := s.games[p.GameID]
	s.mu.Unlock()
	if !ok {
		conn.ShowError("game id does not exist")
		return
	}
	g.AddChatMessage(conn, p.Text)
}
