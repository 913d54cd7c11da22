// Websocket transport and the Connection implementation
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

// Package transport wires inbound websocket frames to a dispatcher
// and gives the engine its Connection implementation.
package transport

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	grid "gridhost"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 1 << 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// outboundFrame is the JSON shape of every message the engine sends a
// client, per the wire envelope in §6.
type outboundFrame struct {
	Command    string `json:"command"`
	Parameters any    `json:"parameters,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Conn is the websocket-backed grid.Connection implementation. Its
// outbound side is a single writer goroutine reading from a buffered
// channel, so concurrent Send/ShowError calls from handler goroutines
// never race on the underlying socket — the serialization the teacher
// achieves with a per-client lock, done here with a channel instead
// since gorilla/websocket connections are not safe for concurrent
// writers regardless.
type Conn struct {
	id          string
	displayName string

	mu     sync.Mutex
	socket *websocket.Conn
	active bool

	out chan outboundFrame
}

func newConn(displayName string) *Conn {
	return &Conn{
		id:          uuid.NewString(),
		displayName: displayName,
		out:         make(chan outboundFrame, 64),
	}
}

func (c *Conn) ID() string          { return c.id }
func (c *Conn) DisplayName() string { return c.displayName }

// Send enqueues an outbound command; it never blocks past handing the
// frame to this connection's own channel.
func (c *Conn) Send(command string, payload any) {
	select {
	case c.out <- outboundFrame{Command: command, Parameters: payload}:
	default:
		// Slow consumer: drop rather than stall the caller's critical
		// section. A reconnect will receive a fresh full snapshot.
	}
}

// ShowError delivers a show_error frame addressed only to this connection.
func (c *Conn) ShowError(message string) {
	select {
	case c.out <- outboundFrame{Command: "show_error", Error: message}:
	default:
	}
}

// Close marks the connection inactive and closes its socket. Safe to
// call more than once.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return
	}
	c.active = false
	if c.socket != nil {
		_ = c.socket.Close()
	}
}

func (c *Conn) rebind(socket *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.socket = socket
	c.active = true
}

// Manager accepts websocket upgrades, resolves the reconnect-by-name
// policy from §4.8, and drives each Conn's read/write pumps.
type Manager struct {
	mu       sync.Mutex
	byName   map[string]*Conn
	dispatch *grid.Dispatcher

	// PingEnabled and PingInterval configure the keepalive ping the
	// write pump sends on idle; callers overlay these from conf.Conf's
	// Ping fields after NewManager returns. PingEnabled defaults to
	// true and PingInterval to pingPeriod, matching the teacher's own
	// ping-on-by-default keepalive.
	PingEnabled  bool
	PingInterval time.Duration

	OnConnect    func(*Conn)
	OnDisconnect func(*Conn)
}

// NewManager builds a connection manager that routes inbound frames
// through d, with the keepalive ping enabled at its default interval.
func NewManager(d *grid.Dispatcher) *Manager {
	return &Manager{
		byName:       make(map[string]*Conn),
		dispatch:     d,
		PingEnabled:  true,
		PingInterval: pingPeriod,
	}
}

// resolveName implements reconnect-by-name: an inactive connection
// under the requested name is reused; an active one forces " (2)"
// suffixes until a free name is found; otherwise a new record is made.
func (m *Manager) resolveName(requested string) *Conn {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.byName[requested]; ok {
		if !existing.active {
			return existing
		}
		name := requested
		for {
			name += " (2)"
			if _, taken := m.byName[name]; !taken {
				break
			}
		}
		c := newConn(name)
		m.byName[name] = c
		return c
	}

	c := newConn(requested)
	m.byName[requested] = c
	return c
}

// ServeHTTP upgrades the request to a websocket connection, resolves
// its identity from the display_name query parameter, and runs its
// read/write pumps until the socket closes.
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	displayName := r.URL.Query().Get("display_name")
	if displayName == "" {
		http.Error(w, "display_name query parameter is required", http.StatusBadRequest)
		return
	}

	socket, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	conn := m.resolveName(displayName)
	conn.rebind(socket)

	if m.OnConnect != nil {
		m.OnConnect(conn)
	}

	done := make(chan struct{})
	go m.writePump(conn, done)
	m.readPump(conn, done)

	conn.Close()
	if m.OnDisconnect != nil {
		m.OnDisconnect(conn)
	}
}

func (m *Manager) readPump(conn *Conn, done chan struct{}) {
	defer close(done)

	conn.socket.SetReadLimit(maxMessageSize)
	_ = conn.socket.SetReadDeadline(time.Now().Add(pongWait))
	conn.socket.SetPongHandler(func(string) error {
		return conn.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.socket.ReadMessage()
		if err != nil {
			return
		}
		m.dispatch.Dispatch(conn, raw)
	}
}

func (m *Manager) writePump(conn *Conn, done chan struct{}) {
	// A disabled pinger leaves tick nil, which blocks forever in the
	// select below — the teacher disables its own keepalive the same
	// way, by never arming the timer rather than branching inside the
	// loop body.
	var tick <-chan time.Time
	if m.PingEnabled {
		interval := m.PingInterval
		if interval <= 0 {
			interval = pingPeriod
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case frame := <-conn.out:
			raw, err := json.Marshal(frame)
			if err != nil {
				continue
			}
			_ = conn.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.socket.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-tick:
			_ = conn.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
