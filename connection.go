// Connection abstraction
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

// Connection is the engine's view of one logged-in client. The
// transport package supplies the concrete implementation (a
// websocket-backed connection); the engine only ever needs to emit
// typed events and recognize a returning connection by display name.
//
// Implementations must be valid map keys: the engine tracks
// connections by Go identity (pointer equality), never by ID string;
// a reconnect-by-name rebinds a new socket to the same connection
// value, so every map entry keyed by it stays valid.
type Connection interface {
	// ID is a stable, server-assigned identifier, reused across a
	// reconnect-by-name so clients can refer to "this connection" in
	// later messages within the same logical session.
	ID() string

	// DisplayName is the human-chosen name clients log in with; a
	// second login with the same name is a reconnect, not a new player.
	DisplayName() string

	// Send delivers one already-JSON-shaped outbound event. Send must
	// not block the caller past handing the value to this
	// connection's own serialized write queue.
	Send(event string, payload any)

	// ShowError delivers a human-readable error string tied to the
	// command that triggered it, per the show_error outbound message.
	ShowError(message string)

	// Close tears down the underlying transport. It is idempotent.
	Close()
}
