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

import "testing"

type greetParams struct {
	Name string `json:"name"`
}

func TestDispatchUnknownCommand(t *testing.T) {
	d := NewDispatcher(nopLogger{})
	conn := newStubConnection("a")

	d.Dispatch(conn, []byte(`{"command":"nope"}`))

	if len(conn.errors) != 1 {
		t.Fatalf("expected one error, got %v", conn.errors)
	}
}

func TestDispatchMissingParameters(t *testing.T) {
	d := NewDispatcher(nopLogger{})
	called := false
	d.Register("greet", func(conn Connection, p greetParams) { called = true })
	conn := newStubConnection("a")

	d.Dispatch(conn, []byte(`{"command":"greet"}`))

	if called {
		t.Error("handler should not run without required parameters")
	}
	if len(conn.errors) != 1 {
		t.Fatalf("expected one error, got %v", conn.errors)
	}
}

func TestDispatchTypeMismatch(t *testing.T) {
	d := NewDispatcher(nopLogger{})
	d.Register("greet", func(conn Connection, p greetParams) {})
	conn := newStubConnection("a")

	d.Dispatch(conn, []byte(`{"command":"greet","parameters":{"name":42}}`))

	if len(conn.errors) != 1 {
		t.Fatalf("expected a type-mismatch error, got %v", conn.errors)
	}
}

func TestDispatchSuccess(t *testing.T) {
	d := NewDispatcher(nopLogger{})
	var got string
	d.Register("greet", func(conn Connection, p greetParams) { got = p.Name })
	conn := newStubConnection("a")

	d.Dispatch(conn, []byte(`{"command":"greet","parameters":{"name":"Ada"}}`))

	if len(conn.errors) != 0 {
		t.Fatalf("unexpected errors: %v", conn.errors)
	}
	if got != "Ada" {
		t.Errorf("handler received %q, want %q", got, "Ada")
	}
}

func TestDispatchNoParametersRequired(t *testing.T) {
	d := NewDispatcher(nopLogger{})
	called := false
	d.Register("ping", func(conn Connection, p struct{}) { called = true })
	conn := newStubConnection("a")

	d.Dispatch(conn, []byte(`{"command":"ping"}`))

	if !called {
		t.Error("expected handler to run")
	}
	if len(conn.errors) != 0 {
		t.Errorf("unexpected errors: %v", conn.errors)
	}
}

func TestDispatchInvalidJSON(t *testing.T) {
	d := NewDispatcher(nopLogger{})
	conn := newStubConnection("a")

	d.Dispatch(conn, []byte(`not json`))

	if len(conn.errors) != 1 {
		t.Fatalf("expected one error, got %v", conn.errors)
	}
}
