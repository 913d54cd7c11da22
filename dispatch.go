// Command dispatcher
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
	"fmt"
	"reflect"
	"strings"
)

// Envelope is the inbound wire shape: a command name and its
// JSON-object parameters, decoded loosely so the dispatcher can
// type-check each field itself rather than trust encoding/json's
// silent coercions.
type Envelope struct {
	Command    string          `json:"command"`
	Parameters json.RawMessage `json:"parameters"`
}

// field describes one parameter the dispatcher expects, built once
// per handler at registration time by reflecting over its parameter
// struct — the Go analogue of inspect.signature over a Python
// callback's keyword arguments.
type field struct {
	name  string
	index int
	typ   reflect.Type
}

// handlerEntry pairs a bound handler with the parameter schema
// reflected from its second argument's struct type.
type handlerEntry struct {
	fn        reflect.Value
	paramType reflect.Type
	fields    []field
}

// Dispatcher routes inbound envelopes to registered handlers by
// command name, having type-checked every parameter against the
// schema captured at registration.
type Dispatcher struct {
	handlers map[string]handlerEntry
	logger   Logger
}

// NewDispatcher builds an empty command dispatcher.
func NewDispatcher(logger Logger) *Dispatcher {
	return &Dispatcher{handlers: make(map[string]handlerEntry), logger: logger}
}

// jsonFieldName returns the wire name for a struct field: its `json`
// tag if present, otherwise its lower_snake_case default.
func jsonFieldName(f reflect.StructField) string {
	if tag, ok := f.Tag.Lookup("json"); ok {
		name := strings.Split(tag, ",")[0]
		if name != "" {
			return name
		}
	}
	return toSnakeCase(f.Name)
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// Register binds a command name to handler, a func(Connection, P)
// where P is a struct naming its expected parameters. The parameter
// schema is built once here, by reflecting over P's fields; Dispatch
// re-validates every inbound call against it rather than trusting
// whatever encoding/json would otherwise coerce.
func (d *Dispatcher) Register(command string, handler any) {
	fn := reflect.ValueOf(handler)
	t := fn.Type()
	if t.Kind() != reflect.Func || t.NumIn() != 2 {
		panic(fmt.Sprintf("command %q: handler must be func(Connection, ParamsStruct)", command))
	}

	paramType := t.In(1)
	if paramType.Kind() != reflect.Struct {
		panic(fmt.Sprintf("command %q: second argument must be a struct", command))
	}

	fields := make([]field, 0, paramType.NumField())
	for i := 0; i < paramType.NumField(); i++ {
		sf := paramType.Field(i)
		if !sf.IsExported() {
			continue
		}
		fields = append(fields, field{name: jsonFieldName(sf), index: i, typ: sf.Type})
	}

	d.handlers[command] = handlerEntry{fn: fn, paramType: paramType, fields: fields}
}

// Dispatch decodes raw as an Envelope, resolves its command, strictly
// type-checks its parameters object against the handler's reflected
// schema, and invokes the handler. Any failure is reported to conn as
// a single show_error rather than propagated, matching the
// propagation policy every other engine entry point follows.
func (d *Dispatcher) Dispatch(conn Connection, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		conn.ShowError("invalid JSON")
		return
	}
	if env.Command == "" {
		conn.ShowError("command not specified")
		return
	}

	entry, ok := d.handlers[env.Command]
	if !ok {
		conn.ShowError("command not found")
		return
	}

	var rawParams map[string]json.RawMessage
	if len(entry.fields) > 0 {
		if len(env.Parameters) == 0 {
			names := make([]string, len(entry.fields))
			for i, f := range entry.fields {
				names[i] = f.name
			}
			conn.ShowError(fmt.Sprintf("this command requires the following parameters: %s", strings.Join(names, ", ")))
			return
		}
		if err := json.Unmarshal(env.Parameters, &rawParams); err != nil {
			conn.ShowError("parameters must be a JSON object")
			return
		}
	}

	args := reflect.New(entry.paramType).Elem()
	for _, f := range entry.fields {
		raw, present := rawParams[f.name]
		if !present {
			conn.ShowError(fmt.Sprintf("%q parameter not specified", f.name))
			return
		}
		target := reflect.New(f.typ)
		if err := json.Unmarshal(raw, target.Interface()); err != nil {
			conn.ShowError(fmt.Sprintf("%q parameter needs to be of type %s", f.name, f.typ))
			return
		}
		args.Field(f.index).Set(target.Elem())
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Errorf("command %s: recovered from panic: %v", env.Command, r)
			conn.ShowError("internal error")
		}
	}()
	entry.fn.Call([]reflect.Value{reflect.ValueOf(conn), args})
}
