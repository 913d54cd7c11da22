// Structured logging
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
	"io"
	"log"
	"os"
)

// Logger is the narrow logging surface the engine calls through;
// server.go constructs the stdlib-backed implementation below, tests
// can substitute a no-op or recording one.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

// stdLogger splits debug output from info/error output the way the
// teacher's own Debug/Log pair does, so debug logging can be
// silenced (io.Discard) independent of the rest.
type stdLogger struct {
	debug *log.Logger
	info  *log.Logger
	error *log.Logger
}

// NewLogger builds a Logger writing info and error lines to stderr.
// Debug lines go to io.Discard unless verbose is true.
func NewLogger(verbose bool) Logger {
	debugOut := io.Writer(io.Discard)
	if verbose {
		debugOut = os.Stderr
	}
	return &stdLogger{
		debug: log.New(debugOut, "[debug] ", log.Ltime|log.Lshortfile),
		info:  log.New(os.Stderr, "[info] ", log.Ltime),
		error: log.New(os.Stderr, "[error] ", log.Ltime|log.Lshortfile),
	}
}

func (l *stdLogger) Debugf(format string, args ...any) { l.debug.Printf(format, args...) }
func (l *stdLogger) Infof(format string, args ...any)  { l.info.Printf(format, args...) }
func (l *stdLogger) Errorf(format string, args ...any) { l.error.Printf(format, args...) }
