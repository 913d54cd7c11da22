// Configuration loading
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

// Package conf resolves the process configuration: the mandatory
// PORT environment variable overlaid with an optional TOML file named
// by CONFIG_FILE.
package conf

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// file is the optional on-disk overlay; any field left unset in the
// file keeps its default below.
type file struct {
	PacksDir           string `toml:"packs_dir"`
	Verbose            bool   `toml:"verbose"`
	MoveTimeoutSeconds uint   `toml:"move_timeout_seconds"`
	Ping               struct {
		Enabled         bool `toml:"enabled"`
		IntervalSeconds uint `toml:"interval_seconds"`
	} `toml:"ping"`
}

// Conf is the fully resolved process configuration.
type Conf struct {
	Port     string // required, from $PORT
	PacksDir string
	Verbose  bool

	// MoveTimeoutSeconds is read but not yet enforced anywhere in the
	// engine: no command carries a per-move deadline today, so this
	// only reserves the field and its TOML key for when one does.
	MoveTimeoutSeconds uint

	// Ping configures the websocket keepalive heartbeat, the
	// transport's analogue of the teacher's TCP pinger.
	Ping struct {
		Enabled         bool
		IntervalSeconds uint
	}
}

var defaults = file{
	PacksDir:           "packs",
	Verbose:            false,
	MoveTimeoutSeconds: 30,
	Ping: struct {
		Enabled         bool `toml:"enabled"`
		IntervalSeconds uint `toml:"interval_seconds"`
	}{
		Enabled:         true,
		IntervalSeconds: 54,
	},
}

// Load resolves Conf from the environment: PORT is required, and if
// CONFIG_FILE names a readable TOML file its fields overlay the
// defaults above.
func Load() (Conf, error) {
	port := os.Getenv("PORT")
	if port == "" {
		return Conf{}, fmt.Errorf("PORT environment variable is required")
	}
	if _, err := strconv.Atoi(port); err != nil {
		return Conf{}, fmt.Errorf("PORT environment variable must be numeric, got %q", port)
	}

	f := defaults
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, &f); err != nil {
			return Conf{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	c := Conf{
		Port:               port,
		PacksDir:           f.PacksDir,
		Verbose:            f.Verbose,
		MoveTimeoutSeconds: f.MoveTimeoutSeconds,
	}
	c.Ping.Enabled = f.Ping.Enabled
	c.Ping.IntervalSeconds = f.Ping.IntervalSeconds
	return c, nil
}
