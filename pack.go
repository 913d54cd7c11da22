// Pack descriptors and the pack registry
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
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PackFile is the parsed contents of a pack's pack.yml descriptor.
type PackFile struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Author      string   `yaml:"author"`
	Source      string   `yaml:"source"`
	DependsOn   []string `yaml:"depends_on"`
}

// ControllerFactory builds a fresh Controller instance for one game.
type ControllerFactory func() Controller

// ControllerInfo is everything a pack declares about one of its
// controllers, ahead of any particular game existing.
type ControllerInfo struct {
	Name    string
	New     ControllerFactory
	Options map[string]Option
}

// PieceInfo is everything a pack declares about one of its piece
// kinds: its static name and the SVG payload loaded at pack-load time.
type PieceInfo struct {
	Name  string
	Image string
}

// DecoratorInfo mirrors PieceInfo for decorator kinds.
type DecoratorInfo struct {
	Name  string
	Image string
}

// Pack is a loaded rule module: a descriptor plus the controllers,
// pieces and decorators it registered at init time.
type Pack struct {
	Name        string
	DisplayName string
	Controllers []ControllerInfo
	Pieces      []PieceInfo
	Decorators  []DecoratorInfo
}

// ToJSON renders the catalog shape clients see when listing
// installed packs.
func (p *Pack) ToJSON() map[string]any {
	controllers := make(map[string]any, len(p.Controllers))
	for _, c := range p.Controllers {
		options := make(map[string]any, len(c.Options))
		for name, opt := range c.Options {
			options[name] = opt.Default()
		}
		controllers[c.Name] = map[string]any{"options": options}
	}
	pieces := make(map[string]any, len(p.Pieces))
	for _, pc := range p.Pieces {
		pieces[pc.Name] = map[string]any{"image": pc.Image}
	}
	decorators := make(map[string]any, len(p.Decorators))
	for _, d := range p.Decorators {
		decorators[d.Name] = map[string]any{"image": d.Image}
	}
	return map[string]any{
		"display_name": p.DisplayName,
		"controllers":  controllers,
		"pieces":       pieces,
		"decorators":   decorators,
	}
}

// registry is the process-wide table of pack contributions. Go has no
// runtime module scan equivalent to the original's importlib/inspect
// walk over a packs directory, so each pack registers its
// controllers, pieces and decorators from its own init() instead; see
// RegisterController, RegisterPiece and RegisterDecorator.
var registry = struct {
	packs map[string]*Pack
}{packs: make(map[string]*Pack)}

func packFor(name string) *Pack {
	p, ok := registry.packs[name]
	if !ok {
		p = &Pack{Name: name}
		registry.packs[name] = p
	}
	return p
}

// RegisterController adds a controller factory to the named pack. Called from
// an init() function in the pack's own package.
func RegisterController(packName, controllerName string, factory ControllerFactory, options map[string]Option) {
	p := packFor(packName)
	p.Controllers = append(p.Controllers, ControllerInfo{Name: controllerName, New: factory, Options: options})
}

// RegisterPiece adds a piece kind's static metadata to the named pack.
func RegisterPiece(packName, pieceName, image string) {
	p := packFor(packName)
	p.Pieces = append(p.Pieces, PieceInfo{Name: pieceName, Image: image})
}

// RegisterDecorator adds a decorator kind's static metadata to the
// named pack.
func RegisterDecorator(packName, decoratorName, image string) {
	p := packFor(packName)
	p.Decorators = append(p.Decorators, DecoratorInfo{Name: decoratorName, Image: image})
}

// parsePackFile reads and validates one pack.yml, failing with a
// human-readable message naming the offending path and field — a
// missing or malformed pack descriptor is an operator mistake, not a
// recoverable runtime condition.
func parsePackFile(path string) (*PackFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pack descriptor %s: %w", path, err)
	}

	var pf PackFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("pack descriptor %s: invalid yaml: %w", path, err)
	}
	if pf.Name == "" {
		return nil, fmt.Errorf("pack descriptor %s is missing the name field", path)
	}
	if pf.Description == "" {
		return nil, fmt.Errorf("pack descriptor %s is missing the description field", path)
	}
	return &pf, nil
}

// LoadPacks walks packsDir for one subdirectory per pack, each
// expected to contain a pack.yml, and joins each descriptor against
// whatever that pack's init() registered under its directory name.
// A pack directory with no matching registration yields an empty
// (but present) Pack, since a descriptor may exist ahead of its code.
func LoadPacks(packsDir string) (map[string]*Pack, error) {
	entries, err := os.ReadDir(packsDir)
	if err != nil {
		return nil, fmt.Errorf("reading packs directory %s: %w", packsDir, err)
	}

	result := make(map[string]*Pack)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		descriptorPath := filepath.Join(packsDir, name, "pack.yml")
		pf, err := parsePackFile(descriptorPath)
		if err != nil {
			return nil, err
		}

		p := packFor(name)
		p.Name = name
		p.DisplayName = pf.Name
		result[name] = p
	}
	return result, nil
}
