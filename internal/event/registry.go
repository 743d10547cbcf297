// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present The onda-go Authors.

package event

import "fmt"

// Constructor builds a Source given its plugin name. Registered under the
// stable identifier strings named in spec.md §6.
type Constructor func(name string) Source

var registry = map[string]Constructor{
	"pilatus-files":    func(name string) Source { return NewFilesSource(name) },
	"jungfrau1m-files": func(name string) Source { return NewFilesSource(name) },
	"eiger16m-files":   func(name string) Source { return NewFilesSource(name) },
	"psana":            func(name string) Source { return NewPsanaSource() },
}

// New instantiates the registered Source for a plugin identifier.
func New(identifier string) (Source, error) {
	ctor, ok := registry[identifier]
	if !ok {
		return nil, fmt.Errorf("unknown data source identifier %q", identifier)
	}
	return ctor(identifier), nil
}

// Register adds or overrides a plugin constructor, e.g. for tests.
func Register(identifier string, ctor Constructor) {
	registry[identifier] = ctor
}
