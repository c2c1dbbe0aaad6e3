// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

// Package config loads the interpreter's build-flag table (spec.md §6) from
// an optional TOML file next to the script being run, the same
// naoina/toml-based pattern the teacher module uses for its own node
// configuration (cmd/gprobe/config.go).
package config

import (
	"os"
	"reflect"

	"github.com/naoina/toml"

	"github.com/probechain/ember/vm"
)

// Flags mirrors vm.Config field-for-field so an ember.toml can set any of
// the build flags spec.md §6 lists without the VM package needing to know
// about TOML at all.
type Flags struct {
	DebugPrintCode      bool
	DebugTraceExecution bool
	DebugStressGC       bool
	DebugLogGC          bool
	DynamicTypeChecking bool
	NativeArityChecking bool
	AllowShadowing      bool
}

// tomlSettings mirrors the teacher's NormFieldName/FieldToKey pair so TOML
// keys match Go field names verbatim instead of naoina's default
// snake_case folding.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
}

// Default returns the all-flags-off configuration used when no ember.toml
// is present.
func Default() Flags { return Flags{} }

// Load reads and decodes path as TOML into a Flags value. A missing file is
// not an error — it returns Default(), matching the teacher's own
// "config file is optional" convention for node configuration.
func Load(path string) (Flags, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Flags{}, err
	}
	defer f.Close()

	var flags Flags
	if err := tomlSettings.NewDecoder(f).Decode(&flags); err != nil {
		return Flags{}, err
	}
	return flags, nil
}

// VMConfig translates Flags into a vm.Config, the only consumer that
// actually cares about these toggles at runtime.
func (f Flags) VMConfig() vm.Config {
	return vm.Config{
		DebugPrintCode:      f.DebugPrintCode,
		DebugTraceExecution: f.DebugTraceExecution,
		DebugStressGC:       f.DebugStressGC,
		DebugLogGC:          f.DebugLogGC,
		DynamicTypeChecking: f.DynamicTypeChecking,
		NativeArityChecking: f.NativeArityChecking,
		AllowShadowing:      f.AllowShadowing,
	}
}
