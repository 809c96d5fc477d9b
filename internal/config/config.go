// Package config loads rvm's optional TOML configuration file and merges
// it with CLI flag values under a fixed precedence: flag > config file >
// built-in default.
package config

import (
	"github.com/BurntSushi/toml"
)

// Defaults, used when neither a flag nor a config file supplies a value.
const (
	DefaultMemBytes       = 1 << 16
	DefaultPeripheralBase = 0x80000000
	DefaultCycleBudget    = 1_000_000
)

// File is the shape of rvm.toml. Every field is optional; zero means
// "not set" and lets a caller fall through to the built-in default.
type File struct {
	MemBytes       int    `toml:"mem_bytes"`
	PeripheralBase uint32 `toml:"peripheral_base"`
	CycleBudget    int    `toml:"cycle_budget"`
}

// Load parses a TOML config file at path. A file that cannot be read or
// parsed is an error; callers only call Load when --config was actually
// supplied.
func Load(path string) (*File, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Resolved holds the final, precedence-applied runtime settings.
type Resolved struct {
	MemBytes       int
	PeripheralBase uint32
	CycleBudget    int
}

// Resolve applies flag > config > default precedence. memBytesSet,
// peripheralBaseSet, and cycleBudgetSet report which flags the user
// explicitly passed on the command line (cobra's Flags().Changed), so an
// unset flag at its zero value doesn't shadow a config file entry.
func Resolve(cfg *File, memBytes int, memBytesSet bool, peripheralBase uint32, peripheralBaseSet bool, cycleBudget int, cycleBudgetSet bool) Resolved {
	r := Resolved{
		MemBytes:       DefaultMemBytes,
		PeripheralBase: DefaultPeripheralBase,
		CycleBudget:    DefaultCycleBudget,
	}

	if cfg != nil {
		if cfg.MemBytes != 0 {
			r.MemBytes = cfg.MemBytes
		}
		if cfg.PeripheralBase != 0 {
			r.PeripheralBase = cfg.PeripheralBase
		}
		if cfg.CycleBudget != 0 {
			r.CycleBudget = cfg.CycleBudget
		}
	}

	if memBytesSet {
		r.MemBytes = memBytes
	}
	if peripheralBaseSet {
		r.PeripheralBase = peripheralBase
	}
	if cycleBudgetSet {
		r.CycleBudget = cycleBudget
	}

	return r
}
