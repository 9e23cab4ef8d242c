// Package tacttoml implements TACT's TOML constraint-mode: instead of
// a taxonomy-driven graft, the caller names exactly which clades to
// graft into (and which to hold back out), via a small declarative
// config file. Ported from
// original_source/tact/cli_add_toml.py's TactConstraint/TactItem.
package tacttoml

import (
	"errors"
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
)

// ErrConfig covers malformed or inconsistent constraint configuration.
var ErrConfig = errors.New("tacttoml: invalid configuration")

// Constraint names an MRCA by its member tip labels, and whether
// grafts may target its stem edge as well as its crown.
type Constraint struct {
	MRCA []string `toml:"mrca"`
	Stem bool     `toml:"stem"`
}

// Item describes one taxon (or clade) to graft: how many species are
// missing, which existing tips anchor it (Include, possibly more than
// one polyphyletic group), and which nested clades must be held back
// out of the graft (Exclude).
type Item struct {
	Name                     string       `toml:"name"`
	Missing                  int          `toml:"missing"`
	Include                  []Constraint `toml:"include"`
	Exclude                  []Constraint `toml:"exclude"`
	PreserveGenericMonophyly bool         `toml:"preserve_generic_monophyly"`
}

// Config is the top-level TOML document: a list of items to graft.
type Config struct {
	Tact []Item `toml:"tact"`
}

// ParseConfig reads and validates a constraint-mode configuration.
func ParseConfig(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	for _, it := range cfg.Tact {
		if len(it.Include) == 0 {
			return nil, fmt.Errorf("%w: %q needs at least one include", ErrConfig, it.Name)
		}
		for _, inc := range it.Include {
			if len(inc.MRCA) == 1 && !inc.Stem {
				return nil, fmt.Errorf("%w: %q has a singleton include that is not stem = true", ErrConfig, it.Name)
			}
		}
	}
	return &cfg, nil
}
