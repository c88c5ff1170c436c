// Package store persists trained policies and value functions: raw action
// bytes on disk, npy dumps of the value function, a Redis mirror for play
// sessions, and a Postgres repository for training-run history.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"gorgonia.org/tensor"

	"github.com/freeeve/gridpursuit/pkg/gridworld"
)

// SavePolicy writes the policy as raw action bytes, one per valid state.
// The write goes through a temp file and a rename so a crashed run never
// leaves a partial policy behind.
func SavePolicy(path string, p *gridworld.Policy) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".policy-*")
	if err != nil {
		return fmt.Errorf("create temp policy file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(p.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write policy: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close policy file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace policy file: %w", err)
	}
	return nil
}

// LoadPolicy reads a policy saved by SavePolicy. The caller checks the
// size against its state space.
func LoadPolicy(path string) (*gridworld.Policy, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	p, err := gridworld.PolicyFromBytes(b)
	if err != nil {
		return nil, fmt.Errorf("load policy %s: %w", path, err)
	}
	return p, nil
}

// SaveValues dumps the value function buffer in npy format, preserving the
// configured dtype exactly.
func SaveValues(path string, d *tensor.Dense) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".values-*")
	if err != nil {
		return fmt.Errorf("create temp values file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := d.WriteNpy(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write values: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close values file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace values file: %w", err)
	}
	return nil
}

// LoadValues reads a value function written by SaveValues.
func LoadValues(path string) (*tensor.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open values: %w", err)
	}
	defer f.Close()
	d := new(tensor.Dense)
	if err := d.ReadNpy(f); err != nil {
		return nil, fmt.Errorf("read values %s: %w", path, err)
	}
	return d, nil
}
