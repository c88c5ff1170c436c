package config

import (
	"fmt"

	"github.com/freeeve/gridpursuit/internal/train"
	"github.com/freeeve/gridpursuit/pkg/gridworld"
)

// Build validates the training configuration and assembles the state space
// and trainer parameters. All misconfiguration is caught here, before any
// iteration runs.
func (c *TrainConfig) Build() (*gridworld.StateSpace, train.Params, error) {
	grid, err := gridworld.NewGrid(c.Width, c.Height, c.Obstacles)
	if err != nil {
		return nil, train.Params{}, fmt.Errorf("build grid: %w", err)
	}
	if c.Workers <= 0 {
		return nil, train.Params{}, fmt.Errorf("process count must be positive, got %d", c.Workers)
	}
	if c.MaxIter <= 0 {
		return nil, train.Params{}, fmt.Errorf("max iterations must be positive, got %d", c.MaxIter)
	}
	sp := gridworld.NewStateSpace(grid)
	reward := gridworld.DenseReward
	if c.Sparse {
		reward = gridworld.SparseReward
	}
	return sp, train.Params{
		Space:               sp,
		Reward:              reward,
		Discount:            c.Discount,
		AgentModel:          c.AgentModel,
		TargetModel:         c.TargetModel,
		OpponentModel:       c.OpponentModel,
		TargetBehavior:      c.TargetBehavior,
		OpponentBehavior:    c.OpponentBehavior,
		Workers:             c.Workers,
		UseFloat32:          c.UseFloat32,
		MaxIter:             c.MaxIter,
		ValueTolerance:      c.ValueTolerance,
		ActionTolerance:     c.ActionTolerance,
		ActionPercTolerance: c.ActionPercTolerance,
		StopAll:             c.StopAll,
	}, nil
}

// Build validates the play-session configuration: grid geometry, distinct
// in-bounds starting positions clear of obstacles.
func (c *GameConfig) Build() (*gridworld.StateSpace, gridworld.State, error) {
	var zero gridworld.State
	grid, err := gridworld.NewGrid(c.Width, c.Height, c.Obstacles)
	if err != nil {
		return nil, zero, fmt.Errorf("build grid: %w", err)
	}
	starts := []struct {
		name string
		pos  gridworld.Position
	}{
		{"agent", c.AgentStart},
		{"target", c.TargetStart},
		{"opponent", c.OpponentStart},
	}
	for i, s := range starts {
		if !grid.IsFree(s.pos) {
			return nil, zero, fmt.Errorf("%s start (%d,%d) is out of bounds or inside an obstacle", s.name, s.pos.X, s.pos.Y)
		}
		for _, other := range starts[i+1:] {
			if s.pos == other.pos {
				return nil, zero, fmt.Errorf("%s and %s share starting position (%d,%d)", s.name, other.name, s.pos.X, s.pos.Y)
			}
		}
	}
	sp := gridworld.NewStateSpace(grid)
	return sp, gridworld.State{Agent: c.AgentStart, Target: c.TargetStart, Opponent: c.OpponentStart}, nil
}
