package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/gridpursuit/pkg/gridworld"
)

// ExtensionFunc handles one unrecognized directive. args holds the tokens
// after the keyword.
type ExtensionFunc func(args []string) error

// Extensions maps extra directive keywords to their handlers. Directives
// with no handler are skipped with a debug log, so one file can carry both
// train and play directives.
type Extensions map[string]ExtensionFunc

// Base holds the directives shared by train and play sessions.
type Base struct {
	Width, Height int
	Obstacles     []gridworld.Obstacle
	PolicyPath    string

	AgentModel    gridworld.DDMTD
	TargetModel   gridworld.DDMTD
	OpponentModel gridworld.DDMTD

	TargetBehavior   gridworld.Behavior
	OpponentBehavior gridworld.Behavior
}

// TrainConfig is the fully parsed training configuration.
type TrainConfig struct {
	Base

	Workers    int
	Discount   float64
	UseFloat32 bool
	Sparse     bool

	MaxIter             int
	ValueTolerance      float64
	ActionTolerance     int
	ActionPercTolerance float64
	StopAll             bool
}

// NewTrainConfig returns a TrainConfig with every default applied.
func NewTrainConfig() *TrainConfig {
	return &TrainConfig{
		Base:     defaultBase(),
		Workers:  1,
		Discount: 0.5,
		MaxIter:  100,
	}
}

// GameConfig is the fully parsed play-session configuration.
type GameConfig struct {
	Base

	AgentStart    gridworld.Position
	TargetStart   gridworld.Position
	OpponentStart gridworld.Position
}

// NewGameConfig returns a GameConfig with every default applied. Play
// sessions default the non-agent actors to a random walk.
func NewGameConfig() *GameConfig {
	c := &GameConfig{Base: defaultBase()}
	c.TargetBehavior = gridworld.RandomWalk{}
	c.OpponentBehavior = gridworld.RandomWalk{}
	return c
}

func defaultBase() Base {
	return Base{
		AgentModel:       gridworld.DefaultDDMTD(),
		TargetModel:      gridworld.DefaultDDMTD(),
		OpponentModel:    gridworld.DefaultDDMTD(),
		TargetBehavior:   gridworld.Stationary{},
		OpponentBehavior: gridworld.Stationary{},
	}
}

// LoadFile applies a directive file to the config. Later directives win
// over earlier ones; CLI flags applied after parsing win over the file.
func (c *TrainConfig) LoadFile(path string, ext Extensions) error {
	return eachLine(path, func(lineNo int, tokens, raw []string) error {
		if ok, err := c.applyLine(tokens); err != nil || ok {
			return err
		}
		if ok, err := c.Base.applyLine(tokens, raw); err != nil || ok {
			return err
		}
		return dispatchExtension(path, lineNo, tokens, ext)
	})
}

// LoadFile applies a directive file to the config.
func (c *GameConfig) LoadFile(path string, ext Extensions) error {
	return eachLine(path, func(lineNo int, tokens, raw []string) error {
		if ok, err := c.applyLine(tokens); err != nil || ok {
			return err
		}
		if ok, err := c.Base.applyLine(tokens, raw); err != nil || ok {
			return err
		}
		return dispatchExtension(path, lineNo, tokens, ext)
	})
}

func dispatchExtension(path string, lineNo int, tokens []string, ext Extensions) error {
	if fn, ok := ext[tokens[0]]; ok {
		return fn(tokens[1:])
	}
	log.Debug().Str("file", path).Int("line", lineNo).Strs("tokens", tokens).Msg("Skipping unrecognized directive")
	return nil
}

// eachLine streams a directive file: blank lines and #-comments skipped,
// whitespace-split. tokens is casefolded for keyword matching; raw keeps
// the original case so path arguments survive intact.
func eachLine(path string, fn func(lineNo int, tokens, raw []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		raw := strings.Fields(line)
		tokens := strings.Fields(strings.ToLower(line))
		if err := fn(lineNo, tokens, raw); err != nil {
			return fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// applyLine handles the directives common to both modes.
func (b *Base) applyLine(tokens, raw []string) (bool, error) {
	switch tokens[0] {
	case "mapsize":
		if err := wantArgs(tokens, 2); err != nil {
			return false, err
		}
		w, err := parseInt(tokens[1])
		if err != nil {
			return false, err
		}
		h, err := parseInt(tokens[2])
		if err != nil {
			return false, err
		}
		b.Width, b.Height = w, h
	case "obstacle":
		if err := wantArgs(tokens, 4); err != nil {
			return false, err
		}
		vals := make([]int, 4)
		for i := range vals {
			v, err := parseInt(tokens[i+1])
			if err != nil {
				return false, err
			}
			vals[i] = v
		}
		b.Obstacles = append(b.Obstacles, gridworld.Obstacle{
			Origin: gridworld.Position{X: vals[0], Y: vals[1]},
			Extent: gridworld.Position{X: vals[2], Y: vals[3]},
		})
	case "policy":
		if err := wantArgs(tokens, 1); err != nil {
			return false, err
		}
		b.PolicyPath = raw[1]
	case "ddmtd":
		if err := wantArgs(tokens, 5); err != nil {
			return false, err
		}
		probs := make([]float64, 4)
		for i := range probs {
			v, err := parseFloat(tokens[i+2])
			if err != nil {
				return false, err
			}
			probs[i] = v
		}
		model, err := gridworld.NewDDMTD(probs[0], probs[1], probs[2], probs[3])
		if err != nil {
			return false, err
		}
		switch tokens[1] {
		case "agent":
			b.AgentModel = model
		case "target":
			b.TargetModel = model
		case "opponent":
			b.OpponentModel = model
		default:
			return false, fmt.Errorf("ddmtd wants agent, target or opponent, got %q", tokens[1])
		}
	case "behavior":
		if err := wantArgs(tokens, 2); err != nil {
			return false, err
		}
		behavior, err := gridworld.ParseBehavior(tokens[2])
		if err != nil {
			return false, err
		}
		switch tokens[1] {
		case "target":
			b.TargetBehavior = behavior
		case "opponent":
			b.OpponentBehavior = behavior
		default:
			return false, fmt.Errorf("behavior wants target or opponent, got %q", tokens[1])
		}
	default:
		return false, nil
	}
	return true, nil
}

// applyLine handles train-only directives.
func (c *TrainConfig) applyLine(tokens []string) (bool, error) {
	var err error
	switch tokens[0] {
	case "maxiter":
		c.MaxIter, err = oneIntArg(tokens)
	case "processes":
		c.Workers, err = oneIntArg(tokens)
	case "actiontolerance":
		c.ActionTolerance, err = oneIntArg(tokens)
	case "valuetolerance":
		c.ValueTolerance, err = oneFloatArg(tokens)
	case "actionperctolerance":
		c.ActionPercTolerance, err = oneFloatArg(tokens)
	case "discount":
		c.Discount, err = oneFloatArg(tokens)
	case "usefloat":
		c.UseFloat32 = true
	case "usedouble":
		c.UseFloat32 = false
	case "densereward":
		c.Sparse = false
	case "sparsereward":
		c.Sparse = true
	case "stoprule":
		if err = wantArgs(tokens, 1); err == nil {
			switch tokens[1] {
			case "any":
				c.StopAll = false
			case "all":
				c.StopAll = true
			default:
				err = fmt.Errorf("stoprule wants any or all, got %q", tokens[1])
			}
		}
	default:
		return false, nil
	}
	return err == nil, err
}

// applyLine handles play-only directives.
func (c *GameConfig) applyLine(tokens []string) (bool, error) {
	var pos *gridworld.Position
	switch tokens[0] {
	case "agent":
		pos = &c.AgentStart
	case "target":
		pos = &c.TargetStart
	case "opponent":
		pos = &c.OpponentStart
	default:
		return false, nil
	}
	if err := wantArgs(tokens, 2); err != nil {
		return false, err
	}
	x, err := parseInt(tokens[1])
	if err != nil {
		return false, err
	}
	y, err := parseInt(tokens[2])
	if err != nil {
		return false, err
	}
	pos.X, pos.Y = x, y
	return true, nil
}

func wantArgs(tokens []string, n int) error {
	if len(tokens) != n+1 {
		return fmt.Errorf("%s wants %d arguments, got %d", tokens[0], n, len(tokens)-1)
	}
	return nil
}

func oneIntArg(tokens []string) (int, error) {
	if err := wantArgs(tokens, 1); err != nil {
		return 0, err
	}
	return parseInt(tokens[1])
}

func oneFloatArg(tokens []string) (float64, error) {
	if err := wantArgs(tokens, 1); err != nil {
		return 0, err
	}
	return parseFloat(tokens[1])
}

func parseInt(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad integer %q", s)
	}
	return v, nil
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", s)
	}
	return v, nil
}
