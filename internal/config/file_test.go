package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/freeeve/gridpursuit/pkg/gridworld"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.cfg")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestTrainConfigLoadFile(t *testing.T) {
	path := writeConfig(t, `
# training session
MAPSIZE 8 6
OBSTACLE 2 2 2 1
Obstacle 5 0 1 3
POLICY out/MixedCase.policy
MAXITER 250
PROCESSES 4
DISCOUNT 0.9
VALUETOLERANCE 0.001
ACTIONTOLERANCE 10
ACTIONPERCTOLERANCE 0.05
USEFLOAT
SPARSEREWARD
STOPRULE all
DDMTD opponent 0.25 0.25 0.25 0.25
BEHAVIOR opponent pursue
`)
	cfg := NewTrainConfig()
	if err := cfg.LoadFile(path, nil); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Width != 8 || cfg.Height != 6 {
		t.Errorf("map size: got %dx%d", cfg.Width, cfg.Height)
	}
	if len(cfg.Obstacles) != 2 {
		t.Fatalf("obstacles: got %d", len(cfg.Obstacles))
	}
	if cfg.Obstacles[0] != (gridworld.Obstacle{Origin: gridworld.Position{X: 2, Y: 2}, Extent: gridworld.Position{X: 2, Y: 1}}) {
		t.Errorf("first obstacle: got %+v", cfg.Obstacles[0])
	}
	if cfg.PolicyPath != "out/MixedCase.policy" {
		t.Errorf("policy path lost its case: %q", cfg.PolicyPath)
	}
	if cfg.MaxIter != 250 || cfg.Workers != 4 {
		t.Errorf("maxiter/workers: got %d/%d", cfg.MaxIter, cfg.Workers)
	}
	if cfg.Discount != 0.9 {
		t.Errorf("discount: got %v", cfg.Discount)
	}
	if cfg.ValueTolerance != 0.001 || cfg.ActionTolerance != 10 || cfg.ActionPercTolerance != 0.05 {
		t.Errorf("tolerances: got %v/%d/%v", cfg.ValueTolerance, cfg.ActionTolerance, cfg.ActionPercTolerance)
	}
	if !cfg.UseFloat32 {
		t.Error("USEFLOAT ignored")
	}
	if !cfg.Sparse {
		t.Error("SPARSEREWARD ignored")
	}
	if !cfg.StopAll {
		t.Error("STOPRULE all ignored")
	}
	if cfg.OpponentModel.Prob(gridworld.Up, gridworld.Down) != 0.25 {
		t.Error("opponent DDMTD not applied")
	}
	if _, ok := cfg.OpponentBehavior.(gridworld.Pursue); !ok {
		t.Errorf("opponent behavior: got %T", cfg.OpponentBehavior)
	}
	if _, ok := cfg.TargetBehavior.(gridworld.Stationary); !ok {
		t.Errorf("target behavior default: got %T", cfg.TargetBehavior)
	}
}

func TestTrainConfigDefaults(t *testing.T) {
	cfg := NewTrainConfig()
	if cfg.Workers != 1 || cfg.Discount != 0.5 || cfg.MaxIter != 100 {
		t.Errorf("defaults: workers %d, discount %v, maxiter %d", cfg.Workers, cfg.Discount, cfg.MaxIter)
	}
	if cfg.UseFloat32 || cfg.Sparse || cfg.StopAll {
		t.Error("flag defaults should all be off")
	}
	if cfg.AgentModel != gridworld.DefaultDDMTD() {
		t.Error("agent model should default to the standard actuation noise")
	}
}

func TestTrainConfigLoadFile_LaterDirectiveWins(t *testing.T) {
	path := writeConfig(t, "MAPSIZE 4 4\nMAXITER 10\nMAXITER 20\n")
	cfg := NewTrainConfig()
	if err := cfg.LoadFile(path, nil); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxIter != 20 {
		t.Errorf("maxiter: got %d, want 20", cfg.MaxIter)
	}
}

// Directives neither mode understands are skipped, so one file can carry
// both training and play sessions.
func TestTrainConfigLoadFile_SkipsUnknownDirectives(t *testing.T) {
	path := writeConfig(t, "MAPSIZE 4 4\nAGENT 0 0\nTARGET 3 3\nOPPONENT 0 3\n")
	cfg := NewTrainConfig()
	if err := cfg.LoadFile(path, nil); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Width != 4 {
		t.Errorf("map size: got %d", cfg.Width)
	}
}

func TestTrainConfigLoadFile_Extensions(t *testing.T) {
	path := writeConfig(t, "MAPSIZE 4 4\nCUSTOMRULE alpha beta\n")
	var got []string
	cfg := NewTrainConfig()
	err := cfg.LoadFile(path, Extensions{
		"customrule": func(args []string) error {
			got = append(got, args...)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[0] != "alpha" || got[1] != "beta" {
		t.Errorf("extension args: got %v", got)
	}
}

func TestTrainConfigLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantSub string
	}{
		{"bad integer", "MAPSIZE x 4\n", "bad integer"},
		{"missing args", "MAPSIZE 4\n", "wants 2 arguments"},
		{"bad ddmtd role", "DDMTD ghost 1 0 0 0\n", "ddmtd wants"},
		{"ddmtd sum", "DDMTD agent 0.5 0.1 0.1 0.1\n", "sum to 1"},
		{"bad behavior", "BEHAVIOR target teleport\n", "unknown behavior"},
		{"bad stoprule", "STOPRULE sometimes\n", "stoprule wants"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			err := NewTrainConfig().LoadFile(path, nil)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q missing %q", err, tt.wantSub)
			}
			if !strings.Contains(err.Error(), ":1:") {
				t.Errorf("error %q missing line number", err)
			}
		})
	}
}

func TestGameConfigLoadFile(t *testing.T) {
	path := writeConfig(t, `
MAPSIZE 5 5
POLICY agent.policy
AGENT 0 0
TARGET 4 4
OPPONENT 4 0
BEHAVIOR target evade
MAXITER 50
`)
	cfg := NewGameConfig()
	if err := cfg.LoadFile(path, nil); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AgentStart != (gridworld.Position{X: 0, Y: 0}) ||
		cfg.TargetStart != (gridworld.Position{X: 4, Y: 4}) ||
		cfg.OpponentStart != (gridworld.Position{X: 4, Y: 0}) {
		t.Errorf("starts: %+v %+v %+v", cfg.AgentStart, cfg.TargetStart, cfg.OpponentStart)
	}
	if _, ok := cfg.TargetBehavior.(gridworld.Evade); !ok {
		t.Errorf("target behavior: got %T", cfg.TargetBehavior)
	}
	if _, ok := cfg.OpponentBehavior.(gridworld.RandomWalk); !ok {
		t.Errorf("opponent behavior default: got %T", cfg.OpponentBehavior)
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	if err := NewTrainConfig().LoadFile(filepath.Join(t.TempDir(), "nope.cfg"), nil); err == nil {
		t.Error("missing file should error")
	}
}
