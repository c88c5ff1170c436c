package store

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"gorgonia.org/tensor"

	"github.com/freeeve/gridpursuit/pkg/gridworld"
)

func TestPolicyRoundTrip(t *testing.T) {
	p := gridworld.NewPolicy(6)
	p.SetAction(1, gridworld.Right)
	p.SetAction(3, gridworld.Down)
	p.SetAction(5, gridworld.Left)

	path := filepath.Join(t.TempDir(), "agent.policy")
	if err := SavePolicy(path, p); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.Equal(p) {
		t.Error("loaded policy differs")
	}
}

func TestSavePolicy_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.policy")
	first := gridworld.NewPolicy(4)
	if err := SavePolicy(path, first); err != nil {
		t.Fatalf("save: %v", err)
	}
	second := gridworld.NewPolicy(4)
	second.SetAction(0, gridworld.Left)
	if err := SavePolicy(path, second); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.Equal(second) {
		t.Error("overwrite kept stale bytes")
	}
}

func TestLoadPolicy_InvalidBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.policy")
	if err := os.WriteFile(path, []byte{0, 1, 9}, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadPolicy(path); err == nil {
		t.Error("invalid action byte should fail to load")
	}
}

func TestLoadPolicy_MissingFile(t *testing.T) {
	if _, err := LoadPolicy(filepath.Join(t.TempDir(), "nope.policy")); err == nil {
		t.Error("missing file should error")
	}
}

func TestValuesRoundTrip(t *testing.T) {
	for _, dt := range []tensor.Dtype{tensor.Float64, tensor.Float32} {
		d := tensor.New(tensor.Of(dt), tensor.WithShape(5))
		switch dt {
		case tensor.Float64:
			vals := d.Float64s()
			vals[0], vals[2], vals[4] = 0.5, -1, 0.729
		case tensor.Float32:
			vals := d.Float32s()
			vals[0], vals[2], vals[4] = 0.5, -1, 0.729
		}

		path := filepath.Join(t.TempDir(), "values.npy")
		if err := SaveValues(path, d); err != nil {
			t.Fatalf("%v save: %v", dt, err)
		}
		got, err := LoadValues(path)
		if err != nil {
			t.Fatalf("%v load: %v", dt, err)
		}
		if got.Dtype() != dt {
			t.Errorf("dtype: got %v, want %v", got.Dtype(), dt)
		}
		if got.Shape().TotalSize() != 5 {
			t.Errorf("%v size: got %d", dt, got.Shape().TotalSize())
		}
		if !reflect.DeepEqual(got.Data(), d.Data()) {
			t.Errorf("%v loaded values differ", dt)
		}
	}
}
