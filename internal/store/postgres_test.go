//go:build integration

package store

import (
	"context"
	"math"
	"testing"

	"github.com/freeeve/gridpursuit/internal/testutil"
	"github.com/freeeve/gridpursuit/internal/train"
)

func TestRunRepo_Lifecycle(t *testing.T) {
	db := testutil.SetupDB(t)
	repo := NewRunRepo(db)
	ctx := context.Background()

	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	testutil.CleanupDB(t, db)

	id, err := repo.CreateRun(ctx, RunInfo{
		Label:      "integration",
		GridWidth:  8,
		GridHeight: 8,
		States:     64 * 64 * 63,
		Discount:   0.9,
		Workers:    4,
	})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if id == 0 {
		t.Fatal("run id should be assigned")
	}

	stats := []train.IterationStats{
		{Iteration: 1, MeanValue: 0.01, MaxValueDelta: 1, ChangedActions: 500, ChangedActionsPct: 0.5},
		{Iteration: 2, MeanValue: 0.02, MaxValueDelta: 0.4, ChangedActions: 120, ChangedActionsPct: 0.12},
		{Iteration: 3, MeanValue: 0.025, MaxValueDelta: 0.1, ChangedActions: 0, ChangedActionsPct: 0},
	}
	for _, s := range stats {
		if err := repo.RecordIteration(ctx, id, s); err != nil {
			t.Fatalf("record iteration %d: %v", s.Iteration, err)
		}
	}

	if err := repo.FinishRun(ctx, id, "converged", 3); err != nil {
		t.Fatalf("finish run: %v", err)
	}

	got, err := repo.ListIterations(ctx, id)
	if err != nil {
		t.Fatalf("list iterations: %v", err)
	}
	if len(got) != len(stats) {
		t.Fatalf("iterations: got %d, want %d", len(got), len(stats))
	}
	for i, s := range stats {
		if got[i].Iteration != s.Iteration ||
			got[i].ChangedActions != s.ChangedActions ||
			math.Abs(got[i].MeanValue-s.MeanValue) > 1e-12 {
			t.Errorf("iteration %d: got %+v, want %+v", i+1, got[i], s)
		}
	}
}

func TestRunRepo_RecordIterationUnknownRun(t *testing.T) {
	db := testutil.SetupDB(t)
	repo := NewRunRepo(db)
	ctx := context.Background()

	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	testutil.CleanupDB(t, db)

	err := repo.RecordIteration(ctx, 999999, train.IterationStats{Iteration: 1})
	if err == nil {
		t.Error("foreign key violation should surface")
	}
}
