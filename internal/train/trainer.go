package train

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/gridpursuit/pkg/gridworld"
)

// Params configures a training run. Everything is validated up front;
// once Run starts, the loop is a pure numeric fixed-point computation
// that cannot fail.
type Params struct {
	Space    *gridworld.StateSpace
	Reward   gridworld.RewardFunc
	Discount float64

	// Zero-valued models fall back to DefaultDDMTD.
	AgentModel    gridworld.DDMTD
	TargetModel   gridworld.DDMTD
	OpponentModel gridworld.DDMTD

	// Behaviors of the non-agent actors during backups. Nil means
	// Stationary, the default training assumption.
	TargetBehavior   gridworld.Behavior
	OpponentBehavior gridworld.Behavior

	Workers    int // defaults to 1
	UseFloat32 bool

	MaxIter             int // defaults to 100
	ValueTolerance      float64
	ActionTolerance     int
	ActionPercTolerance float64

	// StopAll requires every stop criterion to hold at once instead of
	// any single one.
	StopAll bool
}

// Result is the output of a completed run.
type Result struct {
	Outcome    Outcome
	Iterations int
	Policy     *gridworld.Policy
	Values     *Values
	Final      IterationStats
}

type interval struct {
	start, end int
}

// Trainer runs policy iteration over a joint state space with a fixed pool
// of workers on disjoint index partitions.
type Trainer struct {
	params    Params
	bk        backup
	values    *Values
	policy    *gridworld.Policy
	parts     []interval
	observers []Observer
}

// NewTrainer validates params and allocates the value buffers and the
// initial policy (every state mapped to the first action).
func NewTrainer(p Params) (*Trainer, error) {
	if p.Space == nil {
		return nil, fmt.Errorf("trainer needs a state space")
	}
	if p.Workers == 0 {
		p.Workers = 1
	}
	if p.MaxIter == 0 {
		p.MaxIter = 100
	}
	if p.Workers < 0 {
		return nil, fmt.Errorf("worker count must be positive, got %d", p.Workers)
	}
	if p.MaxIter < 0 {
		return nil, fmt.Errorf("max iterations must be positive, got %d", p.MaxIter)
	}
	if p.Discount < 0 || p.Discount > 1 {
		return nil, fmt.Errorf("discount factor must be in [0,1], got %v", p.Discount)
	}
	if p.ValueTolerance < 0 || p.ActionTolerance < 0 || p.ActionPercTolerance < 0 {
		return nil, fmt.Errorf("tolerances must be non-negative")
	}
	if p.Reward == nil {
		p.Reward = gridworld.DenseReward
	}
	if p.AgentModel == (gridworld.DDMTD{}) {
		p.AgentModel = gridworld.DefaultDDMTD()
	}
	if p.TargetModel == (gridworld.DDMTD{}) {
		p.TargetModel = gridworld.DefaultDDMTD()
	}
	if p.OpponentModel == (gridworld.DDMTD{}) {
		p.OpponentModel = gridworld.DefaultDDMTD()
	}
	if p.TargetBehavior == nil {
		p.TargetBehavior = gridworld.Stationary{}
	}
	if p.OpponentBehavior == nil {
		p.OpponentBehavior = gridworld.Stationary{}
	}
	size := p.Space.Size()
	if size < p.Workers {
		log.Warn().Int("states", size).Int("workers", p.Workers).Msg("More workers than valid states")
	}
	t := &Trainer{
		params: p,
		bk: backup{
			sp:               p.Space,
			reward:           p.Reward,
			discount:         p.Discount,
			agentModel:       p.AgentModel,
			targetModel:      p.TargetModel,
			opponentModel:    p.OpponentModel,
			targetBehavior:   p.TargetBehavior,
			opponentBehavior: p.OpponentBehavior,
		},
		values: NewValues(size, p.UseFloat32),
		policy: gridworld.NewPolicy(size),
		parts:  partition(size, p.Workers),
	}
	return t, nil
}

// partition splits [0,size) into count contiguous intervals whose lengths
// differ by at most one.
func partition(size, count int) []interval {
	per, rem := size/count, size%count
	parts := make([]interval, 0, count)
	start := 0
	for i := 0; i < count; i++ {
		end := start + per
		if i < rem {
			end++
		}
		parts = append(parts, interval{start, end})
		start = end
	}
	return parts
}

// AddObserver registers an observer invoked synchronously after each round.
func (t *Trainer) AddObserver(o Observer) {
	t.observers = append(t.observers, o)
}

// Policy returns the live policy. It is mutated across rounds until Run
// returns.
func (t *Trainer) Policy() *gridworld.Policy { return t.policy }

// Run iterates evaluate/improve rounds until a stop criterion holds or ctx
// is cancelled. Hitting MaxIter is a normal outcome.
func (t *Trainer) Run(ctx context.Context) (*Result, error) {
	stats := IterationStats{
		MaxValueDelta:     math.Inf(1),
		ChangedActions:    t.params.Space.Size(),
		ChangedActionsPct: 1,
	}
	for !t.shouldStop(stats) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stats = t.round(stats.Iteration + 1)
		for _, o := range t.observers {
			o.ObserveIteration(stats)
		}
	}
	res := &Result{
		Outcome:    OutcomeConverged,
		Iterations: stats.Iteration,
		Policy:     t.policy,
		Values:     t.values,
		Final:      stats,
	}
	if stats.Iteration >= t.params.MaxIter && !t.toleranceMet(stats) {
		res.Outcome = OutcomeMaxIter
	}
	log.Info().
		Int("iterations", res.Iterations).
		Str("outcome", res.Outcome.String()).
		Float64("maxValueDelta", stats.MaxValueDelta).
		Msg("Training finished")
	return res, nil
}

func (t *Trainer) shouldStop(stats IterationStats) bool {
	iterDone := stats.Iteration >= t.params.MaxIter
	if t.params.StopAll {
		return iterDone && t.toleranceMet(stats)
	}
	return iterDone || t.anyToleranceMet(stats)
}

func (t *Trainer) anyToleranceMet(stats IterationStats) bool {
	return stats.MaxValueDelta <= t.params.ValueTolerance ||
		stats.ChangedActions <= t.params.ActionTolerance ||
		stats.ChangedActionsPct <= t.params.ActionPercTolerance
}

func (t *Trainer) toleranceMet(stats IterationStats) bool {
	if t.params.StopAll {
		return stats.MaxValueDelta <= t.params.ValueTolerance &&
			stats.ChangedActions <= t.params.ActionTolerance &&
			stats.ChangedActionsPct <= t.params.ActionPercTolerance
	}
	return t.anyToleranceMet(stats)
}

// round runs one evaluation pass and one improvement pass, with a barrier
// after each so the merged buffers are complete before anyone reads them.
func (t *Trainer) round(iteration int) IterationStats {
	stats := IterationStats{Iteration: iteration}

	maxDiffs := make([]float64, len(t.parts))
	t.runPhase(func(w, start, end int) {
		maxDiffs[w] = t.evaluateSlice(start, end)
	})
	t.values.Swap()
	for _, d := range maxDiffs {
		if d > stats.MaxValueDelta {
			stats.MaxValueDelta = d
		}
	}
	// Summed over the merged buffer in index order, so the mean is
	// identical no matter how many workers ran.
	sum := 0.0
	for i := 0; i < t.values.Size(); i++ {
		sum += t.values.At(i)
	}
	stats.MeanValue = sum / float64(t.values.Size())

	changed := make([]int, len(t.parts))
	t.runPhase(func(w, start, end int) {
		changed[w] = t.improveSlice(start, end)
	})
	for _, c := range changed {
		stats.ChangedActions += c
	}
	stats.ChangedActionsPct = float64(stats.ChangedActions) / float64(t.params.Space.Size())
	return stats
}

// runPhase fans a phase out over the fixed partitions and waits for all of
// them. Workers only read the frozen buffers and write their own slice, so
// there is nothing to lock.
func (t *Trainer) runPhase(fn func(worker, start, end int)) {
	if len(t.parts) == 1 {
		fn(0, t.parts[0].start, t.parts[0].end)
		return
	}
	var wg sync.WaitGroup
	for w, iv := range t.parts {
		wg.Add(1)
		go func(w int, iv interval) {
			defer wg.Done()
			fn(w, iv.start, iv.end)
		}(w, iv)
	}
	wg.Wait()
}

// evaluateSlice applies the Bellman expectation backup under the current
// policy to [start,end) and returns the largest value change. Terminal
// states stay pinned at zero.
func (t *Trainer) evaluateSlice(start, end int) float64 {
	maxDiff := 0.0
	for i := start; i < end; i++ {
		s := t.params.Space.StateAt(i)
		newValue := 0.0
		if !s.IsTerminal() {
			newValue = t.bk.stateValue(s, t.policy.Action(i), t.values.At)
		}
		t.values.SetNext(i, newValue)
		if diff := math.Abs(t.values.NextAt(i) - t.values.At(i)); diff > maxDiff {
			maxDiff = diff
		}
	}
	return maxDiff
}

// improveSlice greedily re-picks the action of every non-terminal state in
// [start,end) against the freshly evaluated value function. Ties keep the
// earliest action in enumeration order, so repeated runs agree.
func (t *Trainer) improveSlice(start, end int) int {
	changed := 0
	for i := start; i < end; i++ {
		s := t.params.Space.StateAt(i)
		if s.IsTerminal() {
			continue
		}
		best := gridworld.Up
		bestScore := math.Inf(-1)
		for _, a := range gridworld.AllActions() {
			if score := t.bk.actionScore(s, a, t.values.At); score > bestScore {
				best, bestScore = a, score
			}
		}
		if best != t.policy.Action(i) {
			changed++
			t.policy.SetAction(i, best)
		}
	}
	return changed
}
