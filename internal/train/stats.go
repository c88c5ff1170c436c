package train

// IterationStats is the per-round snapshot handed to observers after each
// evaluate/improve cycle.
type IterationStats struct {
	Iteration         int     `json:"iteration"`
	MeanValue         float64 `json:"mean_value"`
	MaxValueDelta     float64 `json:"max_value_delta"`
	ChangedActions    int     `json:"changed_actions"`
	ChangedActionsPct float64 `json:"changed_actions_pct"`
}

// Observer receives iteration snapshots, synchronously, after each round.
// The trainer never depends on what an observer does with them.
type Observer interface {
	ObserveIteration(stats IterationStats)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(stats IterationStats)

// ObserveIteration calls f.
func (f ObserverFunc) ObserveIteration(stats IterationStats) { f(stats) }

// Outcome describes how a training run ended.
type Outcome int

const (
	// OutcomeConverged means a tolerance criterion halted the loop.
	OutcomeConverged Outcome = iota
	// OutcomeMaxIter means the iteration cap was hit first. This is a
	// normal termination path, not an error.
	OutcomeMaxIter
)

func (o Outcome) String() string {
	if o == OutcomeMaxIter {
		return "max_iter_reached"
	}
	return "converged"
}
