package gridworld

// Reward values shared by the shaping modes.
const (
	rewardSuccess  = 1.0
	rewardCapture  = -1.0
	rewardNearFoe  = -0.1
	rewardStepCost = -0.01
)

// RewardFunc scores the agent choosing an action in a state. The chosen
// action is applied deterministically (bounds-checked, before any
// stochastic resolution); terminal states are absorbing and yield 0, so
// the ±1 signal is paid exactly once, on the transition into a terminal.
type RewardFunc func(sp *StateSpace, s State, chosen Action) float64

// SparseReward pays only the terminal signal: +1 for stepping onto the
// target, -1 for stepping onto the opponent.
func SparseReward(sp *StateSpace, s State, chosen Action) float64 {
	if s.IsTerminal() {
		return 0
	}
	next := sp.ResolveMove(s, RoleAgent, chosen)
	switch {
	case next.IsSuccess():
		return rewardSuccess
	case next.IsCapture():
		return rewardCapture
	}
	return 0
}

// DenseReward adds per-step shaping to the sparse signal: a small constant
// step cost, worse when the move ends adjacent to the opponent.
func DenseReward(sp *StateSpace, s State, chosen Action) float64 {
	if s.IsTerminal() {
		return 0
	}
	next := sp.ResolveMove(s, RoleAgent, chosen)
	switch {
	case next.IsSuccess():
		return rewardSuccess
	case next.IsCapture():
		return rewardCapture
	case ManhattanDistance(next.Agent, next.Opponent) == 1:
		return rewardNearFoe
	}
	return rewardStepCost
}
