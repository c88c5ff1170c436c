package train

import (
	"math"

	"github.com/freeeve/gridpursuit/pkg/gridworld"
)

// backup performs exact Bellman expectation backups over the joint state
// space. The three actors' transition models are independent, so the
// next-state distribution is composed actor by actor: agent first (the
// episode ends the moment the agent's own move is terminal), then target,
// then opponent.
type backup struct {
	sp       *gridworld.StateSpace
	reward   gridworld.RewardFunc
	discount float64

	agentModel    gridworld.DDMTD
	targetModel   gridworld.DDMTD
	opponentModel gridworld.DDMTD

	targetBehavior   gridworld.Behavior
	opponentBehavior gridworld.Behavior
}

// stateValue returns reward(s, chosen) + discount * E[V(s')] under the
// frozen previous value function.
func (b *backup) stateValue(s gridworld.State, chosen gridworld.Action, read func(int) float64) float64 {
	return b.reward(b.sp, s, chosen) + b.discount*b.expectedNext(s, chosen, read)
}

// expectedNext sums P(agent)×P(target)×P(opponent)×V(s') over every
// reachable next-position combination. Illegal displacements collapse to
// staying put via ResolveMove, so probability mass is never lost.
func (b *backup) expectedNext(s gridworld.State, chosen gridworld.Action, read func(int) float64) float64 {
	ev := 0.0
	agentProbs := b.agentModel.Distribution(chosen)
	for _, a := range gridworld.AllActions() {
		pa := agentProbs[a]
		if pa == 0 {
			continue
		}
		s1 := b.sp.ResolveMove(s, gridworld.RoleAgent, a)
		if s1.IsTerminal() {
			// Absorbing: the other actors no longer matter.
			ev += pa * b.valueOf(s1, read)
			continue
		}
		ev += pa * b.roleExpect(s1, gridworld.RoleTarget, b.targetBehavior, b.targetModel,
			func(s2 gridworld.State) float64 {
				return b.roleExpect(s2, gridworld.RoleOpponent, b.opponentBehavior, b.opponentModel, func(s3 gridworld.State) float64 {
					return b.valueOf(s3, read)
				})
			})
	}
	return ev
}

// roleExpect composes one actor's behavior choice with its DDMTD and
// averages val over the resulting positions.
func (b *backup) roleExpect(s gridworld.State, role gridworld.Role, beh gridworld.Behavior, model gridworld.DDMTD, val func(gridworld.State) float64) float64 {
	chosenProbs, moves := beh.ActionProbs(s, role)
	if !moves {
		return val(s)
	}
	ev := 0.0
	for _, chosen := range gridworld.AllActions() {
		pc := chosenProbs[chosen]
		if pc == 0 {
			continue
		}
		executedProbs := model.Distribution(chosen)
		for _, executed := range gridworld.AllActions() {
			pe := executedProbs[executed]
			if pe == 0 {
				continue
			}
			ev += pc * pe * val(b.sp.ResolveMove(s, role, executed))
		}
	}
	return ev
}

func (b *backup) valueOf(s gridworld.State, read func(int) float64) float64 {
	i, ok := b.sp.Index(s)
	if !ok {
		// ResolveMove keeps every reachable state inside the space.
		return 0
	}
	return read(i)
}

// actionScore is the improvement-phase objective for one candidate agent
// action. Actions whose deterministic displacement leaves the grid or hits
// an obstacle are masked to -Inf so the greedy policy never picks them.
func (b *backup) actionScore(s gridworld.State, a gridworld.Action, read func(int) float64) float64 {
	if !b.sp.Grid().IsFree(s.Agent.Move(a)) {
		return math.Inf(-1)
	}
	return b.stateValue(s, a, read)
}
