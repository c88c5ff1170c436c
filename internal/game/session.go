// Package game plays single noisy trajectories of a trained policy: the
// agent follows the policy, the other actors follow their behaviors, and
// every displacement is perturbed by the actor's own DDMTD sample.
package game

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/freeeve/gridpursuit/pkg/gridworld"
)

// Result is the outcome of a play session.
type Result int

const (
	// ResultPending means the session is still running.
	ResultPending Result = iota
	// ResultSuccess means the agent reached the target.
	ResultSuccess
	// ResultFail means the opponent caught the agent.
	ResultFail
	// ResultStepLimit means the step cap expired first.
	ResultStepLimit
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultFail:
		return "fail"
	case ResultStepLimit:
		return "step_limit"
	}
	return "pending"
}

// NoAction marks a role that did not choose this step.
const NoAction = gridworld.Action(gridworld.NumActions)

// StepData is the per-step snapshot handed to observers: positions before
// the step, each actor's chosen (not executed) action, and the result once
// the session ends.
type StepData struct {
	Step           int
	State          gridworld.State
	AgentAction    gridworld.Action
	TargetAction   gridworld.Action
	OpponentAction gridworld.Action
	Result         Result
}

// StepObserver receives step snapshots synchronously.
type StepObserver interface {
	ObserveStep(data StepData)
}

// StepObserverFunc adapts a function to the StepObserver interface.
type StepObserverFunc func(data StepData)

// ObserveStep calls f.
func (f StepObserverFunc) ObserveStep(data StepData) { f(data) }

// Params configures a session.
type Params struct {
	Space  *gridworld.StateSpace
	Start  gridworld.State
	Policy *gridworld.Policy

	// Zero-valued models fall back to DefaultDDMTD.
	AgentModel    gridworld.DDMTD
	TargetModel   gridworld.DDMTD
	OpponentModel gridworld.DDMTD

	TargetBehavior   gridworld.Behavior
	OpponentBehavior gridworld.Behavior

	// Seed fixes the trajectory; 0 leaves it random.
	Seed int64
	// MaxSteps caps the trajectory; 0 means no cap.
	MaxSteps int
}

// Session steps one trajectory to termination.
type Session struct {
	p         Params
	rng       *rand.Rand
	state     gridworld.State
	observers []StepObserver
}

// NewSession validates params against the state space.
func NewSession(p Params) (*Session, error) {
	if p.Space == nil || p.Policy == nil {
		return nil, fmt.Errorf("session needs a state space and a policy")
	}
	if p.Policy.Size() != p.Space.Size() {
		return nil, fmt.Errorf("policy covers %d states, space has %d", p.Policy.Size(), p.Space.Size())
	}
	if !p.Space.Valid(p.Start) {
		return nil, fmt.Errorf("starting state is not valid")
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
		p.TargetBehavior = gridworld.RandomWalk{}
	}
	if p.OpponentBehavior == nil {
		p.OpponentBehavior = gridworld.RandomWalk{}
	}
	seed := p.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	return &Session{p: p, rng: rand.New(rand.NewSource(seed)), state: p.Start}, nil
}

// AddObserver registers a per-step observer.
func (s *Session) AddObserver(o StepObserver) {
	s.observers = append(s.observers, o)
}

// Run plays the trajectory until a terminal state, the step cap, or ctx
// cancellation.
func (s *Session) Run(ctx context.Context) (Result, int, error) {
	step := 0
	for {
		if err := ctx.Err(); err != nil {
			return ResultPending, step, err
		}
		if s.p.MaxSteps > 0 && step >= s.p.MaxSteps {
			s.notify(StepData{Step: step, State: s.state, AgentAction: NoAction, TargetAction: NoAction, OpponentAction: NoAction, Result: ResultStepLimit})
			return ResultStepLimit, step, nil
		}
		step++
		data := StepData{Step: step, State: s.state, TargetAction: NoAction, OpponentAction: NoAction}

		// Agent moves first; the episode ends the moment it lands on the
		// target or the opponent.
		idx, ok := s.p.Space.Index(s.state)
		if !ok {
			return ResultPending, step, fmt.Errorf("state fell outside the space")
		}
		data.AgentAction = s.p.Policy.Action(idx)
		s.moveActor(gridworld.RoleAgent, data.AgentAction, s.p.AgentModel)
		if res := s.checkResult(); res != ResultPending {
			data.Result = res
			s.notify(data)
			return res, step, nil
		}

		data.TargetAction = s.moveBehavior(gridworld.RoleTarget, s.p.TargetBehavior, s.p.TargetModel)
		data.OpponentAction = s.moveBehavior(gridworld.RoleOpponent, s.p.OpponentBehavior, s.p.OpponentModel)
		data.Result = s.checkResult()
		s.notify(data)
		if data.Result != ResultPending {
			return data.Result, step, nil
		}
	}
}

// moveActor samples the executed action and resolves the displacement;
// illegal moves are no-ops.
func (s *Session) moveActor(role gridworld.Role, chosen gridworld.Action, model gridworld.DDMTD) {
	executed := model.Sample(s.rng, chosen)
	s.state = s.p.Space.ResolveMove(s.state, role, executed)
}

// moveBehavior draws the actor's chosen action from its behavior, then
// moves it. Returns NoAction for an actor standing still.
func (s *Session) moveBehavior(role gridworld.Role, beh gridworld.Behavior, model gridworld.DDMTD) gridworld.Action {
	probs, moves := beh.ActionProbs(s.state, role)
	if !moves {
		return NoAction
	}
	chosen := sampleAction(s.rng, probs)
	s.moveActor(role, chosen, model)
	return chosen
}

func (s *Session) checkResult() Result {
	switch {
	case s.state.IsSuccess():
		return ResultSuccess
	case s.state.IsCapture():
		return ResultFail
	}
	return ResultPending
}

func (s *Session) notify(data StepData) {
	for _, o := range s.observers {
		o.ObserveStep(data)
	}
}

func sampleAction(rng *rand.Rand, probs [gridworld.NumActions]float64) gridworld.Action {
	r := rng.Float64()
	acc := 0.0
	for _, a := range gridworld.AllActions() {
		acc += probs[a]
		if r < acc {
			return a
		}
	}
	return gridworld.Left
}
