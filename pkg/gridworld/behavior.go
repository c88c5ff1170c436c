package gridworld

import "fmt"

// Behavior is the action-selection rule of a non-agent actor. The engine
// and game sessions only ever look at the returned distribution; the rule's
// internals stay opaque. moves=false means the actor stands still this
// step, in which case its DDMTD never applies.
type Behavior interface {
	ActionProbs(s State, self Role) (probs [NumActions]float64, moves bool)
}

// Stationary is an actor that never moves. It is the default for both the
// target and the opponent during training.
type Stationary struct{}

// ActionProbs always reports a non-moving actor.
func (Stationary) ActionProbs(State, Role) ([NumActions]float64, bool) {
	return [NumActions]float64{}, false
}

// RandomWalk chooses uniformly among the four actions.
type RandomWalk struct{}

// ActionProbs returns the uniform distribution.
func (RandomWalk) ActionProbs(State, Role) ([NumActions]float64, bool) {
	return [NumActions]float64{0.25, 0.25, 0.25, 0.25}, true
}

// Pursue weights the two axis moves toward the goal role by how far away it
// is along each axis; an actor already sharing the goal's cell stands
// still.
type Pursue struct {
	Goal Role
}

// ActionProbs returns the chase distribution.
func (b Pursue) ActionProbs(s State, self Role) ([NumActions]float64, bool) {
	return chaseProbs(s.Pos(self), s.Pos(b.Goal), false)
}

// Evade mirrors Pursue, weighting moves away from the goal role.
type Evade struct {
	Goal Role
}

// ActionProbs returns the fleeing distribution.
func (b Evade) ActionProbs(s State, self Role) ([NumActions]float64, bool) {
	return chaseProbs(s.Pos(self), s.Pos(b.Goal), true)
}

// chaseProbs splits probability between the horizontal and vertical step
// toward (or away from) goal, proportional to the distance left on each
// axis plus a constant so the shorter axis keeps some weight.
func chaseProbs(self, goal Position, away bool) ([NumActions]float64, bool) {
	var probs [NumActions]float64
	xDiff := goal.X - self.X
	yDiff := goal.Y - self.Y
	if away {
		xDiff, yDiff = -xDiff, -yDiff
	} else if xDiff == 0 && yDiff == 0 {
		return probs, false
	}
	xAction, yAction := Left, Down
	if xDiff > 0 {
		xAction = Right
	}
	if yDiff > 0 {
		yAction = Up
	}
	const constWeight = 0.1
	xWeight := float64(abs(xDiff)) + constWeight
	yWeight := float64(abs(yDiff)) + constWeight
	sum := xWeight + yWeight
	probs[xAction] += xWeight / sum
	probs[yAction] += yWeight / sum
	return probs, true
}

// ParseBehavior maps a configuration keyword to a behavior for the given
// role. PURSUE and EVADE are relative to the agent.
func ParseBehavior(name string) (Behavior, error) {
	switch name {
	case "stationary":
		return Stationary{}, nil
	case "random":
		return RandomWalk{}, nil
	case "pursue":
		return Pursue{Goal: RoleAgent}, nil
	case "evade":
		return Evade{Goal: RoleAgent}, nil
	}
	return nil, fmt.Errorf("unknown behavior %q", name)
}
