package gridworld

import "fmt"

// Action is one of the four movement directions an actor can choose.
// The numeric order (UP, RIGHT, DOWN, LEFT, clockwise) is load-bearing:
// it fixes the tie-break order during policy improvement and the cyclic
// indexing of the DDMTD distribution.
type Action uint8

const (
	Up Action = iota
	Right
	Down
	Left
)

// NumActions is the size of the action set.
const NumActions = 4

// AllActions returns the four actions in tie-break order.
func AllActions() [NumActions]Action {
	return [NumActions]Action{Up, Right, Down, Left}
}

func (a Action) String() string {
	switch a {
	case Up:
		return "up"
	case Right:
		return "right"
	case Down:
		return "down"
	case Left:
		return "left"
	}
	return fmt.Sprintf("action(%d)", uint8(a))
}

// Delta returns the unit displacement of the action.
func (a Action) Delta() (dx, dy int) {
	switch a {
	case Up:
		return 0, 1
	case Right:
		return 1, 0
	case Down:
		return 0, -1
	case Left:
		return -1, 0
	}
	return 0, 0
}

// Opposite returns the action pointing the other way.
func (a Action) Opposite() Action {
	return Action((uint8(a) + 2) % NumActions)
}

// ParseAction parses a lowercase action name.
func ParseAction(s string) (Action, error) {
	switch s {
	case "up":
		return Up, nil
	case "right":
		return Right, nil
	case "down":
		return Down, nil
	case "left":
		return Left, nil
	}
	return Up, fmt.Errorf("unknown action %q", s)
}
