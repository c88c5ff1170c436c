package gridworld

import "fmt"

// Policy maps every dense state index to the agent's action, one byte per
// state. Only the agent is policy-controlled; the other roles follow their
// behaviors.
type Policy struct {
	actions []byte
}

// NewPolicy returns a policy of the given size with every state mapped to
// the first action in tie-break order.
func NewPolicy(size int) *Policy {
	return &Policy{actions: make([]byte, size)}
}

// PolicyFromBytes wraps raw action bytes, validating the action range.
func PolicyFromBytes(b []byte) (*Policy, error) {
	for i, v := range b {
		if v >= NumActions {
			return nil, fmt.Errorf("policy byte %d holds invalid action %d", i, v)
		}
	}
	return &Policy{actions: b}, nil
}

// Size returns the number of states the policy covers.
func (p *Policy) Size() int { return len(p.actions) }

// Action returns the action for the given dense state index.
func (p *Policy) Action(i int) Action { return Action(p.actions[i]) }

// SetAction overwrites the action for the given dense state index.
func (p *Policy) SetAction(i int, a Action) { p.actions[i] = byte(a) }

// Bytes exposes the backing byte slice for persistence. Callers must not
// hold it across further training rounds.
func (p *Policy) Bytes() []byte { return p.actions }

// Clone returns a deep copy.
func (p *Policy) Clone() *Policy {
	return &Policy{actions: append([]byte(nil), p.actions...)}
}

// Equal reports whether both policies map every state to the same action.
func (p *Policy) Equal(other *Policy) bool {
	if len(p.actions) != len(other.actions) {
		return false
	}
	for i, a := range p.actions {
		if other.actions[i] != a {
			return false
		}
	}
	return true
}
