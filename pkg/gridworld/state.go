package gridworld

// Role identifies one of the three actors sharing the grid.
type Role int

const (
	RoleAgent Role = iota
	RoleTarget
	RoleOpponent
)

func (r Role) String() string {
	switch r {
	case RoleAgent:
		return "agent"
	case RoleTarget:
		return "target"
	case RoleOpponent:
		return "opponent"
	}
	return "unknown"
}

// State is the joint position of the three actors, treated as a single
// MDP state.
type State struct {
	Agent    Position
	Target   Position
	Opponent Position
}

// Pos returns the position of the given role.
func (s State) Pos(r Role) Position {
	switch r {
	case RoleTarget:
		return s.Target
	case RoleOpponent:
		return s.Opponent
	}
	return s.Agent
}

// WithPos returns a copy of the state with the given role moved to p.
func (s State) WithPos(r Role, p Position) State {
	switch r {
	case RoleTarget:
		s.Target = p
	case RoleOpponent:
		s.Opponent = p
	default:
		s.Agent = p
	}
	return s
}

// IsTerminal reports whether the state is absorbing: the agent has either
// reached the target or been captured by the opponent.
func (s State) IsTerminal() bool {
	return s.Agent == s.Target || s.Agent == s.Opponent
}

// IsSuccess reports whether the agent sits on the target.
func (s State) IsSuccess() bool { return s.Agent == s.Target }

// IsCapture reports whether the opponent sits on the agent.
func (s State) IsCapture() bool { return s.Agent == s.Opponent }

// dims caches the powers of the grid dimensions used by the packed state
// index. The packing puts the agent coordinates in the lowest digits, then
// the opponent, then the target, so enumeration in increasing packed order
// walks the agent fastest.
type dims struct {
	n, m   int
	nm     uint64
	n2m    uint64
	n2m2   uint64
	n3m2   uint64
	n3m3   uint64
}

func newDims(width, height int) dims {
	n, m := uint64(width), uint64(height)
	return dims{
		n:    width,
		m:    height,
		nm:   n * m,
		n2m:  n * n * m,
		n2m2: n * n * m * m,
		n3m2: n * n * n * m * m,
		n3m3: n * n * n * m * m * m,
	}
}

// pack maps the state to its scalar index. Only injective over in-bounds
// states.
func (d dims) pack(s State) uint64 {
	n := uint64(d.n)
	return uint64(s.Agent.X) + uint64(s.Agent.Y)*n +
		uint64(s.Opponent.X)*d.nm + uint64(s.Opponent.Y)*d.n2m +
		uint64(s.Target.X)*d.n2m2 + uint64(s.Target.Y)*d.n3m2
}

// unpack inverts pack for indices below n3m3.
func (d dims) unpack(idx uint64) State {
	n := uint64(d.n)
	return State{
		Agent:    Position{int(idx % n), int((idx % d.nm) / n)},
		Opponent: Position{int((idx % d.n2m) / d.nm), int((idx % d.n2m2) / d.n2m)},
		Target:   Position{int((idx % d.n3m2) / d.n2m2), int(idx / d.n3m2)},
	}
}
