package gridworld

import "sort"

// StateSpace is the canonical enumeration of all valid joint states over a
// grid. A state is valid when all three actor positions are free and the
// target does not share a cell with the opponent; agent overlaps stay in
// the space because they are the terminal conditions. The packed indices of
// the valid states are kept in increasing order, so the dense index of a
// state is stable across runs of the same grid.
type StateSpace struct {
	grid   *Grid
	d      dims
	packed []uint64 // sorted packed indices of the valid states
}

// NewStateSpace enumerates the valid states of the grid once.
func NewStateSpace(g *Grid) *StateSpace {
	sp := &StateSpace{grid: g, d: newDims(g.Width(), g.Height())}
	for idx := uint64(0); idx < sp.d.n3m3; idx++ {
		if sp.Valid(sp.d.unpack(idx)) {
			sp.packed = append(sp.packed, idx)
		}
	}
	return sp
}

// Grid returns the grid the space was built from.
func (sp *StateSpace) Grid() *Grid { return sp.grid }

// Size returns the number of valid states.
func (sp *StateSpace) Size() int { return len(sp.packed) }

// Valid reports whether the state is part of the space.
func (sp *StateSpace) Valid(s State) bool {
	if s.Target == s.Opponent {
		return false
	}
	return sp.grid.IsFree(s.Agent) && sp.grid.IsFree(s.Target) && sp.grid.IsFree(s.Opponent)
}

// StateAt returns the state with the given dense index.
func (sp *StateSpace) StateAt(i int) State {
	return sp.d.unpack(sp.packed[i])
}

// Index returns the dense index of a valid state via binary search over
// the packed enumeration. ok is false for states outside the space.
func (sp *StateSpace) Index(s State) (int, bool) {
	idx := sp.d.pack(s)
	i := sort.Search(len(sp.packed), func(k int) bool { return sp.packed[k] >= idx })
	if i < len(sp.packed) && sp.packed[i] == idx {
		return i, true
	}
	return 0, false
}

// ResolveMove applies the action's displacement to the given role. If the
// resulting joint state falls outside the space (off-grid, into an
// obstacle, or a target/opponent collision) the actor stays put: moves are
// no-ops, never bounces.
func (sp *StateSpace) ResolveMove(s State, r Role, a Action) State {
	next := s.WithPos(r, s.Pos(r).Move(a))
	if !sp.Valid(next) {
		return s
	}
	return next
}
