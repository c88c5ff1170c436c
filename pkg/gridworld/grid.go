package gridworld

import "fmt"

// Position is an integer cell coordinate. (0,0) is the bottom-left corner;
// Up increases Y.
type Position struct {
	X, Y int
}

// Move returns the position displaced by the action.
func (p Position) Move(a Action) Position {
	dx, dy := a.Delta()
	return Position{p.X + dx, p.Y + dy}
}

// ManhattanDistance returns the L1 distance between two positions.
func ManhattanDistance(a, b Position) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Obstacle is an axis-aligned rectangle of blocked cells, given by its
// bottom-left origin and a positive extent along each axis.
type Obstacle struct {
	Origin Position
	Extent Position
}

// Contains reports whether p lies inside the obstacle.
func (o Obstacle) Contains(p Position) bool {
	return p.X >= o.Origin.X && p.X < o.Origin.X+o.Extent.X &&
		p.Y >= o.Origin.Y && p.Y < o.Origin.Y+o.Extent.Y
}

// Grid is the immutable obstacle geometry of the world. Occupancy is
// precomputed into a flat bitmap at construction; a cell is either free
// or blocked.
type Grid struct {
	width, height int
	obstacles     []Obstacle
	blocked       []bool // flat [y*width+x]
	freeCells     int
}

// NewGrid validates the geometry and materializes the occupancy bitmap.
func NewGrid(width, height int, obstacles []Obstacle) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("grid dimensions must be positive, got %dx%d", width, height)
	}
	if width*height < 3 {
		return nil, fmt.Errorf("grid needs at least 3 cells, got %dx%d", width, height)
	}
	g := &Grid{
		width:     width,
		height:    height,
		obstacles: append([]Obstacle(nil), obstacles...),
		blocked:   make([]bool, width*height),
	}
	for _, o := range g.obstacles {
		if o.Extent.X <= 0 || o.Extent.Y <= 0 {
			return nil, fmt.Errorf("obstacle at (%d,%d) has non-positive extent (%d,%d)",
				o.Origin.X, o.Origin.Y, o.Extent.X, o.Extent.Y)
		}
		if o.Origin.X < 0 || o.Origin.Y < 0 ||
			o.Origin.X+o.Extent.X > width || o.Origin.Y+o.Extent.Y > height {
			return nil, fmt.Errorf("obstacle [origin (%d,%d) extent (%d,%d)] outside %dx%d grid",
				o.Origin.X, o.Origin.Y, o.Extent.X, o.Extent.Y, width, height)
		}
		for x := o.Origin.X; x < o.Origin.X+o.Extent.X; x++ {
			for y := o.Origin.Y; y < o.Origin.Y+o.Extent.Y; y++ {
				g.blocked[y*width+x] = true
			}
		}
	}
	for _, b := range g.blocked {
		if !b {
			g.freeCells++
		}
	}
	if g.freeCells < 3 {
		return nil, fmt.Errorf("grid has %d free cells, need at least 3", g.freeCells)
	}
	return g, nil
}

// Width returns the grid width.
func (g *Grid) Width() int { return g.width }

// Height returns the grid height.
func (g *Grid) Height() int { return g.height }

// FreeCells returns the number of unblocked cells.
func (g *Grid) FreeCells() int { return g.freeCells }

// Obstacles returns a copy of the obstacle list.
func (g *Grid) Obstacles() []Obstacle {
	return append([]Obstacle(nil), g.obstacles...)
}

// InBounds reports whether p lies inside the grid.
func (g *Grid) InBounds(p Position) bool {
	return p.X >= 0 && p.X < g.width && p.Y >= 0 && p.Y < g.height
}

// IsFree reports whether p is inside the grid and not blocked by an obstacle.
func (g *Grid) IsFree(p Position) bool {
	return g.InBounds(p) && !g.blocked[p.Y*g.width+p.X]
}
