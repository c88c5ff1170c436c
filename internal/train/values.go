package train

import (
	"gorgonia.org/tensor"
)

// Values is the double-buffered value function: a frozen current buffer
// every worker reads and a next buffer each worker writes only its own
// partition of. Swap flips the two between rounds, so no state's update
// ever observes another state's new value within the same round.
//
// Storage precision (float32 or float64) is picked at construction;
// arithmetic always runs in float64 and is rounded on store.
type Values struct {
	size    int
	wide    bool // float64 storage
	cur     *tensor.Dense
	next    *tensor.Dense
	cur64   []float64
	next64  []float64
	cur32   []float32
	next32  []float32
}

// NewValues allocates both buffers zeroed.
func NewValues(size int, useFloat32 bool) *Values {
	v := &Values{size: size, wide: !useFloat32}
	dt := tensor.Float64
	if useFloat32 {
		dt = tensor.Float32
	}
	v.cur = tensor.New(tensor.Of(dt), tensor.WithShape(size))
	v.next = tensor.New(tensor.Of(dt), tensor.WithShape(size))
	v.cacheSlices()
	return v
}

// ValuesFromDense wraps a loaded dense buffer as the current value
// function, pairing it with a fresh next buffer of the same dtype.
func ValuesFromDense(d *tensor.Dense) *Values {
	v := &Values{size: d.Shape().TotalSize(), wide: d.Dtype() == tensor.Float64}
	v.cur = d
	v.next = tensor.New(tensor.Of(d.Dtype()), tensor.WithShape(v.size))
	v.cacheSlices()
	return v
}

func (v *Values) cacheSlices() {
	if v.wide {
		v.cur64 = v.cur.Float64s()
		v.next64 = v.next.Float64s()
	} else {
		v.cur32 = v.cur.Float32s()
		v.next32 = v.next.Float32s()
	}
}

// Size returns the number of states covered.
func (v *Values) Size() int { return v.size }

// At reads the frozen current value of a state.
func (v *Values) At(i int) float64 {
	if v.wide {
		return v.cur64[i]
	}
	return float64(v.cur32[i])
}

// SetNext writes a state's value into the next buffer, rounding to the
// storage precision.
func (v *Values) SetNext(i int, x float64) {
	if v.wide {
		v.next64[i] = x
	} else {
		v.next32[i] = float32(x)
	}
}

// NextAt reads back a value written this round, already rounded to the
// storage precision.
func (v *Values) NextAt(i int) float64 {
	if v.wide {
		return v.next64[i]
	}
	return float64(v.next32[i])
}

// Swap makes the next buffer current. Called once per round, after the
// evaluation barrier.
func (v *Values) Swap() {
	v.cur, v.next = v.next, v.cur
	v.cur64, v.next64 = v.next64, v.cur64
	v.cur32, v.next32 = v.next32, v.cur32
}

// Dense exposes the current buffer for persistence.
func (v *Values) Dense() *tensor.Dense { return v.cur }
