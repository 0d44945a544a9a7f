package comm

import (
	"fmt"
	"math"
)

// Gather is a typed Allgather.
func Gather[T any](c Communicator, v T) ([]T, error) {
	raw, err := c.Allgather(v)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(raw))
	for i, r := range raw {
		tv, ok := r.(T)
		if !ok {
			return nil, fmt.Errorf("comm: rank %d contributed %T, want %T", i, r, v)
		}
		out[i] = tv
	}
	return out, nil
}

// Bcast returns root's value on every rank.
func Bcast[T any](c Communicator, v T, root int) (T, error) {
	var zero T
	if root < 0 || root >= c.Size() {
		return zero, fmt.Errorf("comm: broadcast root %d out of range", root)
	}
	all, err := Gather(c, v)
	if err != nil {
		return zero, err
	}
	return all[root], nil
}

// Barrier blocks until every rank has reached it.
func Barrier(c Communicator) error {
	_, err := c.Allgather(struct{}{})
	return err
}

// AllreduceSumInt sums v over all ranks.
func AllreduceSumInt(c Communicator, v int) (int, error) {
	all, err := Gather(c, v)
	if err != nil {
		return 0, err
	}
	sum := 0
	for _, x := range all {
		sum += x
	}
	return sum, nil
}

// AllreduceSum sums vs element-wise over all ranks. Every rank must pass a
// slice of the same length. vs is not modified.
func AllreduceSum(c Communicator, vs []float64) ([]float64, error) {
	local := append([]float64(nil), vs...)
	all, err := Gather(c, local)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(vs))
	for r, contrib := range all {
		if len(contrib) != len(out) {
			return nil, fmt.Errorf("comm: rank %d reduced %d values, want %d", r, len(contrib), len(out))
		}
		for i := range out {
			out[i] += contrib[i]
		}
	}
	return out, nil
}

// AllreduceMin returns the global minimum of v.
func AllreduceMin(c Communicator, v float64) (float64, error) {
	all, err := Gather(c, v)
	if err != nil {
		return 0, err
	}
	m := math.Inf(1)
	for _, x := range all {
		m = math.Min(m, x)
	}
	return m, nil
}

// AllreduceMax returns the global maximum of v.
func AllreduceMax(c Communicator, v float64) (float64, error) {
	all, err := Gather(c, v)
	if err != nil {
		return 0, err
	}
	m := math.Inf(-1)
	for _, x := range all {
		m = math.Max(m, x)
	}
	return m, nil
}
