package dataset

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrFraction is returned when a validation fraction is outside [0,1).
var ErrFraction = errors.New("dataset: validation fraction must be in [0,1)")

// SplitSlice permutes items and returns the first n-floor(fraction*n) as
// train and the rest as validation. The inputs are not modified.
func SplitSlice[T any](items []T, fraction float64, rng *rand.Rand) (train, val []T, err error) {
	if fraction < 0 || fraction >= 1 {
		return nil, nil, fmt.Errorf("%w (got %g)", ErrFraction, fraction)
	}
	n := len(items)
	nVal := int(float64(n) * fraction)
	nTrain := n - nVal
	perm := rng.Perm(n)
	train = make([]T, 0, nTrain)
	val = make([]T, 0, nVal)
	for _, idx := range perm[:nTrain] {
		train = append(train, items[idx])
	}
	for _, idx := range perm[nTrain:] {
		val = append(val, items[idx])
	}
	return train, val, nil
}

// Split partitions every category independently into train and validation.
func Split(c Collocation, fraction float64, rng *rand.Rand) (train, val Collocation, err error) {
	if train.Initial, val.Initial, err = SplitSlice(c.Initial, fraction, rng); err != nil {
		return Collocation{}, Collocation{}, err
	}
	if train.Boundary, val.Boundary, err = SplitSlice(c.Boundary, fraction, rng); err != nil {
		return Collocation{}, Collocation{}, err
	}
	if train.Residual, val.Residual, err = SplitSlice(c.Residual, fraction, rng); err != nil {
		return Collocation{}, Collocation{}, err
	}
	return train, val, nil
}

// Shuffle returns a reordered copy of c. When all categories have the same
// length they share one permutation, otherwise each draws its own from rng.
func Shuffle(c Collocation, rng *rand.Rand) Collocation {
	perms := permutations(rng, len(c.Initial), len(c.Boundary), len(c.Residual))
	return Collocation{
		Initial:  permute(c.Initial, perms[0]),
		Boundary: permute(c.Boundary, perms[1]),
		Residual: permute(c.Residual, perms[2]),
	}
}

func permutations(rng *rand.Rand, lens ...int) [][]int {
	out := make([][]int, len(lens))
	shared := true
	for _, n := range lens[1:] {
		if n != lens[0] {
			shared = false
			break
		}
	}
	if shared {
		perm := rng.Perm(lens[0])
		for i := range out {
			out[i] = perm
		}
		return out
	}
	for i, n := range lens {
		out[i] = rng.Perm(n)
	}
	return out
}

func permute[T any](items []T, perm []int) []T {
	out := make([]T, len(items))
	for i, idx := range perm {
		out[i] = items[idx]
	}
	return out
}
