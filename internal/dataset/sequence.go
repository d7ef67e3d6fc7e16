package dataset

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrWindowLength is returned for non-positive window lengths.
var ErrWindowLength = errors.New("dataset: window length must be > 0")

// Sequence is an ordered window of consecutive points. It is supervised by
// its last element.
type Sequence []Point

// Label returns the last point of the window.
func (s Sequence) Label() Point {
	return s[len(s)-1]
}

// Windows slides a stride-1 window of the given length over points and
// returns len(points)-length windows. Trailing points without a following
// window are dropped, never padded. Windows share the backing array of
// points.
func Windows(points []Point, length int) ([]Sequence, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w (got %d)", ErrWindowLength, length)
	}
	n := len(points) - length
	if n <= 0 {
		return nil, nil
	}
	out := make([]Sequence, n)
	for i := range out {
		out[i] = Sequence(points[i : i+length : i+length])
	}
	return out, nil
}

// Labels extracts the label of each window, index for index.
func Labels(seqs []Sequence) []Point {
	out := make([]Point, len(seqs))
	for i, s := range seqs {
		out[i] = s.Label()
	}
	return out
}

// SequenceSet is the windowed counterpart of Collocation.
type SequenceSet struct {
	Initial  []Sequence
	Boundary []Sequence
	Residual []Sequence
}

// Len returns the total number of windows.
func (s SequenceSet) Len() int {
	return len(s.Initial) + len(s.Boundary) + len(s.Residual)
}

// Window windows every category with the same length.
func Window(c Collocation, length int) (SequenceSet, error) {
	var (
		out SequenceSet
		err error
	)
	if out.Initial, err = Windows(c.Initial, length); err != nil {
		return SequenceSet{}, err
	}
	if out.Boundary, err = Windows(c.Boundary, length); err != nil {
		return SequenceSet{}, err
	}
	if out.Residual, err = Windows(c.Residual, length); err != nil {
		return SequenceSet{}, err
	}
	return out, nil
}

// SplitSequences partitions each category of windows independently.
func SplitSequences(s SequenceSet, fraction float64, rng *rand.Rand) (train, val SequenceSet, err error) {
	if train.Initial, val.Initial, err = SplitSlice(s.Initial, fraction, rng); err != nil {
		return SequenceSet{}, SequenceSet{}, err
	}
	if train.Boundary, val.Boundary, err = SplitSlice(s.Boundary, fraction, rng); err != nil {
		return SequenceSet{}, SequenceSet{}, err
	}
	if train.Residual, val.Residual, err = SplitSlice(s.Residual, fraction, rng); err != nil {
		return SequenceSet{}, SequenceSet{}, err
	}
	return train, val, nil
}

// ShuffleSequences is Shuffle for windowed data.
func ShuffleSequences(s SequenceSet, rng *rand.Rand) SequenceSet {
	perms := permutations(rng, len(s.Initial), len(s.Boundary), len(s.Residual))
	return SequenceSet{
		Initial:  permute(s.Initial, perms[0]),
		Boundary: permute(s.Boundary, perms[1]),
		Residual: permute(s.Residual, perms[2]),
	}
}
