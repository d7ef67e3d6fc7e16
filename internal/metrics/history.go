package metrics

// History is the per-epoch loss record of a training run. It is owned by
// the training loop and appended to once per epoch.
type History struct {
	train    []float64
	val      []float64
	accuracy []float64
}

// Record appends the train and validation loss of one epoch.
func (h *History) Record(train, val float64) {
	h.train = append(h.train, train)
	h.val = append(h.val, val)
}

// RecordAccuracy appends the reference error of one epoch.
func (h *History) RecordAccuracy(acc float64) {
	h.accuracy = append(h.accuracy, acc)
}

// Len returns the number of recorded epochs.
func (h *History) Len() int {
	return len(h.train)
}

// Train returns a copy of the training loss curve.
func (h *History) Train() []float64 { return clone(h.train) }

// Val returns a copy of the validation loss curve.
func (h *History) Val() []float64 { return clone(h.val) }

// Accuracy returns a copy of the accuracy curve. It stays empty for
// recurrent runs.
func (h *History) Accuracy() []float64 { return clone(h.accuracy) }

func clone(v []float64) []float64 {
	return append([]float64(nil), v...)
}
