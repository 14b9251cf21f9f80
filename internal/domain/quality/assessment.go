package quality

// Issue describes one defect found while scoring a record.
type Issue struct {
	Field   string  `json:"field"`
	Message string  `json:"message"`
	Penalty float64 `json:"penalty"`
}

// Assessment is the result of scoring a destination record.
// Valid is true iff Issues is empty, independent of Score.
type Assessment struct {
	Valid  bool    `json:"isValid"`
	Issues []Issue `json:"issues"`
	Score  float64 `json:"score"`
}

// scoreEpsilon absorbs float error from subtracting penalty weights.
const scoreEpsilon = 1e-9

// Passes reports whether the score clears the gate threshold.
func (a Assessment) Passes(threshold float64) bool {
	return a.Score+scoreEpsilon >= threshold
}

// Messages returns the issue messages in order.
func (a Assessment) Messages() []string {
	out := make([]string, len(a.Issues))
	for i, is := range a.Issues {
		out[i] = is.Message
	}
	return out
}
