package scene

// Script is generated scene source. Version 1 comes from the generator and
// every repair increments it.
type Script struct {
	Source  string
	Version int
}

// Segment is one animation call with its estimated on-screen time.
type Segment struct {
	Ordinal          int
	RawContent       string
	EstimatedSeconds float64
}

// Timeline is the ordered segment list of one script plus its total.
type Timeline struct {
	Segments              []Segment
	TotalEstimatedSeconds float64
}

// WithTotal returns a copy of t carrying total. Segments are shared, not rebalanced.
func (t Timeline) WithTotal(total float64) Timeline {
	t.TotalEstimatedSeconds = total
	return t
}

// Len reports the number of segments.
func (t Timeline) Len() int {
	return len(t.Segments)
}
