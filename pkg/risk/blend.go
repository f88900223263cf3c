package risk

// Blend folds a remote confidence into the local timeline in place:
// r[i] = (r[i] + (1 - confidence)) / 2. It is not idempotent; callers apply
// it once per completed analysis.
func (t *Timeline) Blend(confidence float64) {
	c := clamp01(confidence)
	for i, r := range t.Risk {
		t.Risk[i] = (r + (1 - c)) / 2
	}
}

// Clone returns a deep copy of t.
func (t *Timeline) Clone() *Timeline {
	cp := *t
	cp.Risk = append([]float64(nil), t.Risk...)
	return &cp
}
