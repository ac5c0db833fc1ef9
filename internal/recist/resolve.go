package recist

// Resolution is the outcome of a prioritized-default lookup over nullable
// values. Fallback is true when anything other than the first candidate
// supplied the value, so callers can assert on degradation paths.
type Resolution struct {
	Value    float64
	Fallback bool
}

// ResolveValue returns the first non-nil candidate, or def when every
// candidate is nil.
func ResolveValue(def float64, candidates ...*float64) Resolution {
	for i, c := range candidates {
		if c != nil {
			return Resolution{Value: *c, Fallback: i > 0}
		}
	}
	return Resolution{Value: def, Fallback: true}
}

// percentChange returns the percent delta of value against ref, or nil
// unless ref is a positive number.
func percentChange(value float64, ref *float64) *float64 {
	if ref == nil || *ref <= 0 {
		return nil
	}
	pct := (value - *ref) / *ref * 100
	return &pct
}
