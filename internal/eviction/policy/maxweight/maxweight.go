package maxweight

// Policy triggers eviction when the tracked weight exceeds a fixed bound.
type Policy struct {
	MaxWeight int64
}

func (m *Policy) WeightToFree(currentWeight int64) (int64, error) {
	if currentWeight > m.MaxWeight {
		return currentWeight - m.MaxWeight, nil
	}
	return 0, nil
}
