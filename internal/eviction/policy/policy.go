package policy

// Policy defines the interface for checking if eviction is needed.
type Policy interface {
	// WeightToFree returns the weight that should be evicted.
	// Returns 0 if no eviction is needed.
	WeightToFree(currentWeight int64) (int64, error)
}
