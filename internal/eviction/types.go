package eviction

// Victim represents an entry chosen for eviction.
type Victim struct {
	Key    string
	Weight int64
}

// Strategy defines the interface for eviction strategies.
//
// A strategy only tracks keys and weights; the owner of the data removes the
// victims it is handed.
type Strategy interface {
	// OnAdd is called when an entry is inserted or replaced.
	// It returns the change in total weight managed by the strategy (e.g., if key is new, returns weight; if replaced, returns diff).
	OnAdd(key string, weight int64) int64

	// OnAccess is called when an entry is read.
	OnAccess(key string)

	// GetVictims returns a list of victims to evict to reduce the current weight
	// to the target weight. It does not remove them.
	GetVictims(currentWeight int64, targetWeight int64) []Victim

	// Remove removes a key from the strategy and returns the weight it held.
	Remove(key string) int64

	// Reset forgets every tracked key.
	Reset()
}
