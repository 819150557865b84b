package eviction

import (
	"log/slog"
	"sync/atomic"

	"github.com/lucasew/dircache/internal/eviction/policy"
)

// Manager tracks the weight of one group of cache entries and decides which
// of them to drop when a policy reports pressure.
//
// Manager does not own the entries. The caller serializes Add, Remove,
// Victims and Reset with its own lock and deletes whatever Victims returns.
type Manager struct {
	policies      []policy.Policy
	strategy      Strategy
	currentWeight atomic.Int64
}

// NewManager creates a new Manager.
func NewManager(policies []policy.Policy, strategy Strategy) *Manager {
	return &Manager{
		policies: policies,
		strategy: strategy,
	}
}

// Add records an inserted or replaced entry and updates the weight.
func (m *Manager) Add(key string, weight int64) {
	diff := m.strategy.OnAdd(key, weight)
	m.currentWeight.Add(diff)
}

// Touch updates the access recency in the strategy.
func (m *Manager) Touch(key string) {
	m.strategy.OnAccess(key)
}

// Remove forgets an entry that was deleted for reasons other than eviction.
func (m *Manager) Remove(key string) {
	weight := m.strategy.Remove(key)
	m.currentWeight.Add(-weight)
}

// Reset forgets every entry.
func (m *Manager) Reset() {
	m.strategy.Reset()
	m.currentWeight.Store(0)
}

// Weight returns the weight currently tracked.
func (m *Manager) Weight() int64 {
	return m.currentWeight.Load()
}

// Victims checks the policies and returns the entries that must be removed
// to satisfy all of them. Victims are already forgotten by the manager.
func (m *Manager) Victims() []Victim {
	current := m.currentWeight.Load()
	var maxToFree int64

	for _, p := range m.policies {
		toFree, err := p.WeightToFree(current)
		if err != nil {
			slog.Error("Failed to check capacity policy", "error", err)
			continue
		}
		if toFree > maxToFree {
			maxToFree = toFree
		}
	}

	if maxToFree <= 0 {
		return nil
	}

	targetWeight := current - maxToFree
	if targetWeight < 0 {
		targetWeight = 0
	}

	victims := m.strategy.GetVictims(current, targetWeight)
	if len(victims) == 0 {
		return nil
	}

	slog.Debug("Evicting entries", "count", len(victims), "current_weight", current, "to_free", maxToFree, "target", targetWeight)

	for _, victim := range victims {
		m.strategy.Remove(victim.Key)
		m.currentWeight.Add(-victim.Weight)
	}
	return victims
}
