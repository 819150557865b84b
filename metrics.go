package dircache

import (
	"sync"
	"sync/atomic"
	"time"
)

// Runtime metric names recorded by CachingLister.
const (
	MetricDirectoryListingCacheHit  = "directoryListingCacheHit"
	MetricDirectoryListingCacheMiss = "directoryListingCacheMiss"
	MetricFilesReadCount            = "filesReadCount"
)

// Metric aggregates the values recorded under one name.
type Metric struct {
	Name  string `json:"name"`
	Sum   int64  `json:"sum"`
	Count int64  `json:"count"`
	Min   int64  `json:"min"`
	Max   int64  `json:"max"`
}

// RuntimeStats collects named metrics for a single request. It is safe for
// concurrent use, and a nil *RuntimeStats discards everything.
type RuntimeStats struct {
	mu      sync.Mutex
	metrics map[string]*Metric
}

func NewRuntimeStats() *RuntimeStats {
	return &RuntimeStats{metrics: make(map[string]*Metric)}
}

// AddMetricValue records value under name.
func (s *RuntimeStats) AddMetricValue(name string, value int64) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.metrics[name]
	if !ok {
		s.metrics[name] = &Metric{Name: name, Sum: value, Count: 1, Min: value, Max: value}
		return
	}
	m.Sum += value
	m.Count++
	m.Min = min(m.Min, value)
	m.Max = max(m.Max, value)
}

// Metric returns a copy of the metric recorded under name.
func (s *RuntimeStats) Metric(name string) (Metric, bool) {
	if s == nil {
		return Metric{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.metrics[name]
	if !ok {
		return Metric{}, false
	}
	return *m, true
}

// Sum returns the summed value of name, or 0.
func (s *RuntimeStats) Sum(name string) int64 {
	m, _ := s.Metric(name)
	return m.Sum
}

// Metrics returns a copy of every metric.
func (s *RuntimeStats) Metrics() map[string]Metric {
	out := make(map[string]Metric)
	if s == nil {
		return out
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, m := range s.metrics {
		out[name] = *m
	}
	return out
}

// NamenodeStats accumulates the cost of listing calls made against the
// underlying file system. A nil *NamenodeStats discards everything.
type NamenodeStats struct {
	listCalls    atomic.Int64
	listFailures atomic.Int64
	listNanos    atomic.Int64
}

// RecordListCall records one call to the file system.
func (s *NamenodeStats) RecordListCall(elapsed time.Duration, err error) {
	if s == nil {
		return
	}
	s.listCalls.Add(1)
	s.listNanos.Add(int64(elapsed))
	if err != nil {
		s.listFailures.Add(1)
	}
}

func (s *NamenodeStats) ListCalls() int64 {
	if s == nil {
		return 0
	}
	return s.listCalls.Load()
}

func (s *NamenodeStats) ListFailures() int64 {
	if s == nil {
		return 0
	}
	return s.listFailures.Load()
}

func (s *NamenodeStats) ListTime() time.Duration {
	if s == nil {
		return 0
	}
	return time.Duration(s.listNanos.Load())
}
