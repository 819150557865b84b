package lru

import (
	"container/list"
	"sync"

	"github.com/lucasew/dircache/internal/eviction"
)

// LRU implements the eviction.Strategy interface using Least Recently Used logic.
type LRU struct {
	mu    sync.Mutex
	list  *list.List
	items map[string]*list.Element
}

type entry struct {
	key    string
	weight int64
}

func init() {
	eviction.Register("lru", func() eviction.Strategy {
		return New()
	})
}

func New() *LRU {
	return &LRU{
		list:  list.New(),
		items: make(map[string]*list.Element),
	}
}

func (l *LRU) OnAdd(key string, weight int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	if elem, ok := l.items[key]; ok {
		l.list.MoveToFront(elem)
		ent := elem.Value.(*entry)
		oldWeight := ent.weight
		ent.weight = weight
		return weight - oldWeight
	}

	elem := l.list.PushFront(&entry{key: key, weight: weight})
	l.items[key] = elem
	return weight
}

func (l *LRU) OnAccess(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if elem, ok := l.items[key]; ok {
		l.list.MoveToFront(elem)
	}
}

func (l *LRU) Remove(key string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	elem, ok := l.items[key]
	if !ok {
		return 0
	}
	l.list.Remove(elem)
	delete(l.items, key)
	return elem.Value.(*entry).weight
}

func (l *LRU) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.list.Init()
	clear(l.items)
}

func (l *LRU) GetVictims(currentWeight int64, targetWeight int64) []eviction.Victim {
	l.mu.Lock()
	defer l.mu.Unlock()

	var victims []eviction.Victim
	weight := currentWeight

	// Traverse from back without modifying
	elem := l.list.Back()
	for weight > targetWeight && elem != nil {
		ent := elem.Value.(*entry)
		victims = append(victims, eviction.Victim{Key: ent.key, Weight: ent.weight})
		weight -= ent.weight
		elem = elem.Prev()
	}

	return victims
}
