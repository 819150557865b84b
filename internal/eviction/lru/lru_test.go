package lru

import (
	"testing"
)

func TestLRU(t *testing.T) {
	l := New()

	l.OnAdd("a", 10)
	l.OnAdd("b", 20)
	l.OnAdd("c", 30)

	// Current order: c, b, a (most recent first)
	// Total weight: 60

	// Access a
	l.OnAccess("a")
	// Order: a, c, b

	// Target 40. Current 60. Need to remove 20.
	// Victims should be from the back: b (20).
	victims := l.GetVictims(60, 40)
	if len(victims) != 1 {
		t.Fatalf("expected 1 victim, got %d", len(victims))
	}
	if victims[0].Key != "b" {
		t.Errorf("expected victim b, got %s", victims[0].Key)
	}

	// Target 10. Current 60.
	// Back: b (20) -> weight 40
	// Back: c (30) -> weight 10
	victims = l.GetVictims(60, 10)
	if len(victims) != 2 {
		t.Fatalf("expected 2 victims, got %d", len(victims))
	}
	if victims[0].Key != "b" {
		t.Errorf("expected victim b, got %s", victims[0].Key)
	}
	if victims[1].Key != "c" {
		t.Errorf("expected victim c, got %s", victims[1].Key)
	}
}

func TestLRU_Replace(t *testing.T) {
	l := New()

	if diff := l.OnAdd("a", 10); diff != 10 {
		t.Errorf("expected diff 10 for new key, got %d", diff)
	}
	l.OnAdd("b", 5)

	// Replacing a moves it to the front and only reports the delta.
	if diff := l.OnAdd("a", 4); diff != -6 {
		t.Errorf("expected diff -6 on replace, got %d", diff)
	}

	victims := l.GetVictims(9, 4)
	if len(victims) != 1 || victims[0].Key != "b" {
		t.Errorf("expected b to be the oldest entry, got %v", victims)
	}
}

func TestLRU_Remove(t *testing.T) {
	l := New()
	l.OnAdd("a", 10)

	if w := l.Remove("a"); w != 10 {
		t.Errorf("expected removed weight 10, got %d", w)
	}
	if w := l.Remove("a"); w != 0 {
		t.Errorf("expected removed weight 0 for unknown key, got %d", w)
	}

	victims := l.GetVictims(10, 0)
	if len(victims) != 0 {
		t.Errorf("expected 0 victims after remove, got %d", len(victims))
	}
}

func TestLRU_Reset(t *testing.T) {
	l := New()
	l.OnAdd("a", 1)
	l.OnAdd("b", 2)

	l.Reset()

	if victims := l.GetVictims(3, 0); len(victims) != 0 {
		t.Errorf("expected no victims after reset, got %v", victims)
	}
	if diff := l.OnAdd("a", 1); diff != 1 {
		t.Errorf("expected a to be new after reset, got diff %d", diff)
	}
}
