package syncmap

import (
	"sync"
	"testing"
)

func TestPutGetDelete(t *testing.T) {
	m := New[string, int]()
	m.Put("a", 1)

	v, ok := m.Get("a")
	if !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v", v, ok)
	}

	m.Delete("a")
	if _, ok := m.Get("a"); ok {
		t.Fatalf("expected a to be deleted")
	}
}

func TestGetAndDeleteFiresOnce(t *testing.T) {
	m := New[uint32, string]()
	m.Put(7, "handler")

	v, ok := m.GetAndDelete(7)
	if !ok || v != "handler" {
		t.Fatalf("first GetAndDelete = %q, %v", v, ok)
	}

	_, ok = m.GetAndDelete(7)
	if ok {
		t.Fatalf("second GetAndDelete should report absent")
	}
}

func TestConcurrentAccess(t *testing.T) {
	m := New[int, int]()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Put(i, i*2)
			m.Get(i)
		}(i)
	}
	wg.Wait()
	if m.Len() != 100 {
		t.Fatalf("Len() = %d, want 100", m.Len())
	}
}

func TestValuesSnapshot(t *testing.T) {
	m := New[int, string]()
	m.Put(1, "x")
	m.Put(2, "y")
	vals := m.Values()
	if len(vals) != 2 {
		t.Fatalf("Values() len = %d, want 2", len(vals))
	}
}
