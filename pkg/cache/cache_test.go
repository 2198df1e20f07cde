package cache

import "testing"

func TestGetSet(t *testing.T) {
	c := New[string, int](0)
	if _, ok := c.Get("a"); ok {
		t.Fatal("empty cache returned a value")
	}
	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v", v, ok)
	}
	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.Len != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestGetOrCreate(t *testing.T) {
	c := New[int, string](0)
	calls := 0
	create := func() string { calls++; return "v" }

	for range 3 {
		if got := c.GetOrCreate(7, create); got != "v" {
			t.Fatalf("GetOrCreate = %q", got)
		}
	}
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}
}

func TestEvictsOldest(t *testing.T) {
	c := New[int, int](8)
	var evicted []int
	c.OnEvict(func(k, _ int) { evicted = append(evicted, k) })

	for i := range 8 {
		c.Set(i, i)
	}
	// Touch the first four so the next four are the oldest.
	for i := range 4 {
		c.Get(i)
	}
	c.Set(100, 100)

	if c.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", c.Len())
	}
	for i := range 4 {
		if _, ok := c.Peek(i); !ok {
			t.Errorf("recently used key %d was evicted", i)
		}
	}
	if _, ok := c.Peek(100); !ok {
		t.Error("newly inserted key was evicted")
	}
	if len(evicted) != 3 || c.Stats().Evictions != 3 {
		t.Errorf("evicted %v", evicted)
	}
}

func TestDeleteFunc(t *testing.T) {
	c := New[[2]int, bool](0)
	for i := range 4 {
		for j := range 3 {
			c.Set([2]int{i, j}, true)
		}
	}
	n := c.DeleteFunc(func(k [2]int) bool { return k[1] == 2 })
	if n != 4 || c.Len() != 8 {
		t.Errorf("DeleteFunc removed %d, Len() = %d", n, c.Len())
	}
	if !c.Delete([2]int{0, 0}) || c.Delete([2]int{0, 0}) {
		t.Error("Delete should succeed once")
	}
	c.Clear()
	if c.Len() != 0 {
		t.Error("Clear left entries")
	}
}

func BenchmarkGet(b *testing.B) {
	c := New[int, int](1024)
	for i := range 1024 {
		c.Set(i, i)
	}
	i := 0
	for b.Loop() {
		c.Get(i & 1023)
		i++
	}
}
