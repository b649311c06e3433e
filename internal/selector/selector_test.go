package selector

import (
	"math/rand"
	"testing"

	"cyberrange-server/internal/shared/errors"
)

func TestPickExcludesUsedEntries(t *testing.T) {
	pool := map[string]int{"a": 1, "b": 2, "c": 3}
	used := map[string]bool{"a": true, "c": true}
	rng := rand.New(rand.NewSource(1))

	id, item, err := Pick(pool, func(id string, _ int) bool { return used[id] }, rng)
	if err != nil {
		t.Fatalf("Pick returned error: %v", err)
	}
	if id != "b" || item != 2 {
		t.Errorf("Pick = (%q, %d), want (b, 2)", id, item)
	}
}

func TestPickExhaustedPool(t *testing.T) {
	pool := map[string]string{"a": "x", "b": "y"}
	rng := rand.New(rand.NewSource(1))

	_, _, err := Pick(pool, func(string, string) bool { return true }, rng)
	if err == nil {
		t.Fatal("expected error for exhausted pool")
	}
	if !errors.Is(err, errors.ErrorTypePoolExhausted) {
		t.Errorf("error type = %v, want pool_exhausted", errors.GetType(err))
	}
}

func TestPickNeverRepeats(t *testing.T) {
	pool := map[string]int{"a": 1, "b": 2, "c": 3, "d": 4}
	used := map[string]bool{}
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < len(pool); i++ {
		id, _, err := Pick(pool, func(id string, _ int) bool { return used[id] }, rng)
		if err != nil {
			t.Fatalf("draw %d returned error: %v", i, err)
		}
		if used[id] {
			t.Fatalf("draw %d repeated id %q", i, id)
		}
		used[id] = true
	}

	if _, _, err := Pick(pool, func(id string, _ int) bool { return used[id] }, rng); err == nil {
		t.Error("expected exhaustion after all entries were drawn")
	}
}

func TestPickDeterministicWithSeed(t *testing.T) {
	pool := map[string]int{"a": 1, "b": 2, "c": 3, "d": 4, "e": 5}

	first, _, err := Pick(pool, nil, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("Pick returned error: %v", err)
	}
	second, _, err := Pick(pool, nil, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("Pick returned error: %v", err)
	}

	if first != second {
		t.Errorf("same seed produced different picks: %q vs %q", first, second)
	}
}
