// Package selector picks uniformly at random from a candidate pool with
// an exclusion predicate. The attack and situation cycles use it with
// their session-wide used sets, which makes every pick a non-repeating
// draw until the pool runs dry.
package selector

import (
	"math/rand"
	"sort"

	"cyberrange-server/internal/shared/errors"
)

// Pick returns a random entry of pool for which excluded is false. Keys
// are sorted before drawing so a seeded rng yields a reproducible pick.
// An empty remainder yields a pool-exhausted error.
func Pick[T any](pool map[string]T, excluded func(id string, item T) bool, rng *rand.Rand) (string, T, error) {
	ids := make([]string, 0, len(pool))
	for id, item := range pool {
		if excluded == nil || !excluded(id, item) {
			ids = append(ids, id)
		}
	}

	if len(ids) == 0 {
		var zero T
		return "", zero, errors.PoolExhausted("selection pool exhausted")
	}

	sort.Strings(ids)
	id := ids[rng.Intn(len(ids))]
	return id, pool[id], nil
}
