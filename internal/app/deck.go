package app

import (
	"fmt"
	"math/rand"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
)

// DrawQuestions picks n distinct ids from all, avoiding ids already in used.
//
// When the unused ids cannot fill the draw, every unused id is taken, the ledger
// is cleared and the remainder is sampled from the rest of the pool. Only the
// fill ids are recorded in the new ledger. The returned order is shuffled independently of draw order.
// reshuffled reports whether the ledger was cleared.
func DrawQuestions(all []string, used map[string]struct{}, n int, rnd *rand.Rand) (selected []string, next map[string]struct{}, reshuffled bool, err error) {
	pool := distinct(all)
	if n <= 0 {
		return nil, nil, false, fmt.Errorf("%w: question count must be positive", domain.ErrInvalidInput)
	}
	if len(pool) < n {
		return nil, nil, false, fmt.Errorf("%w: %d available, %d required", domain.ErrInsufficientQuestions, len(pool), n)
	}

	unused := make([]string, 0, len(pool))
	for _, id := range pool {
		if _, ok := used[id]; !ok {
			unused = append(unused, id)
		}
	}

	if len(unused) >= n {
		rnd.Shuffle(len(unused), func(i, j int) { unused[i], unused[j] = unused[j], unused[i] })
		selected = append([]string(nil), unused[:n]...)
		next = make(map[string]struct{}, len(used)+n)
		for id := range used {
			next[id] = struct{}{}
		}
		for _, id := range selected {
			next[id] = struct{}{}
		}
		return selected, next, false, nil
	}

	selected = append([]string(nil), unused...)
	taken := make(map[string]struct{}, n)
	for _, id := range selected {
		taken[id] = struct{}{}
	}

	rest := make([]string, 0, len(pool)-len(selected))
	for _, id := range pool {
		if _, ok := taken[id]; !ok {
			rest = append(rest, id)
		}
	}
	rnd.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })

	fill := rest[:n-len(selected)]
	next = make(map[string]struct{}, len(fill))
	for _, id := range fill {
		next[id] = struct{}{}
	}
	selected = append(selected, fill...)
	rnd.Shuffle(len(selected), func(i, j int) { selected[i], selected[j] = selected[j], selected[i] })
	return selected, next, true, nil
}

// SampleQuestions picks n distinct ids uniformly from all without any ledger.
func SampleQuestions(all []string, n int, rnd *rand.Rand) ([]string, error) {
	selected, _, _, err := DrawQuestions(all, nil, n, rnd)
	return selected, err
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
