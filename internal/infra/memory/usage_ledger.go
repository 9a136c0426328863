package memory

import (
	"context"
	"sync"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
)

// UsageLedger is an in-memory implementation of app.UsageLedger.
type UsageLedger struct {
	mu   sync.Mutex
	used map[domain.Level]map[string]struct{}
}

func NewUsageLedger() *UsageLedger {
	return &UsageLedger{used: make(map[domain.Level]map[string]struct{})}
}

func (l *UsageLedger) Used(_ context.Context, level domain.Level) (map[string]struct{}, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return copySet(l.used[level]), nil
}

func (l *UsageLedger) Replace(_ context.Context, level domain.Level, used map[string]struct{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.used[level] = copySet(used)
	return nil
}

func copySet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for id := range in {
		out[id] = struct{}{}
	}
	return out
}
