package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/strataworks/geoassist/internal/core/domain"
	"github.com/strataworks/geoassist/internal/core/ports"
)

// storeGuard tracks connection health per retrieval store and serializes
// reconnect attempts across concurrent requests. Probes are never cached;
// the recorded state only reflects the most recent probe or reconnect
// outcome.
type storeGuard struct {
	mu      sync.Mutex
	healthy map[domain.StoreKind]bool

	reconnectMu sync.Mutex
}

func newStoreGuard() *storeGuard {
	return &storeGuard{
		healthy: map[domain.StoreKind]bool{
			domain.StoreVector:  true,
			domain.StoreLexical: true,
		},
	}
}

func (g *storeGuard) set(kind domain.StoreKind, healthy bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.healthy[kind] = healthy
}

func (g *storeGuard) isHealthy(kind domain.StoreKind) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.healthy[kind]
}

// restore runs the single-reconnect recovery sequence for one store: mark
// unhealthy, reconnect, validate with one probe. Failure comes back as a
// StoreError so callers surface service-unavailable semantics; the store
// stays marked unhealthy until a later sequence succeeds.
func (g *storeGuard) restore(ctx context.Context, kind domain.StoreKind, store ports.StoreLifecycle) error {
	g.reconnectMu.Lock()
	defer g.reconnectMu.Unlock()

	g.set(kind, false)
	slog.Warn("attempting store reconnect", "store", string(kind))

	if err := store.Reconnect(ctx); err != nil {
		return domain.NewStoreError(kind, "reconnect", err)
	}
	if status := store.HealthCheck(ctx); !status.Healthy {
		return domain.NewStoreError(kind, "post-reconnect probe", probeError(status))
	}

	g.set(kind, true)
	slog.Info("store reconnected", "store", string(kind))
	return nil
}

func probeError(status domain.HealthStatus) error {
	if status.Detail == "" {
		return errors.New("health check failed")
	}
	return errors.New(status.Detail)
}
