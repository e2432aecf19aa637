package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/strataworks/geoassist/internal/core/domain"
)

func TestStoreGuardRestoreSuccess(t *testing.T) {
	guard := newStoreGuard()
	store := &fakeVectorStore{healthSeq: []bool{true}}

	if err := guard.restore(context.Background(), domain.StoreVector, store); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.reconnects != 1 {
		t.Fatalf("reconnects = %d, want 1", store.reconnects)
	}
	if !guard.isHealthy(domain.StoreVector) {
		t.Fatalf("store should be marked healthy after a validated reconnect")
	}
}

func TestStoreGuardRestoreReconnectError(t *testing.T) {
	guard := newStoreGuard()
	store := &fakeVectorStore{reconnectErr: errors.New("dial tcp: connection refused")}

	err := guard.restore(context.Background(), domain.StoreVector, store)
	if !domain.IsKind(err, domain.ErrStoreUnavailable) {
		t.Fatalf("error = %v, want ErrStoreUnavailable kind", err)
	}
	if guard.isHealthy(domain.StoreVector) {
		t.Fatalf("store must stay unhealthy when reconnect fails")
	}
}

func TestStoreGuardRestoreFailedProbe(t *testing.T) {
	guard := newStoreGuard()
	store := &fakeVectorStore{healthSeq: []bool{false}}

	err := guard.restore(context.Background(), domain.StoreVector, store)
	if !domain.IsKind(err, domain.ErrStoreUnavailable) {
		t.Fatalf("error = %v, want ErrStoreUnavailable kind", err)
	}
	if store.reconnects != 1 {
		t.Fatalf("reconnects = %d, want exactly 1", store.reconnects)
	}
	if guard.isHealthy(domain.StoreVector) {
		t.Fatalf("store must stay unhealthy when the validation probe fails")
	}
}
