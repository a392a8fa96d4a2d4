package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/sabrositas/pos-backend/pkg/config"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string)}
}

func (m *mockStore) StoreRefreshToken(ctx context.Context, userID, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[userID] = token
	return nil
}

func (m *mockStore) GetRefreshToken(ctx context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[userID]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) RevokeRefreshToken(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, userID)
	return nil
}

func TestManagerGenerateAndRotate(t *testing.T) {
	store := newMockStore()
	manager := &Manager{store: store, ttl: time.Hour}
	ctx := context.Background()

	token, err := manager.Generate(ctx, "user-1")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if token == "" {
		t.Fatal("Generate returned empty token")
	}

	rotated, err := manager.Rotate(ctx, "user-1", token)
	if err != nil {
		t.Fatalf("Rotate returned error: %v", err)
	}
	if rotated == token {
		t.Fatal("Rotate returned the same token")
	}

	// First token must be unusable after rotation.
	if _, err := manager.Rotate(ctx, "user-1", token); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestManagerRotateUnknownUser(t *testing.T) {
	manager := &Manager{store: newMockStore(), ttl: time.Hour}
	if _, err := manager.Rotate(context.Background(), "missing", "tok"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestManagerRevoke(t *testing.T) {
	store := newMockStore()
	manager := &Manager{store: store, ttl: time.Hour}
	ctx := context.Background()

	token, err := manager.Generate(ctx, "user-2")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if err := manager.Revoke(ctx, "user-2"); err != nil {
		t.Fatalf("Revoke returned error: %v", err)
	}
	if _, err := manager.Rotate(ctx, "user-2", token); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken after revoke, got %v", err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(nil, config.JWTConfig{}); err == nil {
		t.Fatal("expected error for nil client")
	}
}
