package service

import (
	"context"
	"sync"
	"testing"

	apperrors "roomly/pkg/errors"
	"roomly/pkg/model"
)

// countingRoomRepo wraps the room mock so tests can see store round trips.
type countingRoomRepo struct {
	mockRoomRepo
	mu    sync.Mutex
	calls int
}

func (m *countingRoomRepo) FindByID(ctx context.Context, id string) (*model.Room, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.mockRoomRepo.FindByID(ctx, id)
}

func (m *countingRoomRepo) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Room, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.mockRoomRepo.FindAll(ctx, limit, offset)
}

func (m *countingRoomRepo) storeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestRoomGetByID_CachesAndInvalidates(t *testing.T) {
	cfg := testConfig()
	repo := &countingRoomRepo{mockRoomRepo: mockRoomRepo{rooms: map[string]*model.Room{
		testRoomID: {ID: testRoomID, Name: "Seaside Loft"},
	}}}
	cacheStore := newRecordingCache()
	svc := NewRoomService(repo, cacheStore, cfg)

	for i := 0; i < 3; i++ {
		room, err := svc.GetByID(context.Background(), testRoomID)
		if err != nil {
			t.Fatalf("lookup %d failed: %v", i, err)
		}
		if room.Name != "Seaside Loft" {
			t.Errorf("room name = %q", room.Name)
		}
	}
	if got := repo.storeCalls(); got != 1 {
		t.Errorf("store hit %d times, want 1 (rest from cache)", got)
	}

	// An admission for this room expires the cached detail.
	invalidator := NewCacheInvalidator(cacheStore, cfg.Log)
	invalidator.Invalidate(testRoomID)

	if _, err := svc.GetByID(context.Background(), testRoomID); err != nil {
		t.Fatalf("lookup after invalidation failed: %v", err)
	}
	if got := repo.storeCalls(); got != 2 {
		t.Errorf("store hit %d times, want 2 after invalidation", got)
	}
}

func TestRoomGetByID_UnknownRoom(t *testing.T) {
	cfg := testConfig()
	repo := &countingRoomRepo{mockRoomRepo: mockRoomRepo{rooms: map[string]*model.Room{}}}
	svc := NewRoomService(repo, newRecordingCache(), cfg)

	_, err := svc.GetByID(context.Background(), testRoomID)
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if _, err := svc.GetByID(context.Background(), ""); !apperrors.IsCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected invalid input for empty id, got %v", err)
	}
}

func TestRoomList_CachesFirstPageOnly(t *testing.T) {
	cfg := testConfig()
	repo := &countingRoomRepo{mockRoomRepo: mockRoomRepo{rooms: map[string]*model.Room{
		testRoomID:   {ID: testRoomID, Name: "Seaside Loft"},
		secondRoomID: {ID: secondRoomID, Name: "Garden Suite"},
	}}}
	cacheStore := newRecordingCache()
	svc := NewRoomService(repo, cacheStore, cfg)

	rooms, total, err := svc.List(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 2 || len(rooms) != 2 {
		t.Errorf("got %d rooms / total %d, want 2 / 2", len(rooms), total)
	}
	first := repo.storeCalls()

	// Second first-page read is served from cache.
	if _, _, err := svc.List(context.Background(), 10, 0); err != nil {
		t.Fatalf("cached list failed: %v", err)
	}
	if got := repo.storeCalls(); got != first {
		t.Errorf("first page should come from cache, store calls went %d -> %d", first, got)
	}

	// Deeper pages bypass the cache.
	if _, _, err := svc.List(context.Background(), 10, 1); err != nil {
		t.Fatalf("offset list failed: %v", err)
	}
	if got := repo.storeCalls(); got == first {
		t.Error("offset pages must hit the store")
	}
}
