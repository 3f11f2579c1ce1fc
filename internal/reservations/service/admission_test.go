package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	reservationserrors "roomly/internal/reservations/errors"
	"roomly/pkg/config"
	mongotx "roomly/pkg/db/mongo"
	apperrors "roomly/pkg/errors"
	"roomly/pkg/logger"
	"roomly/pkg/model"
)

// memoryLedger emulates the reservation store's atomic primitives: the
// conditional insert, the unique (room, start, end) backstop, and a
// serialized transaction section.
type memoryLedger struct {
	mu           sync.Mutex
	txMu         sync.Mutex
	reservations []*model.Reservation
	nextID       int

	insertErr error // injected fault for admission writes
}

func (m *memoryLedger) stamp(res *model.Reservation) {
	m.nextID++
	now := time.Now().UTC()
	res.ID = fmt.Sprintf("res-%d", m.nextID)
	res.Status = model.StatusConfirmed
	res.Revision = 1
	res.CreatedAt = now
	res.UpdatedAt = now
}

// vacancyConflict applies the same checks the store does: the exact-triple
// unique index first, then the overlap filter.
func (m *memoryLedger) vacancyConflict(res *model.Reservation, overlapAware bool) bool {
	for _, existing := range m.reservations {
		if existing.RoomID != res.RoomID || existing.Status != model.StatusConfirmed {
			continue
		}
		if existing.StartTime.Equal(res.StartTime) && existing.EndTime.Equal(res.EndTime) {
			return true
		}
		if overlapAware && existing.Interval().Overlaps(res.Interval()) {
			return true
		}
	}
	return false
}

func (m *memoryLedger) InsertIfVacant(_ context.Context, res *model.Reservation) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.vacancyConflict(res, true) {
		return reservationserrors.ErrSlotTaken
	}
	m.stamp(res)
	recorded := *res
	m.reservations = append(m.reservations, &recorded)
	return nil
}

func (m *memoryLedger) Insert(_ context.Context, res *model.Reservation) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// The plain insert only enforces the unique backstop, not the overlap
	// filter; the overlap check belongs to the transaction around it.
	if m.vacancyConflict(res, false) {
		return reservationserrors.ErrSlotTaken
	}
	m.stamp(res)
	recorded := *res
	m.reservations = append(m.reservations, &recorded)
	return nil
}

func (m *memoryLedger) FindByID(_ context.Context, id string) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, res := range m.reservations {
		if res.ID == id {
			found := *res
			return &found, nil
		}
	}
	return nil, reservationserrors.ErrNotFound
}

func (m *memoryLedger) FindConfirmedOverlapping(_ context.Context, roomID string, interval model.Interval, limit int) ([]*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.Reservation
	for _, res := range m.reservations {
		if res.RoomID != roomID || res.Status != model.StatusConfirmed {
			continue
		}
		if res.Interval().Overlaps(interval) {
			found := *res
			out = append(out, &found)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memoryLedger) FindByOwner(_ context.Context, ownerID string, limit int, offset int64) ([]*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.Reservation
	for _, res := range m.reservations {
		if res.OwnerID == ownerID {
			found := *res
			out = append(out, &found)
		}
	}
	return out, nil
}

func (m *memoryLedger) CountByOwner(_ context.Context, ownerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, res := range m.reservations {
		if res.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func (m *memoryLedger) Cancel(_ context.Context, id string) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, res := range m.reservations {
		if res.ID == id && res.Status == model.StatusConfirmed {
			res.Status = model.StatusCancelled
			res.Revision++
			res.UpdatedAt = time.Now().UTC()
			found := *res
			return &found, nil
		}
	}
	return nil, reservationserrors.ErrNotFound
}

func (m *memoryLedger) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(nil)
}

func (m *memoryLedger) confirmedForRoom(roomID string) []*model.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.Reservation
	for _, res := range m.reservations {
		if res.RoomID == roomID && res.Status == model.StatusConfirmed {
			out = append(out, res)
		}
	}
	return out
}

// memoryLockRepo emulates the lock collection: the insert either takes the
// per-room key or observes a duplicate and waits.
type memoryLockRepo struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemoryLockRepo() *memoryLockRepo {
	return &memoryLockRepo{held: make(map[string]bool)}
}

func (m *memoryLockRepo) Acquire(ctx context.Context, roomID string, _ time.Duration) (string, error) {
	lockID := "admission_" + roomID
	for {
		m.mu.Lock()
		if !m.held[lockID] {
			m.held[lockID] = true
			m.mu.Unlock()
			return lockID, nil
		}
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %s", reservationserrors.ErrLockHeld, roomID)
		case <-time.After(time.Millisecond):
		}
	}
}

func (m *memoryLockRepo) Release(_ context.Context, lockID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, lockID)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.ERROR, Service: "test"})
}

func testConfig() *config.Config {
	return &config.Config{
		Log:          testLogger(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		CacheTTL:     time.Minute,
	}
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("bad timestamp %q: %v", value, err)
	}
	return ts
}

func newReservation(roomID, ownerID, start, end string, t *testing.T) *model.Reservation {
	return &model.Reservation{
		RoomID:    roomID,
		OwnerID:   ownerID,
		StartTime: mustTime(t, start),
		EndTime:   mustTime(t, end),
		Status:    model.StatusConfirmed,
	}
}

const testRoomID = "64b1f0a2c3d4e5f601234567"

// strategies under test; both must satisfy the same property suite.
func bothStrategies(ledger *memoryLedger) map[string]AdmissionStrategy {
	return map[string]AdmissionStrategy{
		"conditional":   NewConditionalWriteStrategy(ledger),
		"transactional": NewTransactionalStrategy(ledger, newMemoryLockRepo(), 10*time.Second, testLogger()),
	}
}

func TestAdmit_MutualExclusionUnderContention(t *testing.T) {
	for name, newStrategy := range map[string]func(*memoryLedger) AdmissionStrategy{
		"conditional": func(l *memoryLedger) AdmissionStrategy {
			return NewConditionalWriteStrategy(l)
		},
		"transactional": func(l *memoryLedger) AdmissionStrategy {
			return NewTransactionalStrategy(l, newMemoryLockRepo(), 10*time.Second, testLogger())
		},
	} {
		t.Run(name, func(t *testing.T) {
			ledger := &memoryLedger{}
			strategy := newStrategy(ledger)

			const contenders = 8
			results := make(chan error, contenders)

			var wg sync.WaitGroup
			for i := 0; i < contenders; i++ {
				wg.Add(1)
				go func(n int) {
					defer wg.Done()
					// All intervals pairwise overlap around the same day.
					start := fmt.Sprintf("2025-06-01T%02d:00:00Z", 9+n)
					res := newReservation(testRoomID, fmt.Sprintf("owner-%d", n), start, "2025-06-01T20:00:00Z", t)
					results <- strategy.Admit(context.Background(), res)
				}(i)
			}
			wg.Wait()
			close(results)

			var successes, conflicts int
			for err := range results {
				switch {
				case err == nil:
					successes++
				case apperrors.IsCode(err, apperrors.CodeConflict):
					conflicts++
				default:
					t.Fatalf("unexpected error: %v", err)
				}
			}

			if successes != 1 {
				t.Errorf("expected exactly 1 admission, got %d", successes)
			}
			if conflicts != contenders-1 {
				t.Errorf("expected %d conflicts, got %d", contenders-1, conflicts)
			}
			if got := len(ledger.confirmedForRoom(testRoomID)); got != 1 {
				t.Errorf("ledger holds %d confirmed reservations, want 1", got)
			}
		})
	}
}

func TestAdmit_NonOverlappingIntervalsAllSucceed(t *testing.T) {
	ledger := &memoryLedger{}
	for name, strategy := range bothStrategies(ledger) {
		t.Run(name, func(t *testing.T) {
			ledger.reservations = nil

			const bookings = 6
			results := make(chan error, bookings)

			var wg sync.WaitGroup
			for i := 0; i < bookings; i++ {
				wg.Add(1)
				go func(n int) {
					defer wg.Done()
					start := fmt.Sprintf("2025-06-%02dT10:00:00Z", n+1)
					end := fmt.Sprintf("2025-06-%02dT18:00:00Z", n+1)
					res := newReservation(testRoomID, fmt.Sprintf("owner-%d", n), start, end, t)
					results <- strategy.Admit(context.Background(), res)
				}(i)
			}
			wg.Wait()
			close(results)

			for err := range results {
				if err != nil {
					t.Errorf("non-overlapping admission failed: %v", err)
				}
			}
			if got := len(ledger.confirmedForRoom(testRoomID)); got != bookings {
				t.Errorf("ledger holds %d confirmed reservations, want %d", got, bookings)
			}
		})
	}
}

func TestAdmit_HalfOpenBoundaryDoesNotConflict(t *testing.T) {
	ledger := &memoryLedger{}
	for name, strategy := range bothStrategies(ledger) {
		t.Run(name, func(t *testing.T) {
			ledger.reservations = nil

			first := newReservation(testRoomID, "owner-a", "2025-01-01T15:00:00Z", "2025-01-03T11:00:00Z", t)
			if err := strategy.Admit(context.Background(), first); err != nil {
				t.Fatalf("first admission failed: %v", err)
			}

			// Starts exactly when the first ends; the shared boundary is open.
			second := newReservation(testRoomID, "owner-b", "2025-01-03T11:00:00Z", "2025-01-05T11:00:00Z", t)
			if err := strategy.Admit(context.Background(), second); err != nil {
				t.Fatalf("boundary admission failed: %v", err)
			}

			if got := len(ledger.confirmedForRoom(testRoomID)); got != 2 {
				t.Errorf("ledger holds %d confirmed reservations, want 2", got)
			}
		})
	}
}

func TestAdmit_ContainedOverlapConflicts(t *testing.T) {
	ledger := &memoryLedger{}
	for name, strategy := range bothStrategies(ledger) {
		t.Run(name, func(t *testing.T) {
			ledger.reservations = nil

			outer := newReservation(testRoomID, "owner-a", "2025-01-01T15:00:00Z", "2025-01-03T11:00:00Z", t)
			if err := strategy.Admit(context.Background(), outer); err != nil {
				t.Fatalf("first admission failed: %v", err)
			}

			inner := newReservation(testRoomID, "owner-b", "2025-01-02T10:00:00Z", "2025-01-02T18:00:00Z", t)
			err := strategy.Admit(context.Background(), inner)
			if !apperrors.IsCode(err, apperrors.CodeConflict) {
				t.Fatalf("expected conflict for contained overlap, got %v", err)
			}

			if got := len(ledger.confirmedForRoom(testRoomID)); got != 1 {
				t.Errorf("ledger holds %d confirmed reservations, want 1", got)
			}
		})
	}
}

func TestAdmit_ExactDuplicateHitsBackstop(t *testing.T) {
	ledger := &memoryLedger{}
	for name, strategy := range bothStrategies(ledger) {
		t.Run(name, func(t *testing.T) {
			ledger.reservations = nil

			first := newReservation(testRoomID, "owner-a", "2025-03-01T09:00:00Z", "2025-03-01T12:00:00Z", t)
			if err := strategy.Admit(context.Background(), first); err != nil {
				t.Fatalf("first admission failed: %v", err)
			}

			duplicate := newReservation(testRoomID, "owner-b", "2025-03-01T09:00:00Z", "2025-03-01T12:00:00Z", t)
			err := strategy.Admit(context.Background(), duplicate)
			if !apperrors.IsCode(err, apperrors.CodeConflict) {
				t.Fatalf("expected conflict for byte-identical interval, got %v", err)
			}
		})
	}
}

func TestAdmit_DeadlineExpiryIsIndeterminate(t *testing.T) {
	ledger := &memoryLedger{insertErr: fmt.Errorf("connection: %w", context.DeadlineExceeded)}
	strategy := NewConditionalWriteStrategy(ledger)

	res := newReservation(testRoomID, "owner-a", "2025-04-01T09:00:00Z", "2025-04-01T12:00:00Z", t)
	err := strategy.Admit(context.Background(), res)

	if !apperrors.IsCode(err, apperrors.CodeIndeterminate) {
		t.Fatalf("expected indeterminate outcome, got %v", err)
	}
	if apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Fatal("a timed-out write must never be reported as a conflict")
	}
}

func TestAdmit_StoreFailureIsNotConflict(t *testing.T) {
	storeErr := errors.New("write exception")
	ledger := &memoryLedger{insertErr: storeErr}
	strategy := NewConditionalWriteStrategy(ledger)

	res := newReservation(testRoomID, "owner-a", "2025-04-01T09:00:00Z", "2025-04-01T12:00:00Z", t)
	err := strategy.Admit(context.Background(), res)

	if err == nil {
		t.Fatal("expected an error")
	}
	if apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Fatal("a store failure must never be reported as a conflict")
	}
	if !errors.Is(err, storeErr) {
		t.Errorf("store error should be preserved in the chain, got %v", err)
	}
}

func TestTransactionalAdmit_LockWaitTimesOut(t *testing.T) {
	ledger := &memoryLedger{}
	locks := newMemoryLockRepo()
	strategy := NewTransactionalStrategy(ledger, locks, 10*time.Second, testLogger())

	// Hold the room's lock so the admission has to wait.
	if _, err := locks.Acquire(context.Background(), testRoomID, 10*time.Second); err != nil {
		t.Fatalf("failed to pre-acquire lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res := newReservation(testRoomID, "owner-a", "2025-05-01T09:00:00Z", "2025-05-01T12:00:00Z", t)
	err := strategy.Admit(ctx, res)

	if !apperrors.IsCode(err, apperrors.CodeTimeout) {
		t.Fatalf("expected timeout while waiting for lock, got %v", err)
	}
	if !strings.Contains(err.Error(), "lock") {
		t.Errorf("error should mention the lock, got %v", err)
	}
	if got := len(ledger.confirmedForRoom(testRoomID)); got != 0 {
		t.Errorf("no write should have happened, ledger holds %d", got)
	}
}

func TestTransactionalAdmit_ReleasesLock(t *testing.T) {
	ledger := &memoryLedger{}
	locks := newMemoryLockRepo()
	strategy := NewTransactionalStrategy(ledger, locks, 10*time.Second, testLogger())

	res := newReservation(testRoomID, "owner-a", "2025-05-01T09:00:00Z", "2025-05-01T12:00:00Z", t)
	if err := strategy.Admit(context.Background(), res); err != nil {
		t.Fatalf("admission failed: %v", err)
	}

	locks.mu.Lock()
	defer locks.mu.Unlock()
	if len(locks.held) != 0 {
		t.Errorf("lock not released, still held: %v", locks.held)
	}
}
