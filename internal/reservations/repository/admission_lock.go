package repository

import (
	"context"
	"fmt"
	"time"

	reservationserrors "roomly/internal/reservations/errors"
	"roomly/pkg/config"
	"roomly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const LockCollectionName = "Admission_locks"

// AdmissionLockRepository provides the store-level advisory lock the
// transactional strategy serializes same-room admissions behind. The lock is
// per room, not per slot: two admissions with different intervals for the same
// room must still not interleave their read-then-write sections.
type AdmissionLockRepository interface {
	Acquire(ctx context.Context, roomID string, ttl time.Duration) (string, error)
	Release(ctx context.Context, lockID string) error
}

type mongoAdmissionLockRepository struct {
	collection *mongo.Collection
}

func NewAdmissionLockRepository(cfg *config.Config) AdmissionLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAdmissionLockRepository{
		collection: db.Collection(LockCollectionName),
	}
}

// Acquire inserts a lock document keyed by room. On a duplicate key it polls
// until the holder releases or the context deadline expires: same-room
// admissions with non-overlapping intervals must all eventually succeed, so
// lock contention alone is never surfaced as a booking conflict. A TTL index
// on expires_at reaps locks orphaned by a crashed holder.
func (r *mongoAdmissionLockRepository) Acquire(ctx context.Context, roomID string, ttl time.Duration) (string, error) {
	lockID := "admission_" + roomID

	for {
		now := time.Now().UTC()
		lock := &model.AdmissionLock{
			ID:        lockID,
			RoomID:    roomID,
			ExpiresAt: now.Add(ttl),
			CreatedAt: now,
		}

		_, err := r.collection.InsertOne(ctx, lock)
		if err == nil {
			return lockID, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("failed to acquire admission lock: %w", err)
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %s", reservationserrors.ErrLockHeld, roomID)
		case <-time.After(25 * time.Millisecond):
		}
	}
}

func (r *mongoAdmissionLockRepository) Release(ctx context.Context, lockID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID})
	return err
}
