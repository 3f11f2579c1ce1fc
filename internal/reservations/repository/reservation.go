package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	reservationserrors "roomly/internal/reservations/errors"
	"roomly/pkg/config"
	mongotx "roomly/pkg/db/mongo"
	"roomly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Reservations"

	// Overlap scans are bounded; more than this many confirmed reservations
	// intersecting one requested interval means the data is already corrupt.
	MaxOverlapScan = 30
)

type mongoReservationRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

// ReservationRepository is the booking ledger: the only mutable shared
// resource in the admission subsystem. All coordination happens through its
// store-level primitives, never through in-process locks.
type ReservationRepository interface {
	// InsertIfVacant is the conditional atomic write: one round trip that
	// either materializes the reservation or reports the slot taken.
	InsertIfVacant(ctx context.Context, reservation *model.Reservation) error
	// Insert is the unconditional write used inside a transaction after the
	// overlap check has passed.
	Insert(ctx context.Context, reservation *model.Reservation) error
	FindByID(ctx context.Context, id string) (*model.Reservation, error)
	FindConfirmedOverlapping(ctx context.Context, roomID string, interval model.Interval, limit int) ([]*model.Reservation, error)
	FindByOwner(ctx context.Context, ownerID string, limit int, offset int64) ([]*model.Reservation, error)
	CountByOwner(ctx context.Context, ownerID string) (int64, error)
	Cancel(ctx context.Context, id string) (*model.Reservation, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoReservationRepository(cfg *config.Config) ReservationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a
// transaction. SessionContext cannot be wrapped without breaking transaction
// semantics, so inside a transaction the original context is returned with a
// no-op cancel.
func (r *mongoReservationRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

// confirm stamps the fields every admitted reservation carries.
func confirm(reservation *model.Reservation) primitive.ObjectID {
	oid := primitive.NewObjectID()
	now := time.Now().UTC().Truncate(time.Millisecond)
	reservation.ID = oid.Hex()
	reservation.Status = model.StatusConfirmed
	reservation.Revision = 1
	reservation.CreatedAt = now
	reservation.UpdatedAt = now
	return oid
}

// overlapFilter matches confirmed reservations whose half-open interval
// intersects the requested one. This is the storage-side mirror of
// model.Interval.Overlaps and the two must agree.
func overlapFilter(roomID string, interval model.Interval) bson.M {
	return bson.M{
		"room_id":    roomID,
		"status":     model.StatusConfirmed,
		"start_time": bson.M{"$lt": interval.End},
		"end_time":   bson.M{"$gt": interval.Start},
	}
}

func (r *mongoReservationRepository) InsertIfVacant(ctx context.Context, reservation *model.Reservation) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid := confirm(reservation)

	// A single upsert: the filter matches any confirmed overlapping
	// reservation for the room. A match means the slot is taken and nothing
	// is written; no match inserts the new record in the same operation. The
	// equality fields (room_id, status) come from the filter, everything else
	// from $setOnInsert.
	filter := overlapFilter(reservation.RoomID, reservation.Interval())
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":        oid,
			"owner_id":   reservation.OwnerID,
			"start_time": reservation.StartTime,
			"end_time":   reservation.EndTime,
			"revision":   reservation.Revision,
			"created_at": reservation.CreatedAt,
			"updated_at": reservation.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		// The unique partial index on (room_id, start_time, end_time) is the
		// structural backstop: concurrent identical-interval upserts that both
		// pass the filter collapse into one winner here.
		if mongo.IsDuplicateKeyError(err) {
			return reservationserrors.ErrSlotTaken
		}
		return fmt.Errorf("conditional insert failed: %w", err)
	}

	if result.UpsertedID == nil {
		return reservationserrors.ErrSlotTaken
	}
	return nil
}

func (r *mongoReservationRepository) Insert(ctx context.Context, reservation *model.Reservation) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid := confirm(reservation)

	doc := bson.M{
		"_id":        oid,
		"room_id":    reservation.RoomID,
		"owner_id":   reservation.OwnerID,
		"start_time": reservation.StartTime,
		"end_time":   reservation.EndTime,
		"status":     reservation.Status,
		"revision":   reservation.Revision,
		"created_at": reservation.CreatedAt,
		"updated_at": reservation.UpdatedAt,
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return reservationserrors.ErrSlotTaken
		}
		return fmt.Errorf("failed to insert reservation: %w", err)
	}
	return nil
}

func (r *mongoReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter, err := idFilter(id)
	if err != nil {
		return nil, err
	}

	var reservation model.Reservation
	err = r.collection.FindOne(ctx, filter).Decode(&reservation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservationserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}

	return &reservation, nil
}

func (r *mongoReservationRepository) FindConfirmedOverlapping(ctx context.Context, roomID string, interval model.Interval, limit int) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if limit <= 0 || limit > MaxOverlapScan {
		limit = MaxOverlapScan
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, overlapFilter(roomID, interval), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query overlapping reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.Reservation
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}

	return reservations, nil
}

func (r *mongoReservationRepository) FindByOwner(ctx context.Context, ownerID string, limit int, offset int64) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reservations by owner: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.Reservation
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}

	return reservations, nil
}

func (r *mongoReservationRepository) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return 0, fmt.Errorf("failed to count reservations by owner: %w", err)
	}
	return count, nil
}

// Cancel flips a confirmed reservation to cancelled and bumps its revision.
// The interval itself is immutable once admitted; only the status changes.
func (r *mongoReservationRepository) Cancel(ctx context.Context, id string) (*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter, err := idFilter(id)
	if err != nil {
		return nil, err
	}
	filter["status"] = model.StatusConfirmed

	update := bson.M{
		"$set": bson.M{
			"status":     model.StatusCancelled,
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		},
		"$inc": bson.M{"revision": 1},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var reservation model.Reservation
	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&reservation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservationserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to cancel reservation: %w", err)
	}

	return &reservation, nil
}

func (r *mongoReservationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func idFilter(id string) (bson.M, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}
	return bson.M{"_id": objectID}, nil
}
