package service

import (
	"context"
	"errors"
	"sync"

	reservationserrors "roomly/internal/reservations/errors"
	"roomly/internal/reservations/repository"
	"roomly/internal/reservations/validator"
	"roomly/pkg/config"
	apperrors "roomly/pkg/errors"
	"roomly/pkg/model"
)

type ReservationService interface {
	// Create runs the full admission flow: validation, room existence,
	// strategy admission, then best-effort cache invalidation and eventing.
	Create(ctx context.Context, reservation *model.Reservation) error
	// CheckAvailability always reads the ledger directly, never the cache.
	CheckAvailability(ctx context.Context, roomID string, interval model.Interval) (bool, error)
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	ListByOwner(ctx context.Context, ownerID string, limit int, offset int64) ([]*model.Reservation, int64, error)
	Cancel(ctx context.Context, id string, ownerID string) error
}

type reservationService struct {
	repo        repository.ReservationRepository
	rooms       repository.RoomRepository
	strategy    AdmissionStrategy
	validator   *validator.ReservationValidator
	invalidator *CacheInvalidator
	publisher   EventPublisher
	cfg         *config.Config
}

func NewReservationService(
	repo repository.ReservationRepository,
	rooms repository.RoomRepository,
	strategy AdmissionStrategy,
	reservationValidator *validator.ReservationValidator,
	invalidator *CacheInvalidator,
	publisher EventPublisher,
	cfg *config.Config,
) ReservationService {
	return &reservationService{
		repo:        repo,
		rooms:       rooms,
		strategy:    strategy,
		validator:   reservationValidator,
		invalidator: invalidator,
		publisher:   publisher,
		cfg:         cfg,
	}
}

func (s *reservationService) Create(ctx context.Context, reservation *model.Reservation) error {
	reservation.Status = model.StatusConfirmed

	if err := s.validate(reservation); err != nil {
		return err
	}

	if err := s.roomExists(ctx, reservation.RoomID); err != nil {
		return err
	}

	if err := s.strategy.Admit(ctx, reservation); err != nil {
		if apperrors.IsCode(err, apperrors.CodeConflict) {
			s.cfg.Log.Debug("Admission lost to an overlapping reservation",
				"room_id", reservation.RoomID,
				"start_time", reservation.StartTime,
				"end_time", reservation.EndTime,
			)
		} else {
			s.cfg.Log.Error("Failed to admit reservation", "room_id", reservation.RoomID, "error", err)
		}
		return err
	}

	// The reservation is durable from here on; everything below is
	// best-effort and never undoes the admission.
	s.invalidator.Invalidate(reservation.RoomID)
	s.publishEvent(ctx, EventReservationConfirmed, reservation)

	s.cfg.Log.Info("Reservation admitted",
		"id", reservation.ID,
		"room_id", reservation.RoomID,
		"owner_id", reservation.OwnerID,
		"start_time", reservation.StartTime,
		"end_time", reservation.EndTime,
	)
	return nil
}

func (s *reservationService) CheckAvailability(ctx context.Context, roomID string, interval model.Interval) (bool, error) {
	if !interval.Valid() {
		return false, apperrors.Validation("Invalid interval", map[string]any{
			"error": reservationserrors.ErrInvalidInterval.Error(),
		})
	}

	if err := s.roomExists(ctx, roomID); err != nil {
		return false, err
	}

	existing, err := s.repo.FindConfirmedOverlapping(ctx, roomID, interval, 1)
	if err != nil {
		s.cfg.Log.Error("Failed to check availability", "room_id", roomID, "error", err)
		return false, apperrors.Internal("Failed to check availability", err)
	}

	return len(existing) == 0, nil
}

func (s *reservationService) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Reservation", id)
		}
		if errors.Is(err, reservationserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid reservation ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve reservation", err)
	}

	return reservation, nil
}

func (s *reservationService) ListByOwner(ctx context.Context, ownerID string, limit int, offset int64) ([]*model.Reservation, int64, error) {
	if ownerID == "" {
		return nil, 0, apperrors.InvalidInput("Owner ID cannot be empty")
	}

	var count int64
	var reservations []*model.Reservation
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByOwner(ctx, ownerID)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count reservations", "owner_id", ownerID, "error", errCount)
			errCount = apperrors.Internal("Failed to count reservations", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		reservations, errFind = s.repo.FindByOwner(ctx, ownerID, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list reservations", "owner_id", ownerID, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve reservations", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return reservations, count, nil
}

func (s *reservationService) Cancel(ctx context.Context, id string, ownerID string) error {
	if id == "" {
		return apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.OwnerID != ownerID {
		// Not the caller's reservation; do not reveal that it exists.
		return apperrors.NotFoundWithID("Reservation", id)
	}
	if existing.Status == model.StatusCancelled {
		return nil
	}

	cancelled, err := s.repo.Cancel(ctx, id)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrNotFound) {
			// Lost a cancel race; the record is already cancelled.
			return nil
		}
		s.cfg.Log.Error("Failed to cancel reservation", "id", id, "error", err)
		return apperrors.Internal("Failed to cancel reservation", err)
	}

	s.invalidator.Invalidate(cancelled.RoomID)
	s.publishEvent(ctx, EventReservationCancelled, cancelled)

	s.cfg.Log.Info("Reservation cancelled", "id", id, "room_id", cancelled.RoomID, "revision", cancelled.Revision)
	return nil
}

// --- Helpers ---

func (s *reservationService) validate(reservation *model.Reservation) error {
	if err := s.validator.Validate(reservation); err != nil {
		s.cfg.Log.Warn("Reservation validation failed", "error", err)
		return apperrors.Validation("Reservation validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

// roomExists rejects unknown rooms before the admission write. Advisory with
// respect to concurrent room deletion; rooms are not deleted while booking.
func (s *reservationService) roomExists(ctx context.Context, roomID string) error {
	if roomID == "" {
		return apperrors.InvalidInput("Room ID cannot be empty")
	}
	if _, err := s.rooms.FindByID(ctx, roomID); err != nil {
		if errors.Is(err, reservationserrors.ErrRoomNotFound) {
			return apperrors.NotFoundWithID("Room", roomID)
		}
		return apperrors.Internal("Failed to check room existence", err)
	}
	return nil
}

func (s *reservationService) publishEvent(ctx context.Context, eventType string, reservation *model.Reservation) {
	if s.publisher == nil {
		return
	}

	msg, err := buildReservationEvent(eventType, reservation)
	if err != nil {
		s.cfg.Log.Warn("Failed to build reservation event", "id", reservation.ID, "error", err)
		return
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.cfg.Log.Warn("Failed to publish reservation event",
			"id", reservation.ID,
			"event_type", eventType,
			"error", err,
		)
	}
}
