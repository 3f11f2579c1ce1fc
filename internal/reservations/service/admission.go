package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	reservationserrors "roomly/internal/reservations/errors"
	"roomly/internal/reservations/repository"
	"roomly/pkg/config"
	apperrors "roomly/pkg/errors"
	"roomly/pkg/logger"
	"roomly/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// AdmissionStrategy decides, under concurrency, whether a reservation may be
// durably recorded. Among any set of concurrent attempts with pairwise
// overlapping intervals for one room, at most one succeeds; the rest see
// Conflict. The two implementations are interchangeable and selected by
// configuration.
type AdmissionStrategy interface {
	Admit(ctx context.Context, reservation *model.Reservation) error
}

// NewAdmissionStrategy picks the configured strategy.
func NewAdmissionStrategy(
	cfg *config.Config,
	repo repository.ReservationRepository,
	locks repository.AdmissionLockRepository,
) AdmissionStrategy {
	if cfg.AdmissionStrategy == config.StrategyTransactional {
		return NewTransactionalStrategy(repo, locks, cfg.AdmissionLockTTL, cfg.Log)
	}
	return NewConditionalWriteStrategy(repo)
}

// conditionalWriteStrategy admits through a single store-level conditional
// write: the existence check and the insert are one indivisible operation, so
// it needs no coordination protocol and degrades gracefully under contention.
type conditionalWriteStrategy struct {
	repo repository.ReservationRepository
}

func NewConditionalWriteStrategy(repo repository.ReservationRepository) AdmissionStrategy {
	return &conditionalWriteStrategy{repo: repo}
}

func (s *conditionalWriteStrategy) Admit(ctx context.Context, reservation *model.Reservation) error {
	err := s.repo.InsertIfVacant(ctx, reservation)
	if err == nil {
		return nil
	}
	if errors.Is(err, reservationserrors.ErrSlotTaken) {
		return conflictError(reservation.Interval())
	}
	return admissionWriteError(err)
}

// transactionalStrategy serializes same-room admissions behind a store-level
// advisory lock, then reads confirmed reservations and inserts inside one
// transaction. The lock closes the gap a read-committed transaction would
// leave between the overlap read and the commit; the unique index remains the
// structural backstop either way.
type transactionalStrategy struct {
	repo    repository.ReservationRepository
	locks   repository.AdmissionLockRepository
	lockTTL time.Duration
	log     *logger.Logger
}

func NewTransactionalStrategy(
	repo repository.ReservationRepository,
	locks repository.AdmissionLockRepository,
	lockTTL time.Duration,
	log *logger.Logger,
) AdmissionStrategy {
	return &transactionalStrategy{
		repo:    repo,
		locks:   locks,
		lockTTL: lockTTL,
		log:     log,
	}
}

func (s *transactionalStrategy) Admit(ctx context.Context, reservation *model.Reservation) error {
	lockID, err := s.locks.Acquire(ctx, reservation.RoomID, s.lockTTL)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrLockHeld) {
			// The deadline ran out while waiting; nothing was written.
			return apperrors.Timeout("Timed out waiting for the room's admission lock")
		}
		return admissionWriteError(err)
	}
	defer func() {
		// Release must outlive the request deadline or the lock lingers
		// until its TTL reaps it.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if releaseErr := s.locks.Release(releaseCtx, lockID); releaseErr != nil {
			s.log.Warn("Failed to release admission lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		existing, err := s.repo.FindConfirmedOverlapping(sessCtx, reservation.RoomID, reservation.Interval(), repository.MaxOverlapScan)
		if err != nil {
			return fmt.Errorf("overlap check failed: %w", err)
		}

		for _, other := range existing {
			if other.Interval().Overlaps(reservation.Interval()) {
				return conflictError(reservation.Interval())
			}
		}

		if err := s.repo.Insert(sessCtx, reservation); err != nil {
			if errors.Is(err, reservationserrors.ErrSlotTaken) {
				return conflictError(reservation.Interval())
			}
			return err
		}
		return nil
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		return admissionWriteError(err)
	}
	return nil
}

func conflictError(interval model.Interval) error {
	return apperrors.Conflict(fmt.Sprintf(
		"Room is already reserved between %s and %s",
		interval.Start.Format(time.RFC3339),
		interval.End.Format(time.RFC3339),
	))
}

// admissionWriteError classifies a store failure during the admission write.
// An expired deadline is Indeterminate: the write may or may not have landed,
// and the caller must re-check the ledger before retrying. An unreachable
// store is surfaced as such, never disguised as a booking conflict.
func admissionWriteError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err):
		return apperrors.Indeterminate("Admission outcome unknown: the store call timed out", err)
	case mongo.IsNetworkError(err):
		return apperrors.Unavailable("Reservation store", err)
	default:
		return apperrors.Internal("Failed to admit reservation", err)
	}
}
