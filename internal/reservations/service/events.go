package service

import (
	"context"
	"time"

	"roomly/pkg/kafka"
	"roomly/pkg/model"
)

const (
	EventReservationConfirmed = "reservation.confirmed"
	EventReservationCancelled = "reservation.cancelled"

	eventSource = "reservations"
)

// EventPublisher is the outbound event sink. Publishing is best-effort from
// the admission flow's point of view.
type EventPublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// ReservationEvent is the payload downstream consumers receive for
// reservation lifecycle changes.
type ReservationEvent struct {
	ReservationID string    `json:"reservation_id"`
	RoomID        string    `json:"room_id"`
	OwnerID       string    `json:"owner_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"`
	Revision      int64     `json:"revision"`
}

func buildReservationEvent(eventType string, reservation *model.Reservation) (kafka.Message, error) {
	return kafka.NewMessage().
		WithKey(reservation.RoomID).
		WithEventType(eventType).
		WithSource(eventSource).
		WithValue(ReservationEvent{
			ReservationID: reservation.ID,
			RoomID:        reservation.RoomID,
			OwnerID:       reservation.OwnerID,
			StartTime:     reservation.StartTime,
			EndTime:       reservation.EndTime,
			Status:        reservation.Status,
			Revision:      reservation.Revision,
		}).
		Build()
}
