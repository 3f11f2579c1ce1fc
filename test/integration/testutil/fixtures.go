package testutil

import "time"

// ReservationRequest mirrors the create endpoint's body.
type ReservationRequest struct {
	RoomID    string    `json:"room_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type ReservationBuilder struct {
	req ReservationRequest
}

func NewReservationBuilder(roomID string) *ReservationBuilder {
	start := time.Date(2025, 1, 1, 15, 0, 0, 0, time.UTC)
	return &ReservationBuilder{
		req: ReservationRequest{
			RoomID:    roomID,
			StartTime: start,
			EndTime:   start.Add(44 * time.Hour),
		},
	}
}

func (b *ReservationBuilder) WithInterval(start, end time.Time) *ReservationBuilder {
	b.req.StartTime = start
	b.req.EndTime = end
	return b
}

func (b *ReservationBuilder) Build() ReservationRequest {
	return b.req
}

func OwnerHeaders(ownerID string) map[string]string {
	return map[string]string{"X-Owner-ID": ownerID}
}
