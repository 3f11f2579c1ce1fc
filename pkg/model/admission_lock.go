package model

import "time"

// AdmissionLock is a store-level advisory lock serializing admission attempts
// for a single room. The _id doubles as the lock key; a duplicate key error
// on insert means another admission for the room is in flight.
type AdmissionLock struct {
	ID        string    `bson:"_id" json:"id"`
	RoomID    string    `bson:"room_id" json:"room_id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
