package model

import "time"

// Room metadata is owned by the directory service; this service only reads it.
type Room struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty"`
	Name      string    `json:"name" bson:"name"`
	City      string    `json:"city" bson:"city"`
	Country   string    `json:"country" bson:"country"`
	Capacity  int       `json:"capacity" bson:"capacity"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
