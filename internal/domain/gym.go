package domain

import (
	"time"

	"gymez/checkin-api/internal/geo"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Gym is a check-in target. Coordinates are required: a gym that cannot be
// located cannot be checked into.
type Gym struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name" validate:"required"`
	Address   string             `bson:"address,omitempty" json:"address,omitempty"`
	Latitude  float64            `bson:"latitude" json:"latitude" validate:"latitude"`
	Longitude float64            `bson:"longitude" json:"longitude" validate:"longitude"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Location returns the gym's coordinates.
func (g *Gym) Location() geo.Point {
	return geo.Point{Latitude: g.Latitude, Longitude: g.Longitude}
}

// UserGym links a user to a gym they train at. At most one per user is primary.
type UserGym struct {
	UserID    primitive.ObjectID `bson:"userId" json:"userId" validate:"required"`
	GymID     primitive.ObjectID `bson:"gymId" json:"gymId" validate:"required"`
	IsPrimary bool               `bson:"isPrimary" json:"isPrimary"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
