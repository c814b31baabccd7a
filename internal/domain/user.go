package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between user roles
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// User represents a GYMEZ account.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name" validate:"required"`
	Email        string             `bson:"email" json:"email" validate:"required,email"`
	PasswordHash string             `bson:"passwordHash" json:"-"`
	Role         Role               `bson:"role" json:"role" validate:"required,oneof=member admin"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`

	// Gym picked on the profile screen. Used for check-in when the user
	// has no primary gym registration.
	GymID *primitive.ObjectID `bson:"gymId,omitempty" json:"gymId,omitempty"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
