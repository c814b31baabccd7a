package repository

import (
	"context"
	"time"

	"gymez/checkin-api/internal/domain"
	"gymez/checkin-api/internal/geo"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound      = RepositoryError("not found")
	ErrUpdateFailed  = RepositoryError("update failed")
	ErrDuplicate     = RepositoryError("duplicate record")
	ErrInvalidRecord = RepositoryError("invalid record")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

// GymRepository reads and writes gym reference data.
type GymRepository interface {
	Create(ctx context.Context, gym *domain.Gym) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Gym, error)
	// FindInBox returns gyms whose coordinates fall inside box.
	FindInBox(ctx context.Context, box geo.Box) ([]domain.Gym, error)
}

// UserGymRepository manages which gyms a user is registered at.
type UserGymRepository interface {
	GetPrimary(ctx context.Context, userID primitive.ObjectID) (*domain.UserGym, error)
	ClearPrimary(ctx context.Context, userID primitive.ObjectID) error
	Upsert(ctx context.Context, link *domain.UserGym) error
}

// CloseCheckIn describes how an open check-in is closed.
type CloseCheckIn struct {
	CheckOutTime    time.Time
	DurationMinutes int
	IsVerified      bool
	Reason          domain.CloseReason
}

// CheckInRepository stores gym visits.
type CheckInRepository interface {
	// Create returns ErrDuplicate if the user already has a check-in on
	// checkIn.CheckInDay.
	Create(ctx context.Context, checkIn *domain.CheckIn) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id, userID primitive.ObjectID) (*domain.CheckIn, error)
	// ExistsSince reports whether the user has a check-in at or after since.
	ExistsSince(ctx context.Context, userID primitive.ObjectID, since time.Time) (bool, error)
	// Close closes the check-in only if it is still open; otherwise ErrNotFound.
	Close(ctx context.Context, id, userID primitive.ObjectID, c CloseCheckIn) error
	ListByUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]domain.CheckIn, error)
	FindOpenBefore(ctx context.Context, cutoff time.Time) ([]domain.CheckIn, error)
}

// MonthlyRewardRepository keeps one counter per (user, month, year).
type MonthlyRewardRepository interface {
	Get(ctx context.Context, userID primitive.ObjectID, period domain.Period) (*domain.MonthlyReward, error)
	// Increment adds one verified workout, creating the record if needed,
	// and returns the record after the increment.
	Increment(ctx context.Context, userID primitive.ObjectID, period domain.Period) (*domain.MonthlyReward, error)
	SetTier(ctx context.Context, id primitive.ObjectID, tier *string, discountPercentage int) error
	// SetRedemption stores code unless one is already present and returns
	// the record as stored.
	SetRedemption(ctx context.Context, id primitive.ObjectID, code string, at time.Time) (*domain.MonthlyReward, error)
}
