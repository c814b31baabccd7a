package service

import (
	"context"
	"errors"
	"sort"

	"gymez/checkin-api/internal/domain"
	"gymez/checkin-api/internal/geo"
	"gymez/checkin-api/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GymRequest is what a strategy may use to pick the gym for a check-in.
type GymRequest struct {
	UserID   primitive.ObjectID
	GymID    *primitive.ObjectID // explicitly chosen by the user, optional
	Position geo.Point
}

// GymStrategy resolves a gym for a check-in. It returns (nil, nil) when it
// has no answer, so the next strategy can be tried.
type GymStrategy interface {
	Resolve(ctx context.Context, req GymRequest) (*domain.Gym, error)
}

// GymResolver tries its strategies in order and returns the first gym found.
type GymResolver struct {
	strategies []GymStrategy
}

func NewGymResolver(strategies ...GymStrategy) *GymResolver {
	return &GymResolver{strategies: strategies}
}

// DefaultGymResolver resolves the explicit gym, then the primary
// registration, then the profile gym, then the nearest gym within nearbyRadius.
func DefaultGymResolver(
	gyms repository.GymRepository,
	userGyms repository.UserGymRepository,
	users repository.UserRepository,
	nearbyRadius float64,
) *GymResolver {
	return NewGymResolver(
		ExplicitGym{Gyms: gyms},
		PrimaryGym{UserGyms: userGyms, Gyms: gyms},
		ProfileGym{Users: users, Gyms: gyms},
		NearestGym{Gyms: gyms, Radius: nearbyRadius},
	)
}

// Resolve returns the first gym any strategy yields, or ErrNoGymFound.
func (r *GymResolver) Resolve(ctx context.Context, req GymRequest) (*domain.Gym, error) {
	for _, s := range r.strategies {
		gym, err := s.Resolve(ctx, req)
		if err != nil {
			return nil, err
		}
		if gym != nil {
			return gym, nil
		}
	}
	return nil, ErrNoGymFound
}

// lookupGym treats missing and unusable gym records as "no answer".
func lookupGym(ctx context.Context, gyms repository.GymRepository, id primitive.ObjectID) (*domain.Gym, error) {
	gym, err := gyms.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidRecord) {
		return nil, nil
	}
	return gym, err
}

// ExplicitGym uses the gym id sent with the request. An id that matches no
// gym fails with ErrGymNotFound rather than falling back to another gym.
type ExplicitGym struct {
	Gyms repository.GymRepository
}

func (s ExplicitGym) Resolve(ctx context.Context, req GymRequest) (*domain.Gym, error) {
	if req.GymID == nil || *req.GymID == primitive.NilObjectID {
		return nil, nil
	}
	gym, err := lookupGym(ctx, s.Gyms, *req.GymID)
	if err == nil && gym == nil {
		return nil, ErrGymNotFound
	}
	return gym, err
}

// PrimaryGym uses the user's primary gym registration.
type PrimaryGym struct {
	UserGyms repository.UserGymRepository
	Gyms     repository.GymRepository
}

func (s PrimaryGym) Resolve(ctx context.Context, req GymRequest) (*domain.Gym, error) {
	link, err := s.UserGyms.GetPrimary(ctx, req.UserID)
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidRecord) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return lookupGym(ctx, s.Gyms, link.GymID)
}

// ProfileGym uses the gym stored on the user's profile.
type ProfileGym struct {
	Users repository.UserRepository
	Gyms  repository.GymRepository
}

func (s ProfileGym) Resolve(ctx context.Context, req GymRequest) (*domain.Gym, error) {
	user, err := s.Users.GetByID(ctx, req.UserID)
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidRecord) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if user.GymID == nil {
		return nil, nil
	}
	return lookupGym(ctx, s.Gyms, *user.GymID)
}

// NearestGym picks the closest gym within Radius of the user's position.
type NearestGym struct {
	Gyms   repository.GymRepository
	Radius float64
}

func (s NearestGym) Resolve(ctx context.Context, req GymRequest) (*domain.Gym, error) {
	nearby, err := nearbyGyms(ctx, s.Gyms, req.Position, s.Radius)
	if err != nil || len(nearby) == 0 {
		return nil, err
	}
	return &nearby[0].Gym, nil
}

// GymDistance is a gym with its distance from a reference point.
type GymDistance struct {
	domain.Gym
	DistanceMeters float64 `json:"distanceMeters"`
}

// nearbyGyms returns gyms within radius of p, closest first.
func nearbyGyms(ctx context.Context, gyms repository.GymRepository, p geo.Point, radius float64) ([]GymDistance, error) {
	if radius <= 0 {
		radius = geo.DefaultNearbyRadius
	}
	candidates, err := gyms.FindInBox(ctx, geo.BoundingBox(p, radius))
	if err != nil {
		return nil, err
	}
	var out []GymDistance
	for _, g := range candidates {
		d := geo.Distance(p, g.Location())
		if d <= radius {
			out = append(out, GymDistance{Gym: g, DistanceMeters: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceMeters < out[j].DistanceMeters })
	return out, nil
}
