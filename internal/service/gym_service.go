package service

import (
	"context"
	"errors"
	"strings"

	"gymez/checkin-api/internal/domain"
	"gymez/checkin-api/internal/geo"
	"gymez/checkin-api/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrGymNotFound     = errors.New("gym not found")
	ErrInvalidGymInput = errors.New("gym requires a name and valid coordinates")
)

type GymService interface {
	Create(ctx context.Context, name, address string, location geo.Point) (*domain.Gym, error)
	Nearby(ctx context.Context, location geo.Point, radiusMeters float64) ([]GymDistance, error)
	RegisterUserGym(ctx context.Context, userID, gymID primitive.ObjectID, primary bool) error
}

type gymService struct {
	gyms     repository.GymRepository
	userGyms repository.UserGymRepository
	log      *zap.Logger
}

func NewGymService(gyms repository.GymRepository, userGyms repository.UserGymRepository, log *zap.Logger) GymService {
	return &gymService{gyms: gyms, userGyms: userGyms, log: log}
}

func (s *gymService) Create(ctx context.Context, name, address string, location geo.Point) (*domain.Gym, error) {
	name = strings.TrimSpace(name)
	if name == "" || !location.Valid() {
		return nil, ErrInvalidGymInput
	}
	gym := &domain.Gym{
		Name:      name,
		Address:   strings.TrimSpace(address),
		Latitude:  location.Latitude,
		Longitude: location.Longitude,
	}
	id, err := s.gyms.Create(ctx, gym)
	if err != nil {
		return nil, err
	}
	gym.ID = id
	s.log.Info("gym created", zap.String("gymId", id.Hex()), zap.String("name", name))
	return gym, nil
}

// Nearby lists gyms within radiusMeters of location, closest first.
func (s *gymService) Nearby(ctx context.Context, location geo.Point, radiusMeters float64) ([]GymDistance, error) {
	if !location.Valid() {
		return nil, geo.ErrLocationUnavailable
	}
	return nearbyGyms(ctx, s.gyms, location, radiusMeters)
}

// RegisterUserGym links the user to a gym. A primary registration replaces
// the previous primary one.
func (s *gymService) RegisterUserGym(ctx context.Context, userID, gymID primitive.ObjectID, primary bool) error {
	if _, err := s.gyms.GetByID(ctx, gymID); err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidRecord) {
			return ErrGymNotFound
		}
		return err
	}
	if primary {
		if err := s.userGyms.ClearPrimary(ctx, userID); err != nil {
			return err
		}
	}
	if err := s.userGyms.Upsert(ctx, &domain.UserGym{UserID: userID, GymID: gymID, IsPrimary: primary}); err != nil {
		s.log.Error("failed to register gym", zap.String("userId", userID.Hex()), zap.String("gymId", gymID.Hex()), zap.Error(err))
		return err
	}
	return nil
}
