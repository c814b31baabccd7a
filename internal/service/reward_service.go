package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"gymez/checkin-api/internal/domain"
	"gymez/checkin-api/internal/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var ErrNoRewardTier = errors.New("no reward tier reached this month")

// RewardProgress is the user's standing for the current month.
type RewardProgress struct {
	Month              int                `json:"currentMonth"`
	Year               int                `json:"currentYear"`
	VerifiedWorkouts   int                `json:"verifiedWorkouts"`
	CurrentTier        *domain.RewardTier `json:"currentTier"`
	NextTier           *domain.RewardTier `json:"nextTier"`
	WorkoutsToNextTier int                `json:"workoutsToNextTier"`
	DiscountPercentage int                `json:"discountPercentage"`
	RedemptionCode     string             `json:"redemptionCode,omitempty"`
}

// Redemption is a discount code issued for a month.
type Redemption struct {
	Code               string    `json:"code"`
	Tier               string    `json:"tier"`
	DiscountPercentage int       `json:"discountPercentage"`
	Month              int       `json:"month"`
	Year               int       `json:"year"`
	RedeemedAt         time.Time `json:"redeemedAt"`
}

type RewardService interface {
	RecordVerifiedWorkout(ctx context.Context, userID primitive.ObjectID) (*domain.MonthlyReward, error)
	Progress(ctx context.Context, userID primitive.ObjectID) (*RewardProgress, error)
	Redeem(ctx context.Context, userID primitive.ObjectID) (*Redemption, error)
}

type rewardService struct {
	rewards repository.MonthlyRewardRepository
	loc     *time.Location
	now     func() time.Time
	log     *zap.Logger
}

// NewRewardService creates the tier evaluator. loc decides which month a
// workout belongs to; now may be nil to use time.Now.
func NewRewardService(rewards repository.MonthlyRewardRepository, loc *time.Location, now func() time.Time, log *zap.Logger) RewardService {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &rewardService{rewards: rewards, loc: loc, now: now, log: log}
}

// RecordVerifiedWorkout increments the current month's counter and stores
// the tier that results.
func (s *rewardService) RecordVerifiedWorkout(ctx context.Context, userID primitive.ObjectID) (*domain.MonthlyReward, error) {
	period := domain.PeriodOf(s.now(), s.loc)
	rec, err := s.rewards.Increment(ctx, userID, period)
	if err != nil {
		return nil, err
	}

	var label *string
	discount := 0
	if tier := domain.TierFor(rec.VerifiedWorkouts); tier != nil {
		l := tier.Label
		label = &l
		discount = tier.DiscountPercent
	}
	if !sameTier(rec.RewardTier, label) || rec.DiscountPercentage != discount {
		if err := s.rewards.SetTier(ctx, rec.ID, label, discount); err != nil {
			return nil, err
		}
		if label != nil {
			s.log.Info("reward tier reached",
				zap.String("userId", userID.Hex()),
				zap.String("tier", *label),
				zap.Int("verifiedWorkouts", rec.VerifiedWorkouts))
		}
		rec.RewardTier = label
		rec.DiscountPercentage = discount
	}
	return rec, nil
}

func sameTier(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Progress derives the month's standing from the stored counter.
func (s *rewardService) Progress(ctx context.Context, userID primitive.ObjectID) (*RewardProgress, error) {
	period := domain.PeriodOf(s.now(), s.loc)
	verified := 0
	code := ""
	rec, err := s.rewards.Get(ctx, userID, period)
	switch {
	case err == nil:
		verified = rec.VerifiedWorkouts
		code = rec.RedemptionCode
	case errors.Is(err, repository.ErrNotFound):
	default:
		return nil, err
	}

	p := progressFor(verified)
	p.Month, p.Year = period.Month, period.Year
	p.RedemptionCode = code
	return p, nil
}

func progressFor(verified int) *RewardProgress {
	p := &RewardProgress{
		VerifiedWorkouts: verified,
		CurrentTier:      domain.TierFor(verified),
		NextTier:         domain.NextTier(verified),
	}
	if p.NextTier != nil {
		p.WorkoutsToNextTier = p.NextTier.Threshold - verified
	}
	if p.CurrentTier != nil {
		p.DiscountPercentage = p.CurrentTier.DiscountPercent
	}
	return p
}

// Redeem issues the month's discount code. Repeated calls return the same
// code; the discount it carries is the month's current tier.
func (s *rewardService) Redeem(ctx context.Context, userID primitive.ObjectID) (*Redemption, error) {
	period := domain.PeriodOf(s.now(), s.loc)
	rec, err := s.rewards.Get(ctx, userID, period)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoRewardTier
	}
	if err != nil {
		return nil, err
	}
	tier := domain.TierFor(rec.VerifiedWorkouts)
	if tier == nil {
		return nil, ErrNoRewardTier
	}

	if rec.RedemptionCode == "" {
		rec, err = s.rewards.SetRedemption(ctx, rec.ID, redemptionCode(), s.now().UTC())
		if err != nil {
			return nil, err
		}
		s.log.Info("reward redeemed", zap.String("userId", userID.Hex()), zap.String("tier", tier.Label))
	}

	r := &Redemption{
		Code:               rec.RedemptionCode,
		Tier:               tier.Label,
		DiscountPercentage: tier.DiscountPercent,
		Month:              period.Month,
		Year:               period.Year,
	}
	if rec.RedeemedAt != nil {
		r.RedeemedAt = *rec.RedeemedAt
	}
	return r, nil
}

// redemptionCode looks like "GYMEZ-3F2A9C1B".
func redemptionCode() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "GYMEZ-" + strings.ToUpper(id[:8])
}
