package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RewardTier is a discount unlocked by a monthly count of verified workouts.
type RewardTier struct {
	Threshold       int    `json:"workouts"`
	DiscountPercent int    `json:"discount"`
	Label           string `json:"label"`
}

// RewardTiers is ordered by strictly increasing Threshold.
var RewardTiers = []RewardTier{
	{Threshold: 8, DiscountPercent: 3, Label: "Bronze"},
	{Threshold: 12, DiscountPercent: 5, Label: "Silver"},
	{Threshold: 16, DiscountPercent: 8, Label: "Gold"},
	{Threshold: 20, DiscountPercent: 10, Label: "Platinum"},
	{Threshold: 24, DiscountPercent: 12, Label: "Diamond"},
}

// ValidateTiers checks that thresholds are positive and strictly increasing.
func ValidateTiers(tiers []RewardTier) error {
	prev := 0
	for i, t := range tiers {
		if t.Threshold <= prev {
			return fmt.Errorf("tier %d (%s): threshold %d must be greater than %d", i, t.Label, t.Threshold, prev)
		}
		prev = t.Threshold
	}
	return nil
}

// TierFor returns the highest tier whose threshold does not exceed
// workouts, or nil when workouts is below every threshold.
func TierFor(workouts int) *RewardTier {
	var current *RewardTier
	for i := range RewardTiers {
		if workouts >= RewardTiers[i].Threshold {
			current = &RewardTiers[i]
		}
	}
	return current
}

// NextTier returns the lowest tier above workouts, or nil at the top tier.
func NextTier(workouts int) *RewardTier {
	for i := range RewardTiers {
		if RewardTiers[i].Threshold > workouts {
			return &RewardTiers[i]
		}
	}
	return nil
}

// MonthlyReward is the verified-workout counter for one user and month.
type MonthlyReward struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID             primitive.ObjectID `bson:"userId" json:"userId" validate:"required"`
	Month              int                `bson:"month" json:"month" validate:"min=1,max=12"`
	Year               int                `bson:"year" json:"year" validate:"min=2000"`
	VerifiedWorkouts   int                `bson:"verifiedWorkouts" json:"verifiedWorkouts" validate:"min=0"`
	RewardTier         *string            `bson:"rewardTier" json:"rewardTier"`
	DiscountPercentage int                `bson:"discountPercentage" json:"discountPercentage" validate:"min=0,max=100"`
	RedemptionCode     string             `bson:"redemptionCode,omitempty" json:"redemptionCode,omitempty"`
	RedeemedAt         *time.Time         `bson:"redeemedAt,omitempty" json:"redeemedAt,omitempty"`
	UpdatedAt          time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Period identifies a reward month.
type Period struct {
	Month int
	Year  int
}

// PeriodOf returns the reward month containing t in loc.
func PeriodOf(t time.Time, loc *time.Location) Period {
	if loc != nil {
		t = t.In(loc)
	}
	return Period{Month: int(t.Month()), Year: t.Year()}
}
