package api

import (
	"errors"
	"fmt"
	"net/http"

	"gymez/checkin-api/internal/domain"
	"gymez/checkin-api/internal/service"

	"github.com/gin-gonic/gin"
)

type RewardHandler struct {
	rewards service.RewardService
}

func NewRewardHandler(rewards service.RewardService) *RewardHandler {
	return &RewardHandler{rewards: rewards}
}

// Progress godoc
// @Summary Get this month's verified workouts and reward tier
// @Tags Rewards
// @Produce json
// @Security BearerAuth
// @Success 200 {object} gin.H "Monthly progress"
// @Router /rewards/progress [get]
func (h *RewardHandler) Progress(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	p, err := h.rewards.Progress(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		abortWithError(c, http.StatusInternalServerError, "Failed to load reward progress")
		return
	}

	msg := fmt.Sprintf("%d verified workouts this month.", p.VerifiedWorkouts)
	if p.NextTier != nil {
		msg = fmt.Sprintf("%d more workouts to reach %s.", p.WorkoutsToNextTier, p.NextTier.Label)
	}
	respond(c, http.StatusOK, true, msg, gin.H{"progress": p})
}

// Redeem godoc
// @Summary Redeem this month's discount code
// @Tags Rewards
// @Produce json
// @Security BearerAuth
// @Success 200 {object} gin.H "Redemption code and tier"
// @Failure 409 {object} gin.H "No reward tier reached yet"
// @Router /rewards/redeem [post]
func (h *RewardHandler) Redeem(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	r, err := h.rewards.Redeem(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrNoRewardTier) {
			respond(c, http.StatusConflict, false, "Keep going! You have not reached a reward tier this month.", nil)
			return
		}
		_ = c.Error(err)
		abortWithError(c, http.StatusInternalServerError, "Failed to redeem reward")
		return
	}
	respond(c, http.StatusOK, true,
		fmt.Sprintf("%s reward: %d%% off with code %s.", r.Tier, r.DiscountPercentage, r.Code),
		gin.H{"redemption": r})
}

// Tiers godoc
// @Summary List the reward tiers
// @Tags Rewards
// @Produce json
// @Success 200 {object} gin.H "tiers"
// @Router /rewards/tiers [get]
func (h *RewardHandler) Tiers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "tiers": domain.RewardTiers})
}
