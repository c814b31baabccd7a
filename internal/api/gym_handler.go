package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"gymez/checkin-api/internal/geo"
	"gymez/checkin-api/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type GymHandler struct {
	gyms         service.GymService
	nearbyRadius float64
}

func NewGymHandler(gyms service.GymService, nearbyRadius float64) *GymHandler {
	if nearbyRadius <= 0 {
		nearbyRadius = geo.DefaultNearbyRadius
	}
	return &GymHandler{gyms: gyms, nearbyRadius: nearbyRadius}
}

type CreateGymRequest struct {
	Name      string   `json:"name" binding:"required"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude" binding:"required,latitude"`
	Longitude *float64 `json:"longitude" binding:"required,longitude"`
}

type RegisterGymRequest struct {
	Primary bool `json:"primary"`
}

// Create godoc
// @Summary Add a gym
// @Description Admin only.
// @Tags Gyms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param gym body CreateGymRequest true "Gym details"
// @Success 201 {object} gin.H "gym"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 403 {object} gin.H "Forbidden"
// @Router /gyms [post]
func (h *GymHandler) Create(c *gin.Context) {
	var req CreateGymRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	gym, err := h.gyms.Create(c.Request.Context(), req.Name, req.Address,
		geo.Point{Latitude: *req.Latitude, Longitude: *req.Longitude})
	if err != nil {
		if errors.Is(err, service.ErrInvalidGymInput) {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		_ = c.Error(err)
		abortWithError(c, http.StatusInternalServerError, "Failed to create gym")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "gym": gym})
}

// Nearby godoc
// @Summary List gyms near a position, closest first
// @Tags Gyms
// @Produce json
// @Security BearerAuth
// @Param lat query number true "Latitude"
// @Param lon query number true "Longitude"
// @Param radius query number false "Search radius in meters"
// @Success 200 {object} gin.H "gyms"
// @Failure 400 {object} gin.H "Invalid coordinates"
// @Router /gyms/nearby [get]
func (h *GymHandler) Nearby(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil {
		abortWithError(c, http.StatusBadRequest, "lat and lon query parameters are required")
		return
	}
	radius := h.nearbyRadius
	if raw := c.Query("radius"); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil || r <= 0 {
			abortWithError(c, http.StatusBadRequest, "radius must be a positive number of meters")
			return
		}
		radius = r
	}

	gyms, err := h.gyms.Nearby(c.Request.Context(), geo.Point{Latitude: lat, Longitude: lon}, radius)
	if err != nil {
		if errors.Is(err, geo.ErrLocationUnavailable) {
			abortWithError(c, http.StatusBadRequest, "lat and lon must be valid coordinates")
			return
		}
		_ = c.Error(err)
		abortWithError(c, http.StatusInternalServerError, "Failed to search gyms")
		return
	}
	if gyms == nil {
		gyms = []service.GymDistance{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "gyms": gyms})
}

// Register godoc
// @Summary Register the current user at a gym
// @Tags Gyms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param gymId path string true "Gym ID"
// @Param body body RegisterGymRequest false "Set as primary gym"
// @Success 200 {object} gin.H "Registered"
// @Failure 400 {object} gin.H "Invalid gym ID"
// @Failure 404 {object} gin.H "Gym not found"
// @Router /gyms/{gymId}/register [post]
func (h *GymHandler) Register(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	gymID, err := primitive.ObjectIDFromHex(c.Param("gymId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid gym ID format")
		return
	}
	var req RegisterGymRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
			return
		}
	}

	if err := h.gyms.RegisterUserGym(c.Request.Context(), userID, gymID, req.Primary); err != nil {
		if errors.Is(err, service.ErrGymNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		_ = c.Error(err)
		abortWithError(c, http.StatusInternalServerError, "Failed to register gym")
		return
	}
	respond(c, http.StatusOK, true, "Gym registered.", gin.H{"gymId": gymID.Hex(), "primary": req.Primary})
}
