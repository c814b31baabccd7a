package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"gymez/checkin-api/internal/geo"
	"gymez/checkin-api/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CheckInHandler serves the attendance endpoints.
type CheckInHandler struct {
	checkIns     service.CheckInService
	radiusMeters float64
	maxFixAge    time.Duration
	now          func() time.Time
}

func NewCheckInHandler(checkIns service.CheckInService, radiusMeters float64, maxFixAge time.Duration) *CheckInHandler {
	if radiusMeters <= 0 {
		radiusMeters = geo.DefaultCheckInRadius
	}
	return &CheckInHandler{checkIns: checkIns, radiusMeters: radiusMeters, maxFixAge: maxFixAge, now: time.Now}
}

// CheckInRequest carries the device's position report. Coordinates are
// omitted when the device could not get a fix.
type CheckInRequest struct {
	GymID             string     `json:"gymId"`
	Latitude          *float64   `json:"latitude"`
	Longitude         *float64   `json:"longitude"`
	PermissionGranted bool       `json:"permissionGranted"`
	FixTime           *time.Time `json:"fixTime"`
}

// respond writes the attendance envelope.
func respond(c *gin.Context, status int, success bool, message string, extra gin.H) {
	body := gin.H{"success": success, "message": message}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}

// writeAttendanceError maps service errors to status codes and messages the
// app can show as-is.
func (h *CheckInHandler) writeAttendanceError(c *gin.Context, err error) {
	var outOfRange *service.OutOfRangeError
	switch {
	case errors.Is(err, geo.ErrPermissionDenied):
		respond(c, http.StatusUnprocessableEntity, false, "Location permission is required to check in. Please enable location services.", nil)
	case errors.Is(err, geo.ErrLocationUnavailable):
		respond(c, http.StatusUnprocessableEntity, false, "Could not get your location. Please enable location services and try again.", nil)
	case errors.As(err, &outOfRange):
		respond(c, http.StatusForbidden, false,
			fmt.Sprintf("You need to be at %s to check in. Get within %.0fm of the gym.", outOfRange.GymName, h.radiusMeters),
			gin.H{"distanceMeters": outOfRange.DistanceMeters})
	case errors.Is(err, service.ErrOutOfRange):
		respond(c, http.StatusForbidden, false, fmt.Sprintf("You need to be at the gym to check in. Get within %.0fm of the gym.", h.radiusMeters), nil)
	case errors.Is(err, service.ErrAlreadyCheckedInToday):
		respond(c, http.StatusOK, false, "You have already checked in today!", nil)
	case errors.Is(err, service.ErrNoGymFound):
		respond(c, http.StatusNotFound, false, "No gym found. Please select your gym in your profile first.", nil)
	case errors.Is(err, service.ErrGymNotFound):
		respond(c, http.StatusNotFound, false, "The selected gym does not exist.", nil)
	case errors.Is(err, service.ErrNoActiveSession):
		respond(c, http.StatusNotFound, false, "No active check-in found.", nil)
	case errors.Is(err, service.ErrExportUnavailable):
		respond(c, http.StatusServiceUnavailable, false, "History export is not available right now.", nil)
	default:
		_ = c.Error(err)
		respond(c, http.StatusInternalServerError, false, "Something went wrong. Please try again.", nil)
	}
}

// CheckIn godoc
// @Summary Check in at a gym
// @Tags CheckIns
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CheckInRequest true "Device position report"
// @Success 201 {object} service.CheckInResult "Checked in"
// @Success 200 {object} gin.H "Already checked in today"
// @Failure 403 {object} gin.H "Not within range of the gym"
// @Failure 404 {object} gin.H "No gym found"
// @Failure 422 {object} gin.H "Location unavailable or permission denied"
// @Failure 429 {object} gin.H "Too many attempts"
// @Router /checkins [post]
func (h *CheckInHandler) CheckIn(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	var gymID *primitive.ObjectID
	if req.GymID != "" {
		id, err := primitive.ObjectIDFromHex(req.GymID)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid gym ID format")
			return
		}
		gymID = &id
	}

	locator := geo.ReportedLocator{
		PermissionGranted: req.PermissionGranted,
		Latitude:          req.Latitude,
		Longitude:         req.Longitude,
		FixTime:           req.FixTime,
		MaxAge:            h.maxFixAge,
		Now:               h.now,
	}

	result, err := h.checkIns.CheckIn(c.Request.Context(), userID, gymID, locator)
	if err != nil {
		h.writeAttendanceError(c, err)
		return
	}
	respond(c, http.StatusCreated, true, result.Message, gin.H{"checkIn": result})
}

// CheckOut godoc
// @Summary Check out of the active session
// @Tags CheckIns
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.CheckOutResult "Checked out"
// @Failure 404 {object} gin.H "No active check-in"
// @Failure 429 {object} gin.H "Too many attempts"
// @Router /checkins/checkout [post]
func (h *CheckInHandler) CheckOut(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	result, err := h.checkIns.CheckOut(c.Request.Context(), userID)
	if err != nil {
		h.writeAttendanceError(c, err)
		return
	}
	respond(c, http.StatusOK, true, result.Message, gin.H{
		"duration":   result.DurationMinutes,
		"isVerified": result.IsVerified,
		"checkInId":  result.CheckInID,
	})
}

// Active godoc
// @Summary Get the open check-in, if any
// @Tags CheckIns
// @Produce json
// @Security BearerAuth
// @Success 200 {object} gin.H "active flag and the open check-in"
// @Router /checkins/active [get]
func (h *CheckInHandler) Active(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	checkIn, err := h.checkIns.ActiveCheckIn(c.Request.Context(), userID)
	if errors.Is(err, service.ErrNoActiveSession) {
		respond(c, http.StatusOK, true, "No active check-in.", gin.H{"active": false, "checkIn": nil})
		return
	}
	if err != nil {
		h.writeAttendanceError(c, err)
		return
	}
	respond(c, http.StatusOK, true, fmt.Sprintf("Checked in at %s.", checkIn.GymName), gin.H{"active": true, "checkIn": checkIn})
}

// History godoc
// @Summary List past check-ins, newest first
// @Tags CheckIns
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum number of entries (default 30, max 100)"
// @Success 200 {object} gin.H "checkIns"
// @Failure 400 {object} gin.H "Invalid limit"
// @Router /checkins/history [get]
func (h *CheckInHandler) History(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			abortWithError(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	items, err := h.checkIns.History(c.Request.Context(), userID, limit)
	if err != nil {
		h.writeAttendanceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "checkIns": items})
}

// Export godoc
// @Summary Export check-in history
// @Description Uploads the history as JSON and returns a short-lived download link.
// @Tags CheckIns
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.ExportResult
// @Failure 429 {object} gin.H "Too many attempts"
// @Failure 503 {object} gin.H "Export not configured"
// @Router /checkins/export [post]
func (h *CheckInHandler) Export(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	result, err := h.checkIns.ExportHistory(c.Request.Context(), userID)
	if err != nil {
		h.writeAttendanceError(c, err)
		return
	}
	respond(c, http.StatusOK, true, "Your history export is ready.", gin.H{"export": result})
}
