package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gymez/checkin-api/internal/domain"
	"gymez/checkin-api/internal/geo"
	"gymez/checkin-api/internal/repository"
	"gymez/checkin-api/internal/session"
	"gymez/checkin-api/internal/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// --- Error Definitions ---
var (
	ErrAlreadyCheckedInToday = errors.New("already checked in today")
	ErrNoGymFound            = errors.New("no gym found nearby")
	ErrOutOfRange            = errors.New("not within check-in radius of the gym")
	ErrNoActiveSession       = errors.New("no active check-in")
	ErrExportUnavailable     = errors.New("history export is not configured")
)

// OutOfRangeError names the gym the user was too far from.
type OutOfRangeError struct {
	GymName        string
	DistanceMeters float64
	RadiusMeters   float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s: %s is %.0fm away, limit %.0fm", ErrOutOfRange, e.GymName, e.DistanceMeters, e.RadiusMeters)
}

func (e *OutOfRangeError) Unwrap() error { return ErrOutOfRange }

const (
	maxHistoryLimit = 100
	exportLimit     = 1000
)

// CheckInResult is returned by a successful check-in.
type CheckInResult struct {
	CheckInID   primitive.ObjectID `json:"checkInId"`
	GymID       primitive.ObjectID `json:"gymId"`
	GymName     string             `json:"gymName"`
	CheckInTime time.Time          `json:"checkInTime"`
	Message     string             `json:"message"`
}

// CheckOutResult is returned by a successful check-out.
type CheckOutResult struct {
	CheckInID       primitive.ObjectID `json:"checkInId"`
	DurationMinutes int                `json:"duration"`
	IsVerified      bool               `json:"isVerified"`
	Message         string             `json:"message"`
}

// ExportResult points at an uploaded history export.
type ExportResult struct {
	URL       string    `json:"url"`
	ObjectKey string    `json:"objectKey"`
	Count     int       `json:"count"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CheckInOptions holds the attendance rules. Zero values take defaults.
type CheckInOptions struct {
	RadiusMeters        float64
	MinVerifiedMinutes  int
	LocateTimeout       time.Duration
	Location            *time.Location // decides where "today" starts
	HistoryDefaultLimit int
	Now                 func() time.Time
}

func (o *CheckInOptions) applyDefaults() {
	if o.RadiusMeters <= 0 {
		o.RadiusMeters = geo.DefaultCheckInRadius
	}
	if o.MinVerifiedMinutes <= 0 {
		o.MinVerifiedMinutes = domain.MinVerifiedMinutes
	}
	if o.LocateTimeout <= 0 {
		o.LocateTimeout = geo.LocateTimeout
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.HistoryDefaultLimit <= 0 {
		o.HistoryDefaultLimit = 30
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

type CheckInService interface {
	CheckIn(ctx context.Context, userID primitive.ObjectID, gymID *primitive.ObjectID, locator geo.Locator) (*CheckInResult, error)
	CheckOut(ctx context.Context, userID primitive.ObjectID) (*CheckOutResult, error)
	ActiveCheckIn(ctx context.Context, userID primitive.ObjectID) (*domain.CheckIn, error)
	HasActiveCheckIn(ctx context.Context, userID primitive.ObjectID) (bool, error)
	History(ctx context.Context, userID primitive.ObjectID, limit int) ([]domain.CheckIn, error)
	ExportHistory(ctx context.Context, userID primitive.ObjectID) (*ExportResult, error)
}

type checkInService struct {
	checkIns repository.CheckInRepository
	resolver *GymResolver
	sessions *session.Tracker
	rewards  RewardService
	files    storage.FileStorage // nil disables export
	opts     CheckInOptions
	log      *zap.Logger

	inflight singleflight.Group // concurrent check-ins per user
}

// NewCheckInService creates the session tracker. files may be nil.
func NewCheckInService(
	checkIns repository.CheckInRepository,
	resolver *GymResolver,
	sessions *session.Tracker,
	rewards RewardService,
	files storage.FileStorage,
	opts CheckInOptions,
	log *zap.Logger,
) CheckInService {
	opts.applyDefaults()
	return &checkInService{
		checkIns: checkIns,
		resolver: resolver,
		sessions: sessions,
		rewards:  rewards,
		files:    files,
		opts:     opts,
		log:      log,
	}
}

// startOfDay returns local midnight of the day containing t.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// CheckIn opens a session at the resolved gym if the user has not checked
// in today and is within the check-in radius. Concurrent calls for one user
// share a single attempt.
func (s *checkInService) CheckIn(ctx context.Context, userID primitive.ObjectID, gymID *primitive.ObjectID, locator geo.Locator) (*CheckInResult, error) {
	v, err, _ := s.inflight.Do(userID.Hex(), func() (interface{}, error) {
		return s.checkIn(ctx, userID, gymID, locator)
	})
	if err != nil {
		return nil, err
	}
	return v.(*CheckInResult), nil
}

func (s *checkInService) checkIn(ctx context.Context, userID primitive.ObjectID, gymID *primitive.ObjectID, locator geo.Locator) (*CheckInResult, error) {
	now := s.opts.Now()

	already, err := s.checkIns.ExistsSince(ctx, userID, startOfDay(now, s.opts.Location))
	if err != nil {
		return nil, fmt.Errorf("checking today's check-ins: %w", err)
	}
	if already {
		return nil, ErrAlreadyCheckedInToday
	}

	position, err := geo.CurrentLocation(ctx, locator, s.opts.LocateTimeout)
	if err != nil {
		return nil, err
	}

	gym, err := s.resolver.Resolve(ctx, GymRequest{UserID: userID, GymID: gymID, Position: position})
	if err != nil {
		if errors.Is(err, ErrNoGymFound) {
			return nil, err
		}
		return nil, fmt.Errorf("resolving gym: %w", err)
	}

	distance := geo.Distance(position, gym.Location())
	if distance > s.opts.RadiusMeters {
		s.log.Info("check-in out of range",
			zap.String("userId", userID.Hex()),
			zap.String("gymId", gym.ID.Hex()),
			zap.Float64("distanceMeters", distance))
		return nil, &OutOfRangeError{GymName: gym.Name, DistanceMeters: distance, RadiusMeters: s.opts.RadiusMeters}
	}

	s.expireLeftoverSession(ctx, userID, now)

	checkIn := &domain.CheckIn{
		UserID:             userID,
		GymID:              gym.ID,
		GymName:            gym.Name,
		CheckInTime:        now.UTC(),
		CheckInDay:         domain.DayOf(now, s.opts.Location),
		Latitude:           position.Latitude,
		Longitude:          position.Longitude,
		VerificationMethod: domain.VerificationGPS,
	}
	id, err := s.checkIns.Create(ctx, checkIn)
	if errors.Is(err, repository.ErrDuplicate) {
		// another server won the race for today
		return nil, ErrAlreadyCheckedInToday
	}
	if err != nil {
		return nil, fmt.Errorf("creating check-in: %w", err)
	}

	// The record is the source of truth; a cache failure only costs the
	// fast path, checkout still reconciles against storage.
	if err := s.sessions.Set(ctx, userID, domain.ActiveSession{CheckInID: id, GymName: gym.Name}); err != nil {
		s.log.Warn("failed to store active session", zap.String("userId", userID.Hex()), zap.Error(err))
	}

	s.log.Info("checked in",
		zap.String("userId", userID.Hex()),
		zap.String("checkInId", id.Hex()),
		zap.String("gym", gym.Name),
		zap.Float64("distanceMeters", distance))

	return &CheckInResult{
		CheckInID:   id,
		GymID:       gym.ID,
		GymName:     gym.Name,
		CheckInTime: checkIn.CheckInTime,
		Message:     fmt.Sprintf("Checked in at %s! Remember to check out when you leave.", gym.Name),
	}, nil
}

// expireLeftoverSession closes a session still open from an earlier day so
// the user never has two open sessions.
func (s *checkInService) expireLeftoverSession(ctx context.Context, userID primitive.ObjectID, now time.Time) {
	prev, err := s.openSession(ctx, userID)
	if err != nil || !prev.CheckInTime.Before(startOfDay(now, s.opts.Location)) {
		return
	}
	err = s.checkIns.Close(ctx, prev.ID, userID, repository.CloseCheckIn{
		CheckOutTime:    now.UTC(),
		DurationMinutes: domain.SessionMinutes(prev.CheckInTime, now),
		IsVerified:      false,
		Reason:          domain.ClosedByExpiry,
	})
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.log.Warn("failed to expire leftover session", zap.String("checkInId", prev.ID.Hex()), zap.Error(err))
	}
}

// openSession returns the open check-in behind the user's session. A
// cached pointer to a missing or closed record is checked once against
// the store before the session is given up.
func (s *checkInService) openSession(ctx context.Context, userID primitive.ObjectID) (*domain.CheckIn, error) {
	active, ok, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reading active session: %w", err)
	}
	for reloaded := false; ; reloaded = true {
		if !ok {
			return nil, ErrNoActiveSession
		}
		checkIn, err := s.checkIns.GetByID(ctx, active.CheckInID, userID)
		if err == nil && checkIn.IsOpen() {
			return checkIn, nil
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) && !errors.Is(err, repository.ErrInvalidRecord) {
			return nil, fmt.Errorf("loading check-in: %w", err)
		}

		stale := active.CheckInID
		if !reloaded {
			active, ok, err = s.sessions.Reload(ctx, userID)
			if err != nil {
				return nil, fmt.Errorf("reading active session: %w", err)
			}
			if ok && active.CheckInID != stale {
				continue
			}
		}
		s.releaseSession(ctx, userID, stale)
		return nil, ErrNoActiveSession
	}
}

// CheckOut closes the user's active session and credits a verified
// workout when it lasted long enough.
func (s *checkInService) CheckOut(ctx context.Context, userID primitive.ObjectID) (*CheckOutResult, error) {
	checkIn, err := s.openSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.opts.Now()
	minutes := domain.SessionMinutes(checkIn.CheckInTime, now)
	verified := domain.IsVerifiedDuration(minutes, s.opts.MinVerifiedMinutes)

	err = s.checkIns.Close(ctx, checkIn.ID, userID, repository.CloseCheckIn{
		CheckOutTime:    now.UTC(),
		DurationMinutes: minutes,
		IsVerified:      verified,
		Reason:          domain.ClosedByCheckOut,
	})
	if errors.Is(err, repository.ErrNotFound) {
		// closed concurrently, e.g. by the sweeper
		s.releaseSession(ctx, userID, checkIn.ID)
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, fmt.Errorf("closing check-in: %w", err)
	}

	s.releaseSession(ctx, userID, checkIn.ID)

	if verified {
		if _, err := s.rewards.RecordVerifiedWorkout(ctx, userID); err != nil {
			// The visit is closed and stored as verified; only the counter
			// update failed.
			s.log.Error("failed to record verified workout", zap.String("userId", userID.Hex()), zap.Error(err))
		}
	}

	s.log.Info("checked out",
		zap.String("userId", userID.Hex()),
		zap.String("checkInId", checkIn.ID.Hex()),
		zap.Int("durationMinutes", minutes),
		zap.Bool("verified", verified))

	msg := fmt.Sprintf("Great workout! %d minutes logged. This counts toward your monthly rewards!", minutes)
	if !verified {
		msg = fmt.Sprintf("Checked out after %d minutes. Workouts need to be %d+ minutes to count toward rewards.", minutes, s.opts.MinVerifiedMinutes)
	}
	return &CheckOutResult{
		CheckInID:       checkIn.ID,
		DurationMinutes: minutes,
		IsVerified:      verified,
		Message:         msg,
	}, nil
}

func (s *checkInService) releaseSession(ctx context.Context, userID, checkInID primitive.ObjectID) {
	if err := s.sessions.Release(ctx, userID, checkInID); err != nil {
		s.log.Warn("failed to clear active session", zap.String("userId", userID.Hex()), zap.Error(err))
	}
}

// ActiveCheckIn returns the open check-in behind the user's active session,
// clearing the session if the record is gone or already closed.
func (s *checkInService) ActiveCheckIn(ctx context.Context, userID primitive.ObjectID) (*domain.CheckIn, error) {
	return s.openSession(ctx, userID)
}

// HasActiveCheckIn is an advisory read of the session cache.
func (s *checkInService) HasActiveCheckIn(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	_, ok, err := s.sessions.Get(ctx, userID)
	return ok, err
}

// History returns the user's check-ins, newest first.
func (s *checkInService) History(ctx context.Context, userID primitive.ObjectID, limit int) ([]domain.CheckIn, error) {
	if limit <= 0 {
		limit = s.opts.HistoryDefaultLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	items, err := s.checkIns.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.CheckIn{}
	}
	return items, nil
}

// ExportHistory uploads the user's history as JSON and returns a
// short-lived download link.
func (s *checkInService) ExportHistory(ctx context.Context, userID primitive.ObjectID) (*ExportResult, error) {
	if s.files == nil {
		return nil, ErrExportUnavailable
	}
	items, err := s.checkIns.ListByUser(ctx, userID, exportLimit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.CheckIn{}
	}

	now := s.opts.Now().UTC()
	body, err := json.Marshal(struct {
		UserID     string           `json:"userId"`
		ExportedAt time.Time        `json:"exportedAt"`
		CheckIns   []domain.CheckIn `json:"checkIns"`
	}{userID.Hex(), now, items})
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("exports/%s/%s.json", userID.Hex(), uuid.NewString())
	if err := s.files.PutObject(ctx, key, "application/json", bytes.NewReader(body)); err != nil {
		return nil, fmt.Errorf("uploading export: %w", err)
	}
	url, err := s.files.GeneratePresignedDownloadURL(ctx, key, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("presigning export: %w", err)
	}
	return &ExportResult{
		URL:       url,
		ObjectKey: key,
		Count:     len(items),
		ExpiresAt: now.Add(storage.DefaultPresignedURLExpiry),
	}, nil
}
