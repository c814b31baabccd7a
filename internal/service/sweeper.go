package service

import (
	"context"
	"errors"
	"time"

	"gymez/checkin-api/internal/domain"
	"gymez/checkin-api/internal/repository"
	"gymez/checkin-api/internal/session"

	"github.com/robfig/cron"
	"go.uber.org/zap"
)

// Sweeper closes sessions the user never checked out of. Expired sessions
// are stored unverified and never count toward rewards.
type Sweeper struct {
	checkIns repository.CheckInRepository
	sessions *session.Tracker
	maxAge   time.Duration
	now      func() time.Time
	log      *zap.Logger

	cron *cron.Cron
}

func NewSweeper(checkIns repository.CheckInRepository, sessions *session.Tracker, maxAge time.Duration, now func() time.Time, log *zap.Logger) *Sweeper {
	if maxAge <= 0 {
		maxAge = 12 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &Sweeper{checkIns: checkIns, sessions: sessions, maxAge: maxAge, now: now, log: log}
}

// Sweep expires every session opened more than maxAge ago and returns how
// many it closed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	stale, err := s.checkIns.FindOpenBefore(ctx, now.Add(-s.maxAge))
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, c := range stale {
		err := s.checkIns.Close(ctx, c.ID, c.UserID, repository.CloseCheckIn{
			CheckOutTime:    now.UTC(),
			DurationMinutes: domain.SessionMinutes(c.CheckInTime, now),
			IsVerified:      false,
			Reason:          domain.ClosedByExpiry,
		})
		if errors.Is(err, repository.ErrNotFound) {
			continue // checked out meanwhile
		}
		if err != nil {
			s.log.Warn("failed to expire check-in", zap.String("checkInId", c.ID.Hex()), zap.Error(err))
			continue
		}
		closed++

		if err := s.sessions.Release(ctx, c.UserID, c.ID); err != nil {
			s.log.Warn("failed to clear expired session", zap.String("userId", c.UserID.Hex()), zap.Error(err))
		}
	}
	if closed > 0 {
		s.log.Info("expired stale check-ins", zap.Int("count", closed))
	}
	return closed, nil
}

// Start runs Sweep on schedule until Stop is called.
func (s *Sweeper) Start(schedule string) error {
	c := cron.New()
	err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			s.log.Error("sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.log.Info("session sweeper started", zap.String("schedule", schedule), zap.Duration("maxAge", s.maxAge))
	return nil
}

func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}
