package geo

import (
	"context"
	"errors"
	"time"
)

const (
	// LocateTimeout bounds a single position acquisition.
	LocateTimeout = 15 * time.Second

	// MaxFixAge is the oldest cached fix a device may report.
	MaxFixAge = 10 * time.Second
)

var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrLocationUnavailable = errors.New("location unavailable")
)

// Locator produces the user's current position.
type Locator interface {
	Locate(ctx context.Context) (Point, error)
}

// LocatorFunc adapts a function to the Locator interface.
type LocatorFunc func(ctx context.Context) (Point, error)

func (f LocatorFunc) Locate(ctx context.Context) (Point, error) { return f(ctx) }

// CurrentLocation asks loc for a position, giving up after timeout.
// A non-positive timeout uses LocateTimeout. Any failure other than a
// refused permission is reported as ErrLocationUnavailable.
func CurrentLocation(ctx context.Context, loc Locator, timeout time.Duration) (Point, error) {
	if loc == nil {
		return Point{}, ErrLocationUnavailable
	}
	if timeout <= 0 {
		timeout = LocateTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		p   Point
		err error
	}
	done := make(chan result, 1)
	go func() {
		p, err := loc.Locate(ctx)
		done <- result{p, err}
	}()

	select {
	case <-ctx.Done():
		return Point{}, ErrLocationUnavailable
	case r := <-done:
		if r.err != nil {
			if errors.Is(r.err, ErrPermissionDenied) {
				return Point{}, ErrPermissionDenied
			}
			return Point{}, ErrLocationUnavailable
		}
		if !r.p.Valid() {
			return Point{}, ErrLocationUnavailable
		}
		return r.p, nil
	}
}

// ReportedLocator serves the fix a device sent along with its request.
type ReportedLocator struct {
	PermissionGranted bool
	Latitude          *float64
	Longitude         *float64
	FixTime           *time.Time // when the device obtained the fix, if known
	MaxAge            time.Duration
	Now               func() time.Time
}

// Locate implements Locator.
func (r ReportedLocator) Locate(ctx context.Context) (Point, error) {
	if !r.PermissionGranted {
		return Point{}, ErrPermissionDenied
	}
	if r.Latitude == nil || r.Longitude == nil {
		return Point{}, ErrLocationUnavailable
	}
	if r.FixTime != nil {
		maxAge := r.MaxAge
		if maxAge <= 0 {
			maxAge = MaxFixAge
		}
		now := time.Now
		if r.Now != nil {
			now = r.Now
		}
		if now().Sub(*r.FixTime) > maxAge {
			return Point{}, ErrLocationUnavailable
		}
	}
	p := Point{Latitude: *r.Latitude, Longitude: *r.Longitude}
	if !p.Valid() {
		return Point{}, ErrLocationUnavailable
	}
	return p, nil
}
