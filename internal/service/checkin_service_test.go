package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"gymez/checkin-api/internal/domain"
	"gymez/checkin-api/internal/geo"
	"gymez/checkin-api/internal/session"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var gymPos = geo.Point{Latitude: 52.5200, Longitude: 13.4050}

func morning() time.Time {
	return time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
}

// member registers a user whose primary gym sits at gymPos.
func (h *harness) member(t *testing.T) (primitive.ObjectID, domain.Gym) {
	t.Helper()
	gym := h.gyms.add("Iron Temple", gymPos)
	user := primitive.NewObjectID()
	if err := h.userGyms.Upsert(context.Background(), &domain.UserGym{UserID: user, GymID: gym.ID, IsPrimary: true}); err != nil {
		t.Fatal(err)
	}
	return user, gym
}

func TestCheckInCheckOut_VerifiedWorkout(t *testing.T) {
	ctx := context.Background()
	h := newHarness(morning())
	user, gym := h.member(t)

	res, err := h.svc.CheckIn(ctx, user, nil, fixedLocator(northOf(gymPos, 50)))
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if res.GymID != gym.ID || res.GymName != "Iron Temple" {
		t.Errorf("checked in at %s (%s), want Iron Temple", res.GymName, res.GymID.Hex())
	}
	if !strings.Contains(res.Message, "Checked in at Iron Temple") {
		t.Errorf("message = %q", res.Message)
	}
	if active, _ := h.svc.HasActiveCheckIn(ctx, user); !active {
		t.Fatal("no active session after check-in")
	}

	h.clock.Set(morning().Add(35 * time.Minute))
	out, err := h.svc.CheckOut(ctx, user)
	if err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	if out.DurationMinutes != 35 || !out.IsVerified {
		t.Errorf("got %d min verified=%v, want 35 min verified", out.DurationMinutes, out.IsVerified)
	}
	if !strings.Contains(out.Message, "35 minutes") {
		t.Errorf("message = %q", out.Message)
	}

	rec := h.checkIns.get(res.CheckInID)
	if rec.IsOpen() || rec.DurationMinutes == nil || *rec.DurationMinutes != 35 || !rec.IsVerified {
		t.Errorf("stored record = %+v", rec)
	}
	if rec.ClosedReason != domain.ClosedByCheckOut {
		t.Errorf("closedReason = %q", rec.ClosedReason)
	}
	if got := h.rewards.workouts(user, domain.PeriodOf(morning(), time.UTC)); got != 1 {
		t.Errorf("verified workouts = %d, want 1", got)
	}
	if active, _ := h.svc.HasActiveCheckIn(ctx, user); active {
		t.Error("session still active after check-out")
	}
	if _, ok, _ := h.store.Get(ctx, user); ok {
		t.Error("persisted session not cleared")
	}
}

func TestCheckIn_OutOfRange(t *testing.T) {
	ctx := context.Background()
	h := newHarness(morning())
	user, _ := h.member(t)

	_, err := h.svc.CheckIn(ctx, user, nil, fixedLocator(northOf(gymPos, 150)))
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("err = %v, want ErrOutOfRange", err)
	}
	var oor *OutOfRangeError
	if !errors.As(err, &oor) || oor.GymName != "Iron Temple" {
		t.Fatalf("err = %#v, want OutOfRangeError for Iron Temple", err)
	}
	if oor.DistanceMeters < 149 || oor.DistanceMeters > 151 {
		t.Errorf("distance = %.2f, want ~150", oor.DistanceMeters)
	}
	if h.checkIns.count() != 0 {
		t.Error("a check-in record was created")
	}
	if active, _ := h.svc.HasActiveCheckIn(ctx, user); active {
		t.Error("session created for rejected check-in")
	}
	if got := h.rewards.workouts(user, domain.PeriodOf(morning(), time.UTC)); got != 0 {
		t.Errorf("verified workouts = %d, want 0", got)
	}
}

func TestCheckIn_RadiusBoundary(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		wantErr  error
	}{
		{"at the door", 0, nil},
		{"just inside", 99.9, nil},
		{"just outside", 100.5, ErrOutOfRange},
		{"across the street", 250, ErrOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(morning())
			user, _ := h.member(t)
			_, err := h.svc.CheckIn(context.Background(), user, nil, fixedLocator(northOf(gymPos, tt.distance)))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckIn_OncePerDay(t *testing.T) {
	ctx := context.Background()
	h := newHarness(morning())
	user, _ := h.member(t)

	if _, err := h.svc.CheckIn(ctx, user, nil, fixedLocator(gymPos)); err != nil {
		t.Fatal(err)
	}
	h.clock.Set(morning().Add(45 * time.Minute))
	if _, err := h.svc.CheckOut(ctx, user); err != nil {
		t.Fatal(err)
	}

	// Location is not even consulted for a duplicate.
	h.clock.Set(morning().Add(9 * time.Hour))
	denied := geo.LocatorFunc(func(context.Context) (geo.Point, error) { return geo.Point{}, geo.ErrPermissionDenied })
	if _, err := h.svc.CheckIn(ctx, user, nil, denied); !errors.Is(err, ErrAlreadyCheckedInToday) {
		t.Fatalf("second check-in err = %v, want ErrAlreadyCheckedInToday", err)
	}
	if h.checkIns.count() != 1 {
		t.Errorf("records = %d, want 1", h.checkIns.count())
	}

	h.clock.Set(time.Date(2025, time.March, 11, 0, 5, 0, 0, time.UTC))
	if _, err := h.svc.CheckIn(ctx, user, nil, fixedLocator(gymPos)); err != nil {
		t.Fatalf("next-day check-in: %v", err)
	}
}

func TestCheckIn_DayFollowsConfiguredTimezone(t *testing.T) {
	ctx := context.Background()
	zone := time.FixedZone("UTC+2", 2*60*60)
	// 21:00 UTC is 23:00 local on the 10th.
	h := newHarnessIn(time.Date(2025, time.March, 10, 21, 0, 0, 0, time.UTC), zone)
	user, _ := h.member(t)

	if _, err := h.svc.CheckIn(ctx, user, nil, fixedLocator(gymPos)); err != nil {
		t.Fatal(err)
	}
	h.clock.Set(time.Date(2025, time.March, 10, 21, 40, 0, 0, time.UTC))
	if _, err := h.svc.CheckOut(ctx, user); err != nil {
		t.Fatal(err)
	}

	// 22:30 UTC is already the 11th locally.
	h.clock.Set(time.Date(2025, time.March, 10, 22, 30, 0, 0, time.UTC))
	if _, err := h.svc.CheckIn(ctx, user, nil, fixedLocator(gymPos)); err != nil {
		t.Fatalf("check-in after local midnight: %v", err)
	}
}

func TestCheckOut_WithoutCheckIn(t *testing.T) {
	h := newHarness(morning())
	user, _ := h.member(t)

	_, err := h.svc.CheckOut(context.Background(), user)
	if !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("err = %v, want ErrNoActiveSession", err)
	}
	if got := h.rewards.workouts(user, domain.PeriodOf(morning(), time.UTC)); got != 0 {
		t.Errorf("verified workouts = %d, want 0", got)
	}
}

func TestCheckOut_VerificationThreshold(t *testing.T) {
	tests := []struct {
		stay         time.Duration
		wantMinutes  int
		wantVerified bool
	}{
		{29*time.Minute + 59*time.Second, 29, false},
		{30 * time.Minute, 30, true},
		{5 * time.Minute, 5, false},
		{2 * time.Hour, 120, true},
	}
	for _, tt := range tests {
		t.Run(tt.stay.String(), func(t *testing.T) {
			ctx := context.Background()
			h := newHarness(morning())
			user, _ := h.member(t)
			if _, err := h.svc.CheckIn(ctx, user, nil, fixedLocator(gymPos)); err != nil {
				t.Fatal(err)
			}
			h.clock.Set(morning().Add(tt.stay))
			out, err := h.svc.CheckOut(ctx, user)
			if err != nil {
				t.Fatal(err)
			}
			if out.DurationMinutes != tt.wantMinutes || out.IsVerified != tt.wantVerified {
				t.Errorf("got %d min verified=%v, want %d verified=%v",
					out.DurationMinutes, out.IsVerified, tt.wantMinutes, tt.wantVerified)
			}
			wantCount := 0
			if tt.wantVerified {
				wantCount = 1
			}
			if got := h.rewards.workouts(user, domain.PeriodOf(morning(), time.UTC)); got != wantCount {
				t.Errorf("verified workouts = %d, want %d", got, wantCount)
			}
			if !tt.wantVerified && !strings.Contains(out.Message, "30+ minutes") {
				t.Errorf("message = %q", out.Message)
			}
		})
	}
}

func TestCheckOut_StaleSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(morning())
	user, _ := h.member(t)

	// Session points at a record that does not exist.
	if err := h.tracker.Set(ctx, user, domain.ActiveSession{CheckInID: primitive.NewObjectID(), GymName: "Ghost Gym"}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.svc.CheckOut(ctx, user); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("err = %v, want ErrNoActiveSession", err)
	}
	if active, _ := h.svc.HasActiveCheckIn(ctx, user); active {
		t.Error("stale session not cleared")
	}

	// Session points at a record that was already closed.
	res, err := h.svc.CheckIn(ctx, user, nil, fixedLocator(gymPos))
	if err != nil {
		t.Fatal(err)
	}
	h.clock.Set(morning().Add(40 * time.Minute))
	if _, err := h.svc.CheckOut(ctx, user); err != nil {
		t.Fatal(err)
	}
	if err := h.tracker.Set(ctx, user, domain.ActiveSession{CheckInID: res.CheckInID, GymName: res.GymName}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.svc.CheckOut(ctx, user); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("second checkout err = %v, want ErrNoActiveSession", err)
	}
	if got := h.rewards.workouts(user, domain.PeriodOf(morning(), time.UTC)); got != 1 {
		t.Errorf("verified workouts = %d, want 1", got)
	}
}

func TestCheckOut_AfterRestart(t *testing.T) {
	ctx := context.Background()
	h := newHarness(morning())
	user, _ := h.member(t)
	if _, err := h.svc.CheckIn(ctx, user, nil, fixedLocator(gymPos)); err != nil {
		t.Fatal(err)
	}

	// A new process shares only the persisted store.
	restarted := NewCheckInService(h.checkIns, DefaultGymResolver(h.gyms, h.userGyms, h.users, 0),
		session.NewTracker(h.store), h.rewardSv, nil, CheckInOptions{Location: time.UTC, Now: h.clock.Now}, zap.NewNop())

	h.clock.Set(morning().Add(31 * time.Minute))
	out, err := restarted.CheckOut(ctx, user)
	if err != nil {
		t.Fatalf("CheckOut after restart: %v", err)
	}
	if !out.IsVerified {
		t.Error("31 minute session not verified")
	}
}

func TestCheckOut_RewardFailureKeepsVisit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(morning())
	user, _ := h.member(t)
	res, err := h.svc.CheckIn(ctx, user, nil, fixedLocator(gymPos))
	if err != nil {
		t.Fatal(err)
	}
	h.rewards.incrementErr = errBackend

	h.clock.Set(morning().Add(time.Hour))
	out, err := h.svc.CheckOut(ctx, user)
	if err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	if !out.IsVerified {
		t.Error("visit not verified")
	}
	if rec := h.checkIns.get(res.CheckInID); rec.IsOpen() || !rec.IsVerified {
		t.Errorf("stored record = %+v", rec)
	}
}

func TestCheckOut_CloseFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(morning())
	user, _ := h.member(t)
	if _, err := h.svc.CheckIn(ctx, user, nil, fixedLocator(gymPos)); err != nil {
		t.Fatal(err)
	}
	h.checkIns.closeErr = errBackend

	h.clock.Set(morning().Add(time.Hour))
	if _, err := h.svc.CheckOut(ctx, user); !errors.Is(err, errBackend) {
		t.Fatalf("err = %v, want backend error", err)
	}
	if active, _ := h.svc.HasActiveCheckIn(ctx, user); !active {
		t.Error("session dropped after failed close")
	}
	if got := h.rewards.workouts(user, domain.PeriodOf(morning(), time.UTC)); got != 0 {
		t.Errorf("verified workouts = %d, want 0", got)
	}
}

func TestCheckIn_ExpiresLeftoverSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(morning())
	user, _ := h.member(t)

	first, err := h.svc.CheckIn(ctx, user, nil, fixedLocator(gymPos))
	if err != nil {
		t.Fatal(err)
	}

	h.clock.Set(morning().Add(24 * time.Hour))
	second, err := h.svc.CheckIn(ctx, user, nil, fixedLocator(gymPos))
	if err != nil {
		t.Fatal(err)
	}

	prev := h.checkIns.get(first.CheckInID)
	if prev.IsOpen() || prev.IsVerified || prev.ClosedReason != domain.ClosedByExpiry {
		t.Errorf("leftover record = %+v, want closed unverified by expiry", prev)
	}
	active, err := h.svc.ActiveCheckIn(ctx, user)
	if err != nil || active.ID != second.CheckInID {
		t.Errorf("active = %v, %v; want %s", active, err, second.CheckInID.Hex())
	}
}

func TestCheckIn_LocationFailures(t *testing.T) {
	tests := []struct {
		name    string
		locator geo.Locator
		wantErr error
	}{
		{"permission denied", geo.ReportedLocator{PermissionGranted: false}, geo.ErrPermissionDenied},
		{"no fix", geo.ReportedLocator{PermissionGranted: true}, geo.ErrLocationUnavailable},
		{"nil locator", nil, geo.ErrLocationUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(morning())
			user, _ := h.member(t)
			if _, err := h.svc.CheckIn(context.Background(), user, nil, tt.locator); !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if h.checkIns.count() != 0 {
				t.Error("record created")
			}
		})
	}
}

func TestCheckIn_NoGym(t *testing.T) {
	h := newHarness(morning())
	_, err := h.svc.CheckIn(context.Background(), primitive.NewObjectID(), nil, fixedLocator(gymPos))
	if !errors.Is(err, ErrNoGymFound) {
		t.Fatalf("err = %v, want ErrNoGymFound", err)
	}
}

func TestHistory_Limits(t *testing.T) {
	ctx := context.Background()
	h := newHarness(morning())
	user, gym := h.member(t)
	for i := 0; i < 120; i++ {
		in := morning().Add(time.Duration(-i) * 24 * time.Hour)
		if _, err := h.checkIns.Create(ctx, &domain.CheckIn{UserID: user, GymID: gym.ID, CheckInTime: in}); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		limit, want int
	}{
		{0, 30},
		{10, 10},
		{500, 100},
	}
	for _, tt := range tests {
		items, err := h.svc.History(ctx, user, tt.limit)
		if err != nil {
			t.Fatal(err)
		}
		if len(items) != tt.want {
			t.Errorf("History(%d) returned %d items, want %d", tt.limit, len(items), tt.want)
		}
		if !items[0].CheckInTime.Equal(morning()) {
			t.Errorf("History(%d) not newest first", tt.limit)
		}
	}

	empty, err := h.svc.History(ctx, primitive.NewObjectID(), 0)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("History for new user = %v, %v; want empty slice", empty, err)
	}
}

func TestExportHistory(t *testing.T) {
	ctx := context.Background()
	h := newHarness(morning())
	user, _ := h.member(t)
	if _, err := h.svc.CheckIn(ctx, user, nil, fixedLocator(gymPos)); err != nil {
		t.Fatal(err)
	}

	res, err := h.svc.ExportHistory(ctx, user)
	if err != nil {
		t.Fatalf("ExportHistory: %v", err)
	}
	if !strings.HasPrefix(res.ObjectKey, "exports/"+user.Hex()+"/") || !strings.HasSuffix(res.ObjectKey, ".json") {
		t.Errorf("object key = %q", res.ObjectKey)
	}
	if res.Count != 1 || !strings.Contains(res.URL, res.ObjectKey) {
		t.Errorf("result = %+v", res)
	}

	var doc struct {
		UserID   string           `json:"userId"`
		CheckIns []domain.CheckIn `json:"checkIns"`
	}
	if err := json.Unmarshal(h.files.objects[res.ObjectKey], &doc); err != nil {
		t.Fatalf("export is not JSON: %v", err)
	}
	if doc.UserID != user.Hex() || len(doc.CheckIns) != 1 || doc.CheckIns[0].GymName != "Iron Temple" {
		t.Errorf("export = %+v", doc)
	}
}

func TestExportHistory_Unavailable(t *testing.T) {
	h := newHarness(morning())
	svc := NewCheckInService(h.checkIns, DefaultGymResolver(h.gyms, h.userGyms, h.users, 0),
		h.tracker, h.rewardSv, nil, CheckInOptions{}, zap.NewNop())
	if _, err := svc.ExportHistory(context.Background(), primitive.NewObjectID()); !errors.Is(err, ErrExportUnavailable) {
		t.Fatalf("err = %v, want ErrExportUnavailable", err)
	}

	h.files.putErr = errBackend
	if _, err := h.svc.ExportHistory(context.Background(), primitive.NewObjectID()); !errors.Is(err, errBackend) {
		t.Fatalf("err = %v, want upload error", err)
	}
}

func TestCheckOut_SessionReplacedByAnotherInstance(t *testing.T) {
	ctx := context.Background()
	h := newHarness(morning())
	user, _ := h.member(t)
	other := h.instance()

	if _, err := h.svc.CheckIn(ctx, user, nil, fixedLocator(gymPos)); err != nil {
		t.Fatal(err)
	}
	h.clock.Set(morning().Add(40 * time.Minute))
	if _, err := other.CheckOut(ctx, user); err != nil {
		t.Fatalf("checkout on the other instance: %v", err)
	}

	h.clock.Set(morning().Add(24 * time.Hour))
	day2, err := other.CheckIn(ctx, user, nil, fixedLocator(gymPos))
	if err != nil {
		t.Fatalf("day 2 check-in: %v", err)
	}

	// h.svc still caches the day 1 session.
	h.clock.Set(morning().Add(24*time.Hour + 45*time.Minute))
	out, err := h.svc.CheckOut(ctx, user)
	if err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	if out.CheckInID != day2.CheckInID || !out.IsVerified {
		t.Errorf("checked out %s verified=%v, want %s verified", out.CheckInID.Hex(), out.IsVerified, day2.CheckInID.Hex())
	}
	if rec := h.checkIns.get(day2.CheckInID); rec.IsOpen() {
		t.Error("day 2 record still open")
	}
	if got := h.rewards.workouts(user, domain.PeriodOf(morning(), time.UTC)); got != 2 {
		t.Errorf("verified workouts = %d, want 2", got)
	}
	if _, ok, _ := h.store.Get(ctx, user); ok {
		t.Error("persisted session not cleared")
	}
}

func TestActiveCheckIn_StaleCacheKeepsNewerStoredSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(morning())
	user, _ := h.member(t)
	other := h.instance()

	if _, err := h.svc.CheckIn(ctx, user, nil, fixedLocator(gymPos)); err != nil {
		t.Fatal(err)
	}
	h.clock.Set(morning().Add(10 * time.Minute))
	if _, err := other.CheckOut(ctx, user); err != nil {
		t.Fatal(err)
	}
	h.clock.Set(morning().Add(24 * time.Hour))
	day2, err := other.CheckIn(ctx, user, nil, fixedLocator(gymPos))
	if err != nil {
		t.Fatal(err)
	}

	active, err := h.svc.ActiveCheckIn(ctx, user)
	if err != nil || active.ID != day2.CheckInID {
		t.Fatalf("active = %v, %v; want %s", active, err, day2.CheckInID.Hex())
	}
	stored, ok, _ := h.store.Get(ctx, user)
	if !ok || stored.CheckInID != day2.CheckInID {
		t.Errorf("stored session = %+v, %v; want day 2", stored, ok)
	}
}

func TestCheckIn_ConcurrentInstancesOncePerDay(t *testing.T) {
	ctx := context.Background()
	h := newHarness(morning())
	user, _ := h.member(t)

	// Both attempts pass the duplicate lookup before either creates a record.
	var arrived sync.WaitGroup
	arrived.Add(2)
	locator := geo.LocatorFunc(func(context.Context) (geo.Point, error) {
		arrived.Done()
		arrived.Wait()
		return gymPos, nil
	})

	services := []CheckInService{h.svc, h.instance()}
	errs := make([]error, len(services))
	var wg sync.WaitGroup
	for i, svc := range services {
		wg.Add(1)
		go func(i int, svc CheckInService) {
			defer wg.Done()
			_, errs[i] = svc.CheckIn(ctx, user, nil, locator)
		}(i, svc)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, ErrAlreadyCheckedInToday):
			t.Errorf("err = %v, want nil or ErrAlreadyCheckedInToday", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d check-ins succeeded, want 1 (errs=%v)", succeeded, errs)
	}
	if n := h.checkIns.count(); n != 1 {
		t.Errorf("%d records today, want 1", n)
	}
	active, err := h.svc.ActiveCheckIn(ctx, user)
	if err != nil || !active.IsOpen() {
		t.Errorf("active = %v, %v; want the open check-in", active, err)
	}
}

func TestCheckIn_DoubleTapCreatesOneRecord(t *testing.T) {
	ctx := context.Background()
	h := newHarness(morning())
	user, _ := h.member(t)

	const taps = 5
	results := make([]*CheckInResult, taps)
	errs := make([]error, taps)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < taps; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = h.svc.CheckIn(ctx, user, nil, fixedLocator(gymPos))
		}(i)
	}
	close(start)
	wg.Wait()

	var id primitive.ObjectID
	for i := range errs {
		switch {
		case errs[i] == nil:
			if id.IsZero() {
				id = results[i].CheckInID
			} else if results[i].CheckInID != id {
				t.Errorf("tap %d got check-in %s, want %s", i, results[i].CheckInID.Hex(), id.Hex())
			}
		case !errors.Is(errs[i], ErrAlreadyCheckedInToday):
			t.Errorf("tap %d err = %v", i, errs[i])
		}
	}
	if id.IsZero() {
		t.Error("no tap succeeded")
	}
	if n := h.checkIns.count(); n != 1 {
		t.Errorf("%d records, want 1", n)
	}
}

func TestCheckIn_UnknownGymIsRejected(t *testing.T) {
	ctx := context.Background()
	h := newHarness(morning())
	user, _ := h.member(t)

	missing := primitive.NewObjectID()
	if _, err := h.svc.CheckIn(ctx, user, &missing, fixedLocator(gymPos)); !errors.Is(err, ErrGymNotFound) {
		t.Fatalf("err = %v, want ErrGymNotFound", err)
	}
	if h.checkIns.count() != 0 {
		t.Error("checked in at a gym the user did not choose")
	}
}
