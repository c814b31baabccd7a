package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"sort"
	"sync"
	"time"

	"gymez/checkin-api/internal/domain"
	"gymez/checkin-api/internal/geo"
	"gymez/checkin-api/internal/repository"
	"gymez/checkin-api/internal/session"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// northOf returns the point the given distance due north of p.
func northOf(p geo.Point, meters float64) geo.Point {
	return geo.Point{
		Latitude:  p.Latitude + meters/geo.EarthRadiusMeters*180/math.Pi,
		Longitude: p.Longitude,
	}
}

// fixedLocator always reports p.
func fixedLocator(p geo.Point) geo.Locator {
	return geo.LocatorFunc(func(context.Context) (geo.Point, error) { return p, nil })
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// --- check-ins ---

type fakeCheckIns struct {
	mu       sync.Mutex
	items    map[primitive.ObjectID]*domain.CheckIn
	closeErr error
}

func newFakeCheckIns() *fakeCheckIns {
	return &fakeCheckIns{items: make(map[primitive.ObjectID]*domain.CheckIn)}
}

// Create enforces one check-in per user and day like the unique index.
func (f *fakeCheckIns) Create(_ context.Context, c *domain.CheckIn) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.CheckInDay != "" {
		for _, existing := range f.items {
			if existing.UserID == c.UserID && existing.CheckInDay == c.CheckInDay {
				return primitive.NilObjectID, repository.ErrDuplicate
			}
		}
	}
	c.ID = primitive.NewObjectID()
	cp := *c
	f.items[c.ID] = &cp
	return c.ID, nil
}

func (f *fakeCheckIns) GetByID(_ context.Context, id, userID primitive.ObjectID) (*domain.CheckIn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.items[id]
	if !ok || c.UserID != userID {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCheckIns) ExistsSince(_ context.Context, userID primitive.ObjectID, since time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.items {
		if c.UserID == userID && !c.CheckInTime.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCheckIns) Close(_ context.Context, id, userID primitive.ObjectID, cl repository.CloseCheckIn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closeErr != nil {
		return f.closeErr
	}
	c, ok := f.items[id]
	if !ok || c.UserID != userID || !c.IsOpen() {
		return repository.ErrNotFound
	}
	out := cl.CheckOutTime
	minutes := cl.DurationMinutes
	c.CheckOutTime = &out
	c.DurationMinutes = &minutes
	c.IsVerified = cl.IsVerified
	c.ClosedReason = cl.Reason
	return nil
}

func (f *fakeCheckIns) ListByUser(_ context.Context, userID primitive.ObjectID, limit int) ([]domain.CheckIn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.CheckIn
	for _, c := range f.items {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckInTime.After(out[j].CheckInTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeCheckIns) FindOpenBefore(_ context.Context, cutoff time.Time) ([]domain.CheckIn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.CheckIn
	for _, c := range f.items {
		if c.IsOpen() && c.CheckInTime.Before(cutoff) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCheckIns) get(id primitive.ObjectID) domain.CheckIn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.items[id]
}

func (f *fakeCheckIns) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// --- gyms ---

type fakeGyms struct {
	mu    sync.Mutex
	items []domain.Gym
}

func (f *fakeGyms) add(name string, p geo.Point) domain.Gym {
	g := domain.Gym{ID: primitive.NewObjectID(), Name: name, Latitude: p.Latitude, Longitude: p.Longitude}
	f.mu.Lock()
	f.items = append(f.items, g)
	f.mu.Unlock()
	return g
}

func (f *fakeGyms) Create(_ context.Context, g *domain.Gym) (primitive.ObjectID, error) {
	g.ID = primitive.NewObjectID()
	f.mu.Lock()
	f.items = append(f.items, *g)
	f.mu.Unlock()
	return g.ID, nil
}

func (f *fakeGyms) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Gym, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.items {
		if g.ID == id {
			cp := g
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeGyms) FindInBox(_ context.Context, box geo.Box) ([]domain.Gym, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Gym
	for _, g := range f.items {
		if box.Contains(g.Location()) {
			out = append(out, g)
		}
	}
	return out, nil
}

// --- user gyms ---

type fakeUserGyms struct {
	mu    sync.Mutex
	links []domain.UserGym
}

func (f *fakeUserGyms) GetPrimary(_ context.Context, userID primitive.ObjectID) (*domain.UserGym, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.links {
		if l.UserID == userID && l.IsPrimary {
			cp := l
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserGyms) ClearPrimary(_ context.Context, userID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.links {
		if f.links[i].UserID == userID {
			f.links[i].IsPrimary = false
		}
	}
	return nil
}

func (f *fakeUserGyms) Upsert(_ context.Context, link *domain.UserGym) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.links {
		if f.links[i].UserID == link.UserID && f.links[i].GymID == link.GymID {
			f.links[i].IsPrimary = link.IsPrimary
			return nil
		}
	}
	f.links = append(f.links, *link)
	return nil
}

// --- users ---

type fakeUsers struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*domain.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{items: make(map[primitive.ObjectID]*domain.User)}
}

func (f *fakeUsers) Create(_ context.Context, u *domain.User) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.items {
		if existing.Email == u.Email {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	u.ID = primitive.NewObjectID()
	cp := *u
	f.items[u.ID] = &cp
	return u.ID, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.items {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// --- monthly rewards ---

type fakeRewards struct {
	mu           sync.Mutex
	items        map[primitive.ObjectID]*domain.MonthlyReward
	incrementErr error
}

func newFakeRewards() *fakeRewards {
	return &fakeRewards{items: make(map[primitive.ObjectID]*domain.MonthlyReward)}
}

func (f *fakeRewards) find(userID primitive.ObjectID, p domain.Period) *domain.MonthlyReward {
	for _, r := range f.items {
		if r.UserID == userID && r.Month == p.Month && r.Year == p.Year {
			return r
		}
	}
	return nil
}

func (f *fakeRewards) Get(_ context.Context, userID primitive.ObjectID, p domain.Period) (*domain.MonthlyReward, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.find(userID, p)
	if r == nil {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRewards) Increment(_ context.Context, userID primitive.ObjectID, p domain.Period) (*domain.MonthlyReward, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrementErr != nil {
		return nil, f.incrementErr
	}
	r := f.find(userID, p)
	if r == nil {
		r = &domain.MonthlyReward{ID: primitive.NewObjectID(), UserID: userID, Month: p.Month, Year: p.Year}
		f.items[r.ID] = r
	}
	r.VerifiedWorkouts++
	cp := *r
	return &cp, nil
}

func (f *fakeRewards) SetTier(_ context.Context, id primitive.ObjectID, tier *string, discount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.RewardTier = tier
	r.DiscountPercentage = discount
	return nil
}

func (f *fakeRewards) SetRedemption(_ context.Context, id primitive.ObjectID, code string, at time.Time) (*domain.MonthlyReward, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if r.RedemptionCode == "" {
		r.RedemptionCode = code
		r.RedeemedAt = &at
	}
	cp := *r
	return &cp, nil
}

// workouts returns the counter for userID in p, 0 if absent.
func (f *fakeRewards) workouts(userID primitive.ObjectID, p domain.Period) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r := f.find(userID, p); r != nil {
		return r.VerifiedWorkouts
	}
	return 0
}

// seed stores a counter directly.
func (f *fakeRewards) seed(userID primitive.ObjectID, p domain.Period, workouts int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := &domain.MonthlyReward{ID: primitive.NewObjectID(), UserID: userID, Month: p.Month, Year: p.Year, VerifiedWorkouts: workouts}
	f.items[r.ID] = r
}

// --- file storage ---

type fakeFiles struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{objects: make(map[string][]byte)}
}

func (f *fakeFiles) PutObject(_ context.Context, key, _ string, body io.Reader) error {
	if f.putErr != nil {
		return f.putErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	f.mu.Lock()
	f.objects[key] = buf.Bytes()
	f.mu.Unlock()
	return nil
}

func (f *fakeFiles) GeneratePresignedDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://files.test/" + key + "?sig=x", nil
}

// --- harness ---

var errBackend = errors.New("backend down")

type harness struct {
	clock    *clock
	checkIns *fakeCheckIns
	gyms     *fakeGyms
	userGyms *fakeUserGyms
	users    *fakeUsers
	rewards  *fakeRewards
	files    *fakeFiles
	tracker  *session.Tracker
	store    *session.MemoryStore
	loc      *time.Location
	svc      CheckInService
	rewardSv RewardService
}

func newHarness(start time.Time) *harness {
	return newHarnessIn(start, time.UTC)
}

// newHarnessIn builds a harness whose "today" follows loc.
func newHarnessIn(start time.Time, loc *time.Location) *harness {
	h := &harness{
		clock:    &clock{now: start},
		checkIns: newFakeCheckIns(),
		gyms:     &fakeGyms{},
		userGyms: &fakeUserGyms{},
		users:    newFakeUsers(),
		rewards:  newFakeRewards(),
		files:    newFakeFiles(),
		store:    session.NewMemoryStore(),
		loc:      loc,
	}
	h.tracker = session.NewTracker(h.store)
	h.rewardSv = NewRewardService(h.rewards, h.loc, h.clock.Now, zap.NewNop())
	resolver := DefaultGymResolver(h.gyms, h.userGyms, h.users, geo.DefaultNearbyRadius)
	h.svc = NewCheckInService(h.checkIns, resolver, h.tracker, h.rewardSv, h.files, CheckInOptions{
		Location: h.loc,
		Now:      h.clock.Now,
	}, zap.NewNop())
	return h
}

// instance returns another service over the same storage and session
// store, as a second server process would see them.
func (h *harness) instance() CheckInService {
	resolver := DefaultGymResolver(h.gyms, h.userGyms, h.users, geo.DefaultNearbyRadius)
	return NewCheckInService(h.checkIns, resolver, session.NewTracker(h.store), h.rewardSv, h.files, CheckInOptions{
		Location: h.loc,
		Now:      h.clock.Now,
	}, zap.NewNop())
}
