package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/NasaVasa/aptwatch/internal/domain"
)

type fakeSnapshots struct {
	mu        sync.Mutex
	snapshots []domain.PriceSnapshot
	lookups   int
}

func (s *fakeSnapshots) LatestBefore(_ context.Context, complexID int64, areaBucket int, cutoff time.Time) (*domain.PriceSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	var best *domain.PriceSnapshot
	for i := range s.snapshots {
		snap := s.snapshots[i]
		if snap.ComplexID != complexID || snap.AreaBucket != areaBucket || snap.SnapshotDate.After(cutoff) {
			continue
		}
		if best == nil || snap.SnapshotDate.After(best.SnapshotDate) {
			best = &snap
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	return best, nil
}

func (s *fakeSnapshots) Put(_ context.Context, snapshot domain.PriceSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snapshot)
	return nil
}

type fakeGateStore struct {
	mu     sync.Mutex
	states map[domain.GateKey]domain.GateState
}

func newFakeGateStore() *fakeGateStore {
	return &fakeGateStore{states: map[domain.GateKey]domain.GateState{}}
}

func (s *fakeGateStore) Get(_ context.Context, key domain.GateKey) (*domain.GateState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &state, nil
}

func (s *fakeGateStore) Save(_ context.Context, state domain.GateState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.Key] = state
	return nil
}

func (s *fakeGateStore) ListDue(_ context.Context, now time.Time) ([]domain.GateKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []domain.GateKey
	for key, state := range s.states {
		if state.Phase != domain.GateIdle && !state.FlushAt.After(now) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

type fakeRules struct {
	mu         sync.Mutex
	conditions map[uint]domain.PriceAlertCondition
	nextID     uint
	triggers   map[uint]int
}

func newFakeRules(conditions ...domain.PriceAlertCondition) *fakeRules {
	r := &fakeRules{conditions: map[uint]domain.PriceAlertCondition{}, triggers: map[uint]int{}}
	for _, c := range conditions {
		r.conditions[c.ID] = c
		if c.ID > r.nextID {
			r.nextID = c.ID
		}
	}
	return r
}

func (r *fakeRules) Create(_ context.Context, condition *domain.PriceAlertCondition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	condition.ID = r.nextID
	r.conditions[condition.ID] = *condition
	return nil
}

func (r *fakeRules) Get(_ context.Context, conditionID uint) (*domain.PriceAlertCondition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conditions[conditionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (r *fakeRules) ListByUser(_ context.Context, userID uint) ([]domain.PriceAlertCondition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.PriceAlertCondition
	for _, c := range r.conditions {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRules) ListActive(_ context.Context, fn func(domain.PriceAlertCondition) error) error {
	r.mu.Lock()
	var active []domain.PriceAlertCondition
	for _, c := range r.conditions {
		if c.IsActive {
			active = append(active, c)
		}
	}
	r.mu.Unlock()
	for _, c := range active {
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeRules) SetActive(_ context.Context, userID uint, conditionID uint, active bool) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conditions[conditionID]
	if !ok || c.UserID != userID {
		return 0, domain.ErrNotFound
	}
	c.IsActive = active
	c.Version++
	r.conditions[conditionID] = c
	return c.Version, nil
}

func (r *fakeRules) Delete(_ context.Context, userID uint, conditionID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conditions[conditionID]
	if !ok || c.UserID != userID {
		return domain.ErrNotFound
	}
	delete(r.conditions, conditionID)
	return nil
}

func (r *fakeRules) RecordTrigger(_ context.Context, conditionID uint, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggers[conditionID]++
	return nil
}

type fakeNotifications struct {
	mu            sync.Mutex
	notifications map[string]domain.Notification
	order         []string
	lastFilter    domain.NotificationFilter
}

func newFakeNotifications() *fakeNotifications {
	return &fakeNotifications{notifications: map[string]domain.Notification{}}
}

func (s *fakeNotifications) Create(_ context.Context, n domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[n.ID] = n
	s.order = append(s.order, n.ID)
	return nil
}

func (s *fakeNotifications) all() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Notification, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.notifications[id])
	}
	return out
}

func (s *fakeNotifications) Get(_ context.Context, userID uint, id string) (*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return &n, nil
}

func (s *fakeNotifications) List(_ context.Context, filter domain.NotificationFilter) (domain.NotificationPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFilter = filter
	var page domain.NotificationPage
	for _, id := range s.order {
		n := s.notifications[id]
		if n.UserID == filter.UserID && (filter.Status == "" || n.Status == filter.Status) {
			page.Notifications = append(page.Notifications, n)
		}
	}
	return page, nil
}

func (s *fakeNotifications) UpdateStatus(_ context.Context, userID uint, id string, status domain.NotificationStatus, at time.Time) (*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return nil, domain.ErrNotFound
	}
	n.Status = status
	n.IsArchived = status == domain.StatusArchived
	n.UpdatedAt = at
	s.notifications[id] = n
	return &n, nil
}

func (s *fakeNotifications) MarkChannelSent(_ context.Context, id string, channel domain.Channel, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return domain.ErrNotFound
	}
	d := n.Channels.Get(channel)
	d.Sent = true
	d.SentAt = &at
	s.notifications[id] = n
	return nil
}

func (s *fakeNotifications) MarkChannelEngaged(_ context.Context, userID uint, id string, channel domain.Channel, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return domain.ErrNotFound
	}
	d := n.Channels.Get(channel)
	d.Engaged = true
	d.EngagedAt = &at
	s.notifications[id] = n
	return nil
}

type fakeSettings struct {
	mu       sync.Mutex
	settings map[uint]domain.NotificationSetting
}

func newFakeSettings(settings ...domain.NotificationSetting) *fakeSettings {
	s := &fakeSettings{settings: map[uint]domain.NotificationSetting{}}
	for _, setting := range settings {
		s.settings[setting.UserID] = setting
	}
	return s
}

func (s *fakeSettings) Get(_ context.Context, userID uint) (*domain.NotificationSetting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	setting, ok := s.settings[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &setting, nil
}

func (s *fakeSettings) Save(_ context.Context, setting domain.NotificationSetting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[setting.UserID] = setting
	return nil
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[uint]domain.User
}

func newFakeUsers(users ...domain.User) *fakeUsers {
	r := &fakeUsers{users: map[uint]domain.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUsers) GetByTelegramID(_ context.Context, telegramUserID int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.TelegramUserID == telegramUserID {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeUsers) GetByID(_ context.Context, userID uint) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (r *fakeUsers) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.TelegramUserID == user.TelegramUserID {
			return domain.ErrConflict
		}
	}
	user.ID = uint(len(r.users) + 1)
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUsers) UpdateUsername(_ context.Context, userID uint, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Username = username
	r.users[userID] = u
	return nil
}

type fakeWatcher struct {
	revoked   map[uint]uint64
	refreshes int
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{revoked: map[uint]uint64{}}
}

func (w *fakeWatcher) Revoke(conditionID uint, version uint64) { w.revoked[conditionID] = version }
func (w *fakeWatcher) RequestRefresh()                          { w.refreshes++ }

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func ptr[T any](v T) *T { return &v }
