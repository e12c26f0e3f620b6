package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NasaVasa/aptwatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func belowCondition(id uint, regions ...string) domain.PriceAlertCondition {
	return domain.PriceAlertCondition{
		ID:       id,
		UserID:   7,
		Name:     "대치 급매",
		IsActive: true,
		Version:  1,
		Criteria: domain.Criteria{RegionCodes: regions},
		AlertConditions: domain.AlertConditions{
			PriceThreshold: &domain.ThresholdRule{Operator: domain.ThresholdBelow, Value: 3_000_000_000},
		},
	}
}

type alertingFixture struct {
	manager       *AlertingManager
	rules         *fakeRules
	notifications *fakeNotifications
	settings      *fakeSettings
	clock         *fixedClock
}

func newAlertingFixture(t *testing.T, shards int, conditions ...domain.PriceAlertCondition) *alertingFixture {
	t.Helper()
	logger := zap.NewNop()
	clock := &fixedClock{now: time.Date(2026, 10, 10, 9, 0, 0, 0, time.UTC)}
	rules := newFakeRules(conditions...)
	notifications := newFakeNotifications()
	settings := newFakeSettings()
	m := NewAlertingManager(AlertingConfig{Shards: shards, QueueSize: 8, FlushSchedule: "@every 1h"}, AlertingDeps{
		Rules:         rules,
		Settings:      settings,
		Notifications: notifications,
		Matcher:       NewCriteriaMatcher(logger),
		Evaluator:     NewPriceChangeEvaluator(&fakeSnapshots{}, time.Hour, logger),
		Gate:          NewTriggerGate(newFakeGateStore(), domain.PeriodDaily, clock.Now, logger),
		Composer:      NewNotificationComposer(nil, 0, nil),
		Clock:         clock.Now,
		Logger:        logger,
	})
	require.NoError(t, m.Refresh(context.Background()))
	return &alertingFixture{manager: m, rules: rules, notifications: notifications, settings: settings, clock: clock}
}

func TestAlertingProcessEmitsNotification(t *testing.T) {
	f := newAlertingFixture(t, 4, belowCondition(1, "11680"))
	tx := gangnamSale(84.97, 2_500_000_000)

	f.manager.Process(context.Background(), f.manager.shardOf(tx.RegionCode), tx)

	all := f.notifications.all()
	require.Len(t, all, 1)
	assert.Equal(t, uint(7), all[0].UserID)
	assert.Equal(t, domain.NotificationPriceAlert, all[0].Type)
	assert.Equal(t, "1", all[0].RelatedID)
	assert.Equal(t, 1, f.rules.triggers[1])

	// Same day: the threshold cooldown suppresses a second notification.
	f.manager.Process(context.Background(), f.manager.shardOf(tx.RegionCode), tx)
	assert.Len(t, f.notifications.all(), 1)
}

func TestAlertingProcessSkipsRevokedCondition(t *testing.T) {
	f := newAlertingFixture(t, 1, belowCondition(1, "11680"))
	tx := gangnamSale(84.97, 2_500_000_000)

	f.manager.Revoke(1, 2)
	f.manager.Process(context.Background(), 0, tx)
	assert.Empty(t, f.notifications.all())

	// A lower version never overrides a newer revocation.
	f.manager.Revoke(1, 1)
	f.manager.Process(context.Background(), 0, tx)
	assert.Empty(t, f.notifications.all())
}

func TestAlertingRefreshDropsStaleRevocation(t *testing.T) {
	f := newAlertingFixture(t, 1, belowCondition(1, "11680"))
	ctx := context.Background()

	version, err := f.rules.SetActive(ctx, 7, 1, false)
	require.NoError(t, err)
	f.manager.Revoke(1, version)
	version, err = f.rules.SetActive(ctx, 7, 1, true)
	require.NoError(t, err)
	require.NoError(t, f.manager.Refresh(ctx))

	_, revoked := f.manager.revoked.Load(uint(1))
	assert.False(t, revoked)

	loaded := f.manager.ruleSet.Load().byID[1]
	assert.Equal(t, version, loaded.Version)

	tx := gangnamSale(84.97, 2_500_000_000)
	f.manager.Process(ctx, 0, tx)
	assert.Len(t, f.notifications.all(), 1)
}

func TestAlertingRefreshShardsRules(t *testing.T) {
	f := newAlertingFixture(t, 4, belowCondition(1, "11680"), belowCondition(2))
	set := f.manager.ruleSet.Load()
	home := f.manager.shardOf("11680")

	for shard, rules := range set.shards {
		ids := make([]uint, 0, len(rules))
		for _, r := range rules {
			ids = append(ids, r.ID)
		}
		if shard == home {
			assert.ElementsMatch(t, []uint{1, 2}, ids, "shard %d", shard)
		} else {
			assert.Equal(t, []uint{2}, ids, "shard %d", shard)
		}
	}
	assert.Equal(t, home, f.manager.shardOf("11650"), "regions sharing a prefix share a shard")
}

func TestAlertingShortRegionCodeReachesEveryShard(t *testing.T) {
	f := newAlertingFixture(t, 4, belowCondition(1, "1"))
	for shard, rules := range f.manager.ruleSet.Load().shards {
		require.Len(t, rules, 1, "shard %d", shard)
		assert.Equal(t, uint(1), rules[0].ID)
	}

	tx := gangnamSale(84.97, 2_500_000_000)
	f.manager.Process(context.Background(), f.manager.shardOf(tx.RegionCode), tx)
	require.Len(t, f.notifications.all(), 1)
	assert.Equal(t, "1", f.notifications.all()[0].RelatedID)
}

func TestAlertingSubmitRequiresRunningManager(t *testing.T) {
	f := newAlertingFixture(t, 2, belowCondition(1, "11680"))
	ctx := context.Background()

	assert.ErrorIs(t, f.manager.Submit(ctx, domain.PropertyTransaction{ID: "t"}), ErrInvalidShardKey)
	assert.ErrorIs(t, f.manager.Submit(ctx, gangnamSale(84.97, 1)), ErrManagerStopped)
}

func TestAlertingStartSubmitStop(t *testing.T) {
	f := newAlertingFixture(t, 2, belowCondition(1, "11680"))
	ctx := context.Background()

	require.NoError(t, f.manager.Start(ctx))
	require.NoError(t, f.manager.Submit(ctx, gangnamSale(84.97, 2_500_000_000)))

	assert.Eventually(t, func() bool {
		return len(f.notifications.all()) == 1
	}, time.Second, 5*time.Millisecond)

	f.manager.Stop()
	assert.ErrorIs(t, f.manager.Submit(ctx, gangnamSale(84.97, 2_500_000_000)), ErrManagerStopped)
}

func TestAlertingWeeklyBatchEmitsOnce(t *testing.T) {
	ctx := context.Background()
	condition := belowCondition(1, "11680")
	condition.AlertConditions.PriceThreshold.Value = 500_000_000
	f := newAlertingFixture(t, 1, condition)

	setting := domain.DefaultNotificationSetting(7)
	setting.PriceAlert.Frequency = domain.FrequencyWeekly
	require.NoError(t, f.settings.Save(ctx, setting))

	monday := time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)
	for i, price := range []int64{480_000_000, 470_000_000, 490_000_000} {
		f.clock.Set(monday.AddDate(0, 0, i))
		tx := gangnamSale(84.97, price)
		tx.ID = fmt.Sprintf("t%d", i)
		f.manager.Process(ctx, 0, tx)
	}
	f.manager.Process(ctx, 0, gangnamSale(84.97, 520_000_000))

	emitted, err := f.manager.Flush(ctx)
	require.NoError(t, err)
	assert.Zero(t, emitted)
	assert.Empty(t, f.notifications.all())

	f.clock.Set(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))
	emitted, err = f.manager.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, emitted)

	all := f.notifications.all()
	require.Len(t, all, 1)
	assert.Contains(t, all[0].Title, "3건")
	assert.Equal(t, domain.PriorityMedium, all[0].Priority)
	assert.Equal(t, 1, f.rules.triggers[1])
}

type fakeFeed struct {
	subscribeErr error
	closes       atomic.Int32
}

func (f *fakeFeed) Subscribe(context.Context, []string) error { return f.subscribeErr }

func (f *fakeFeed) Receive(context.Context) (*domain.TransactionMessage, error) {
	return nil, errors.New("connection reset")
}

func (f *fakeFeed) Close() error {
	f.closes.Add(1)
	return nil
}

type fakeFeedFactory struct{ feed *fakeFeed }

func (f fakeFeedFactory) Connect(context.Context) (domain.TransactionFeed, error) {
	return f.feed, nil
}

func TestAlertingFeedSessionEndsWithConnection(t *testing.T) {
	f := newAlertingFixture(t, 1)
	feed := &fakeFeed{}
	f.manager.feeds = fakeFeedFactory{feed: feed}
	subscribed := 0

	err := f.manager.consumeFeed(context.Background(), func() { subscribed++ })
	require.Error(t, err)
	assert.Equal(t, 1, subscribed)
	assert.Eventually(t, func() bool { return feed.closes.Load() == 2 }, time.Second, 5*time.Millisecond,
		"the session closer exits when the session ends")

	feed.subscribeErr = errors.New("subscription rejected")
	err = f.manager.consumeFeed(context.Background(), func() { subscribed++ })
	require.ErrorContains(t, err, "subscribe")
	assert.Equal(t, 1, subscribed, "backoff is only reset by an accepted subscription")
}
