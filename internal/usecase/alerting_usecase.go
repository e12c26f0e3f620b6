package usecase

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NasaVasa/aptwatch/internal/domain"
	"github.com/cenkalti/backoff/v5"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const TransactionEventType = "transaction"

var (
	ErrShardQueueFull  = errors.New("shard queue full")
	ErrManagerStopped  = errors.New("alerting manager is not running")
	ErrInvalidShardKey = errors.New("transaction has no region code")
)

type AlertingConfig struct {
	Shards          int
	QueueSize       int
	RefreshInterval time.Duration
	FlushSchedule   string
	FeedRegions     []string
}

// RuleWatcher is notified when a condition's activity changes outside the refresh cycle.
type RuleWatcher interface {
	Revoke(conditionID uint, version uint64)
	RequestRefresh()
}

type ruleSet struct {
	shards [][]domain.PriceAlertCondition
	byID   map[uint]domain.PriceAlertCondition
}

// AlertingManager runs the matching pipeline: region-sharded workers evaluate
// transactions against the active rules and feed fired outcomes into the trigger gate.
type AlertingManager struct {
	cfg           AlertingConfig
	rules         domain.AlertRuleStore
	settings      domain.NotificationSettingStore
	notifications domain.NotificationStore
	matcher       *CriteriaMatcher
	evaluator     *PriceChangeEvaluator
	gate          *TriggerGate
	composer      *NotificationComposer
	dispatch      *DispatchQueue
	feeds         domain.TransactionFeedFactory
	clock         func() time.Time
	logger        *zap.Logger

	ruleSet atomic.Pointer[ruleSet]
	revoked sync.Map
	refresh chan struct{}

	mu      sync.Mutex
	queues  []chan domain.PropertyTransaction
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

type AlertingDeps struct {
	Rules         domain.AlertRuleStore
	Settings      domain.NotificationSettingStore
	Notifications domain.NotificationStore
	Matcher       *CriteriaMatcher
	Evaluator     *PriceChangeEvaluator
	Gate          *TriggerGate
	Composer      *NotificationComposer
	Dispatch      *DispatchQueue
	Feeds         domain.TransactionFeedFactory
	Clock         func() time.Time
	Logger        *zap.Logger
}

func NewAlertingManager(cfg AlertingConfig, deps AlertingDeps) *AlertingManager {
	if cfg.Shards < 1 {
		cfg.Shards = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.FlushSchedule == "" {
		cfg.FlushSchedule = "@every 1m"
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	m := &AlertingManager{
		cfg:           cfg,
		rules:         deps.Rules,
		settings:      deps.Settings,
		notifications: deps.Notifications,
		matcher:       deps.Matcher,
		evaluator:     deps.Evaluator,
		gate:          deps.Gate,
		composer:      deps.Composer,
		dispatch:      deps.Dispatch,
		feeds:         deps.Feeds,
		clock:         deps.Clock,
		logger:        deps.Logger,
		refresh:       make(chan struct{}, 1),
	}
	m.ruleSet.Store(&ruleSet{shards: make([][]domain.PriceAlertCondition, cfg.Shards), byID: map[uint]domain.PriceAlertCondition{}})
	return m
}

// Start loads the active rules and launches the shard workers, the dispatch workers,
// the scheduled sweeps and the optional feed reader. It returns once everything runs.
func (m *AlertingManager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	if err := m.Refresh(ctx); err != nil {
		return fmt.Errorf("load active rules: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	scheduler := cron.New(cron.WithLocation(time.UTC))
	if _, err := scheduler.AddFunc(m.cfg.FlushSchedule, func() { m.sweep(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("schedule flush %q: %w", m.cfg.FlushSchedule, err)
	}
	if m.cfg.RefreshInterval > 0 {
		if _, err := scheduler.AddFunc("@every "+m.cfg.RefreshInterval.String(), m.RequestRefresh); err != nil {
			cancel()
			return fmt.Errorf("schedule rule refresh: %w", err)
		}
	}

	queues := make([]chan domain.PropertyTransaction, m.cfg.Shards)
	for i := range queues {
		queues[i] = make(chan domain.PropertyTransaction, m.cfg.QueueSize)
	}

	g, gctx := errgroup.WithContext(runCtx)
	for shard, queue := range queues {
		g.Go(func() error {
			m.runShard(gctx, shard, queue)
			return nil
		})
	}
	g.Go(func() error {
		m.runRefresher(gctx)
		return nil
	})
	if m.dispatch != nil {
		g.Go(func() error {
			return m.dispatch.Run(gctx)
		})
	}
	if m.feeds != nil {
		g.Go(func() error {
			m.runFeed(gctx)
			return nil
		})
	}

	scheduler.Start()
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error("alerting workers stopped", zap.Error(err))
		}
		<-scheduler.Stop().Done()
	}()

	m.queues = queues
	m.cancel = cancel
	m.done = done
	m.running = true
	m.logger.Info("alerting manager started",
		zap.Int("shards", m.cfg.Shards),
		zap.Int("rules", len(m.ruleSet.Load().byID)),
	)
	return nil
}

func (m *AlertingManager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel, done := m.cancel, m.done
	m.running = false
	m.queues = nil
	m.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		m.logger.Warn("timeout stopping alerting manager")
	}
}

// Submit routes tx to its region shard without blocking.
func (m *AlertingManager) Submit(ctx context.Context, tx domain.PropertyTransaction) error {
	return m.enqueue(ctx, tx, false)
}

func (m *AlertingManager) enqueue(ctx context.Context, tx domain.PropertyTransaction, wait bool) error {
	if tx.RegionCode == "" {
		return ErrInvalidShardKey
	}
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return ErrManagerStopped
	}
	queue := m.queues[m.shardOf(tx.RegionCode)]
	m.mu.Unlock()

	if !wait {
		select {
		case queue <- tx:
			return nil
		default:
			return ErrShardQueueFull
		}
	}
	select {
	case queue <- tx:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Revoke stops further evaluation of any loaded copy of a condition older than version
// until the next refresh observes it as inactive. Outcomes already computed are still delivered.
func (m *AlertingManager) Revoke(conditionID uint, version uint64) {
	for {
		prev, loaded := m.revoked.LoadOrStore(conditionID, version)
		if !loaded || prev.(uint64) >= version {
			return
		}
		if m.revoked.CompareAndSwap(conditionID, prev, version) {
			return
		}
	}
}

func (m *AlertingManager) RequestRefresh() {
	select {
	case m.refresh <- struct{}{}:
	default:
	}
}

// Refresh reloads the active rules from the store and swaps the shard copies.
func (m *AlertingManager) Refresh(ctx context.Context) error {
	set := &ruleSet{
		shards: make([][]domain.PriceAlertCondition, m.cfg.Shards),
		byID:   make(map[uint]domain.PriceAlertCondition),
	}
	err := m.rules.ListActive(ctx, func(condition domain.PriceAlertCondition) error {
		set.byID[condition.ID] = condition
		if condition.AllRegions() || spansShards(condition.Criteria.RegionCodes) {
			for shard := range set.shards {
				set.shards[shard] = append(set.shards[shard], condition)
			}
			return nil
		}
		placed := make(map[int]bool, len(condition.Criteria.RegionCodes))
		for _, code := range condition.Criteria.RegionCodes {
			shard := m.shardOf(code)
			if placed[shard] {
				continue
			}
			placed[shard] = true
			set.shards[shard] = append(set.shards[shard], condition)
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.ruleSet.Store(set)
	m.revoked.Range(func(key, value any) bool {
		condition, ok := set.byID[key.(uint)]
		if !ok || condition.Version > value.(uint64) {
			m.revoked.Delete(key)
		}
		return true
	})
	return nil
}

// Flush drains due gate states and prunes the new-listing window.
func (m *AlertingManager) Flush(ctx context.Context) (int, error) {
	emitted, err := m.gate.Flush(ctx, m.emit)
	if m.evaluator != nil {
		m.evaluator.Prune(m.clock())
	}
	return emitted, err
}

func (m *AlertingManager) sweep(ctx context.Context) {
	emitted, err := m.Flush(ctx)
	if err != nil {
		m.logger.Warn("flush sweep incomplete", zap.Int("emitted", emitted), zap.Error(err))
		return
	}
	if emitted > 0 {
		m.logger.Info("flush sweep emitted notifications", zap.Int("emitted", emitted))
	}
}

func (m *AlertingManager) runRefresher(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.refresh:
			if err := m.Refresh(ctx); err != nil && ctx.Err() == nil {
				m.logger.Warn("rule refresh failed", zap.Error(err))
			}
		}
	}
}

func (m *AlertingManager) runShard(ctx context.Context, shard int, queue <-chan domain.PropertyTransaction) {
	for {
		select {
		case <-ctx.Done():
			return
		case tx := <-queue:
			m.Process(ctx, shard, tx)
		}
	}
}

// Process evaluates tx against the rules of one shard and offers the fired outcomes to
// the gate.
func (m *AlertingManager) Process(ctx context.Context, shard int, tx domain.PropertyTransaction) {
	set := m.ruleSet.Load()
	if shard < 0 || shard >= len(set.shards) {
		return
	}
	active := make([]domain.PriceAlertCondition, 0, len(set.shards[shard]))
	for _, condition := range set.shards[shard] {
		if m.isRevoked(condition) {
			continue
		}
		active = append(active, condition)
	}

	now := m.clock().UTC()
	candidates := m.matcher.Match(tx, active)
	outcomes := m.evaluator.Evaluate(ctx, tx, candidates, now)
	for _, outcome := range outcomes {
		setting, err := loadSetting(ctx, m.settings, outcome.UserID)
		if err != nil {
			m.logger.Warn("failed to load notification settings, using defaults", zap.Uint("user_id", outcome.UserID), zap.Error(err))
			setting = domain.DefaultNotificationSetting(outcome.UserID)
		}
		for category, part := range outcome.ByCategory() {
			typeSetting := setting.ForType(category)
			if !typeSetting.Enabled {
				continue
			}
			decision, err := m.gate.Offer(ctx, Fire{Category: category, Frequency: typeSetting.Frequency, Outcome: part}, m.emit)
			if err != nil {
				m.logger.Warn("gate offer failed",
					zap.Uint("condition_id", outcome.ConditionID),
					zap.String("category", string(category)),
					zap.String("transaction_id", tx.ID),
					zap.Error(err),
				)
				continue
			}
			m.logger.Debug("gate decision",
				zap.Uint("condition_id", outcome.ConditionID),
				zap.String("category", string(category)),
				zap.Stringer("decision", decision),
			)
		}
	}
}

// emit composes and persists the notification for an emission, records the trigger on
// the condition and queues external delivery.
func (m *AlertingManager) emit(ctx context.Context, emission Emission) error {
	condition, err := m.condition(ctx, emission.Key.ConditionID)
	if err != nil {
		return fmt.Errorf("load condition %d: %w", emission.Key.ConditionID, err)
	}
	setting, err := loadSetting(ctx, m.settings, emission.UserID)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	notification := m.composer.Compose(ComposeInput{
		Condition: condition,
		Category:  emission.Key.Category,
		Outcomes:  emission.Outcomes,
		Setting:   setting,
		Batched:   emission.Batched,
		Now:       emission.EmittedAt,
	})
	if err := m.notifications.Create(ctx, notification); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}
	if err := m.rules.RecordTrigger(ctx, condition.ID, emission.EmittedAt); err != nil {
		m.logger.Warn("failed to record trigger", zap.Uint("condition_id", condition.ID), zap.Error(err))
	}
	if m.dispatch != nil {
		m.dispatch.Enqueue(notification)
	}

	m.logger.Info("notification emitted",
		zap.String("notification_id", notification.ID),
		zap.Uint("condition_id", condition.ID),
		zap.Uint("user_id", notification.UserID),
		zap.String("type", string(notification.Type)),
		zap.Int("outcomes", len(emission.Outcomes)),
		zap.Bool("batched", emission.Batched),
	)
	return nil
}

func (m *AlertingManager) condition(ctx context.Context, conditionID uint) (domain.PriceAlertCondition, error) {
	if condition, ok := m.ruleSet.Load().byID[conditionID]; ok {
		return condition, nil
	}
	condition, err := m.rules.Get(ctx, conditionID)
	if err != nil {
		return domain.PriceAlertCondition{}, err
	}
	return *condition, nil
}

func (m *AlertingManager) isRevoked(condition domain.PriceAlertCondition) bool {
	version, ok := m.revoked.Load(condition.ID)
	return ok && version.(uint64) > condition.Version
}

func spansShards(regionCodes []string) bool {
	for _, code := range regionCodes {
		if domain.SpansShards(code) {
			return true
		}
	}
	return false
}

func (m *AlertingManager) shardOf(regionCode string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(domain.ShardPrefix(regionCode)))
	return int(h.Sum32() % uint32(m.cfg.Shards))
}

func (m *AlertingManager) runFeed(ctx context.Context) {
	retry := backoff.NewExponentialBackOff()
	retry.MaxInterval = time.Minute
	for {
		err := m.consumeFeed(ctx, retry.Reset)
		if ctx.Err() != nil {
			return
		}
		wait := retry.NextBackOff()
		m.logger.Warn("transaction feed disconnected, reconnecting", zap.Duration("backoff", wait), zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// consumeFeed runs one feed session. onSubscribed is called once the subscription is
// accepted.
func (m *AlertingManager) consumeFeed(ctx context.Context, onSubscribed func()) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feed, err := m.feeds.Connect(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer feed.Close()

	go func() {
		<-ctx.Done()
		_ = feed.Close()
	}()

	if err := feed.Subscribe(ctx, m.cfg.FeedRegions); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if onSubscribed != nil {
		onSubscribed()
	}

	for {
		msg, err := feed.Receive(ctx)
		if err != nil {
			return fmt.Errorf("receive: %w", err)
		}
		if msg == nil || msg.EventType != TransactionEventType {
			continue
		}
		for _, tx := range msg.Transactions {
			if err := m.enqueue(ctx, tx, true); err != nil {
				if errors.Is(err, ErrInvalidShardKey) {
					m.logger.Warn("transaction dropped", zap.String("transaction_id", tx.ID), zap.Error(err))
					continue
				}
				return err
			}
		}
	}
}
