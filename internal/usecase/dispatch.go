package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/NasaVasa/aptwatch/internal/domain"
	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MultiDispatcher routes each send to the dispatcher registered for its channel.
type MultiDispatcher map[domain.Channel]domain.ChannelDispatcher

func (d MultiDispatcher) Send(ctx context.Context, notification domain.Notification, channel domain.Channel) error {
	next, ok := d[channel]
	if !ok || next == nil {
		return &domain.DispatchError{Channel: channel, Reason: "channel not configured", Permanent: true}
	}
	return next.Send(ctx, notification, channel)
}

type RetryPolicy struct {
	MaxTries       uint
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// RetryingDispatcher retries transient dispatch failures with exponential backoff.
type RetryingDispatcher struct {
	next   domain.ChannelDispatcher
	policy RetryPolicy
	logger *zap.Logger
}

func NewRetryingDispatcher(next domain.ChannelDispatcher, policy RetryPolicy, logger *zap.Logger) *RetryingDispatcher {
	return &RetryingDispatcher{next: next, policy: policy, logger: logger}
}

func (d *RetryingDispatcher) Send(ctx context.Context, notification domain.Notification, channel domain.Channel) error {
	b := backoff.NewExponentialBackOff()
	if d.policy.InitialBackoff > 0 {
		b.InitialInterval = d.policy.InitialBackoff
	}
	if d.policy.MaxBackoff > 0 {
		b.MaxInterval = d.policy.MaxBackoff
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := d.next.Send(ctx, notification, channel)
		var dispatchErr *domain.DispatchError
		if errors.As(err, &dispatchErr) && dispatchErr.Permanent {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(d.policy.MaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			d.logger.Debug("dispatch retry scheduled",
				zap.String("notification_id", notification.ID),
				zap.String("channel", string(channel)),
				zap.Duration("backoff", next),
				zap.Error(err),
			)
		}),
	)
	return err
}

type dispatchJob struct {
	notification domain.Notification
	channel      domain.Channel
}

// DispatchQueue hands composed notifications to external channels off the matching path
// and records successful sends back on the notification.
type DispatchQueue struct {
	dispatcher    domain.ChannelDispatcher
	notifications domain.NotificationStore
	workers       int
	jobs          chan dispatchJob
	clock         func() time.Time
	logger        *zap.Logger
}

func NewDispatchQueue(dispatcher domain.ChannelDispatcher, notifications domain.NotificationStore, workers, size int, clock func() time.Time, logger *zap.Logger) *DispatchQueue {
	if workers < 1 {
		workers = 1
	}
	if size < 1 {
		size = 1
	}
	if clock == nil {
		clock = time.Now
	}
	return &DispatchQueue{
		dispatcher:    dispatcher,
		notifications: notifications,
		workers:       workers,
		jobs:          make(chan dispatchJob, size),
		clock:         clock,
		logger:        logger,
	}
}

// Enqueue schedules every pending external channel of notification without blocking.
// It returns the number of channels that were dropped because the queue was full.
func (q *DispatchQueue) Enqueue(notification domain.Notification) int {
	dropped := 0
	for _, channel := range notification.Channels.Pending() {
		select {
		case q.jobs <- dispatchJob{notification: notification, channel: channel}:
		default:
			dropped++
			q.logger.Warn("dispatch queue full, channel left unsent",
				zap.String("notification_id", notification.ID),
				zap.String("channel", string(channel)),
			)
		}
	}
	return dropped
}

// Run processes queued jobs until ctx is cancelled.
func (q *DispatchQueue) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < q.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case job := <-q.jobs:
					q.deliver(ctx, job)
				}
			}
		})
	}
	return g.Wait()
}

func (q *DispatchQueue) deliver(ctx context.Context, job dispatchJob) {
	logger := q.logger.With(
		zap.String("notification_id", job.notification.ID),
		zap.Uint("user_id", job.notification.UserID),
		zap.String("channel", string(job.channel)),
	)

	if err := q.dispatcher.Send(ctx, job.notification, job.channel); err != nil {
		var dispatchErr *domain.DispatchError
		if errors.As(err, &dispatchErr) {
			logger.Warn("dispatch failed", zap.String("reason", dispatchErr.Reason), zap.Bool("permanent", dispatchErr.Permanent))
			return
		}
		logger.Warn("dispatch failed", zap.Error(err))
		return
	}

	if err := q.notifications.MarkChannelSent(ctx, job.notification.ID, job.channel, q.clock().UTC()); err != nil {
		logger.Error("failed to record channel send", zap.Error(err))
	}
}
