package notification

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/nurtech/notify-hub/internal/model"
	"github.com/nurtech/notify-hub/internal/rabbitmq/queue"
)

//go:generate mockgen -source=service.go -destination=../../mocks/service/notification/mock.go -package=mocks

type notificationPublisher interface {
	Publish(msg queue.Message, strategy retry.Strategy) error
}

type notificationRepository interface {
	Create(context.Context, model.Notification) (model.Notification, error)
	Get(context.Context, int64) (model.Notification, error)
	List(context.Context, model.ListFilter) ([]model.Notification, error)
	MarkSent(context.Context, int64) error
	MarkFailed(context.Context, int64, string) error
}

// Sender performs the actual channel-specific delivery. One
// implementation is registered per channel.
type Sender interface {
	Send(ctx context.Context, to, subject, msg string) error
}

type cache interface {
	SetWithRetry(ctx context.Context, strategy retry.Strategy, key string, value interface{}) error
	GetWithRetry(ctx context.Context, strategy retry.Strategy, key string) (string, error)
}

// Service implements the admission ordering contract (record first,
// enqueue after) and gives the dispatcher its status, send and
// mark operations.
type Service struct {
	repo    notificationRepository
	queue   notificationPublisher
	senders map[model.Channel]Sender
	cache   cache
}

func NewService(
	repo notificationRepository,
	queue notificationPublisher,
	senders map[model.Channel]Sender,
	cache cache,
) *Service {
	return &Service{repo: repo, queue: queue, senders: senders, cache: cache}
}

// Create persists a pending notification and enqueues its id. The
// enqueue happens strictly after the insert commits; if the broker is
// unreachable the error surfaces to the caller and the record stays
// pending.
func (s *Service) Create(ctx context.Context, strategy retry.Strategy, n model.Notification) (model.Notification, error) {
	created, err := s.repo.Create(ctx, n)
	if err != nil {
		return model.Notification{}, fmt.Errorf("create notification: %w", err)
	}

	if err := s.cache.SetWithRetry(ctx, strategy, cacheKey(created.ID), string(created.Status)); err != nil {
		zlog.Logger.Error().Err(err).Int64("id", created.ID).Msg("failed to cache notification status")
	}

	if err := s.queue.Publish(queue.Message{ID: created.ID}, strategy); err != nil {
		zlog.Logger.Error().Err(err).Int64("id", created.ID).Msg("failed to publish notification")
		return model.Notification{}, fmt.Errorf("publish notification: %w", err)
	}

	return created, nil
}

// Get returns the authoritative record from the store.
func (s *Service) Get(ctx context.Context, id int64) (model.Notification, error) {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.Notification{}, fmt.Errorf("get notification: %w", err)
	}

	return n, nil
}

// List returns notifications newest first.
func (s *Service) List(ctx context.Context, f model.ListFilter) ([]model.Notification, error) {
	notifications, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	return notifications, nil
}

// Status returns the delivery status, reading through the cache.
func (s *Service) Status(ctx context.Context, strategy retry.Strategy, id int64) (model.Status, error) {
	status, err := s.cache.GetWithRetry(ctx, strategy, cacheKey(id))
	if err != nil && !errors.Is(err, redis.Nil) {
		zlog.Logger.Error().Err(err).Int64("id", id).Msg("failed to get notification status from cache")
	}

	if err != nil {
		n, err := s.repo.Get(ctx, id)
		if err != nil {
			return "", fmt.Errorf("get notification status: %w", err)
		}
		status = string(n.Status)

		if err := s.cache.SetWithRetry(ctx, strategy, cacheKey(id), status); err != nil {
			zlog.Logger.Error().Err(err).Int64("id", id).Msg("failed to cache notification status")
		}
	}

	return model.Status(status), nil
}

// Send delivers the notification over its channel. An unknown channel
// is a delivery failure, not a system fault.
func (s *Service) Send(ctx context.Context, n model.Notification) error {
	sender, ok := s.senders[n.Channel]
	if !ok {
		return fmt.Errorf("unknown channel %s", n.Channel)
	}

	if err := sender.Send(ctx, n.UserID, n.Subject, n.Message); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}

	return nil
}

// MarkSent records a successful delivery. Safe to call again on a
// record already in a terminal status.
func (s *Service) MarkSent(ctx context.Context, strategy retry.Strategy, id int64) error {
	if err := s.repo.MarkSent(ctx, id); err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}

	if err := s.cache.SetWithRetry(ctx, strategy, cacheKey(id), string(model.StatusSent)); err != nil {
		zlog.Logger.Error().Err(err).Int64("id", id).Msg("failed to cache notification status")
	}

	return nil
}

// MarkFailed records a failed delivery with its reason.
func (s *Service) MarkFailed(ctx context.Context, strategy retry.Strategy, id int64, reason string) error {
	if err := s.repo.MarkFailed(ctx, id, reason); err != nil {
		return fmt.Errorf("mark notification failed: %w", err)
	}

	if err := s.cache.SetWithRetry(ctx, strategy, cacheKey(id), string(model.StatusFailed)); err != nil {
		zlog.Logger.Error().Err(err).Int64("id", id).Msg("failed to cache notification status")
	}

	return nil
}

func cacheKey(id int64) string {
	return "notification:" + strconv.FormatInt(id, 10)
}
