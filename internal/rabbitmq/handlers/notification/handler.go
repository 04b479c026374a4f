package notification

import (
	"context"
	"errors"
	"time"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/nurtech/notify-hub/internal/model"
	"github.com/nurtech/notify-hub/internal/rabbitmq/queue"
	"github.com/nurtech/notify-hub/internal/repository/notification"
)

//go:generate mockgen -source=handler.go -destination=../../../mocks/rabbitmq/handlers/notification/mock.go -package=mocks

type notificationService interface {
	Get(ctx context.Context, id int64) (model.Notification, error)
	Send(ctx context.Context, n model.Notification) error
	MarkSent(ctx context.Context, strategy retry.Strategy, id int64) error
	MarkFailed(ctx context.Context, strategy retry.Strategy, id int64, reason string) error
}

// Handler drives a single dequeued work item to a terminal status.
// Every failure mode is logged and absorbed: one bad item must never
// take the dispatcher down.
type Handler struct {
	service     notificationService
	sendTimeout time.Duration
}

func NewHandler(svc notificationService, sendTimeout time.Duration) *Handler {
	return &Handler{
		service:     svc,
		sendTimeout: sendTimeout,
	}
}

// HandleMessage loads the authoritative record for the dequeued id,
// skips records that are missing or already terminal, performs one
// bounded delivery attempt and writes the outcome.
func (h *Handler) HandleMessage(ctx context.Context, msg queue.Message, strategy retry.Strategy) {
	n, err := h.service.Get(ctx, msg.ID)
	if err != nil {
		if errors.Is(err, notification.ErrNotificationNotFound) {
			// Stale id or a record write that never committed.
			zlog.Logger.Warn().Int64("id", msg.ID).Msg("notification not found, skipping")
			return
		}

		zlog.Logger.Error().Err(err).Int64("id", msg.ID).Msg("failed to load notification")
		return
	}

	if n.Status.Terminal() {
		// Redelivery of an already processed record is a no-op.
		zlog.Logger.Info().Int64("id", n.ID).Str("status", string(n.Status)).Msg("notification already processed, skipping")
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, h.sendTimeout)
	err = h.service.Send(sendCtx, n)
	cancel()

	if err != nil {
		zlog.Logger.Warn().Err(err).Int64("id", n.ID).Str("channel", string(n.Channel)).Msg("notification delivery failed")

		if markErr := h.service.MarkFailed(ctx, strategy, n.ID, err.Error()); markErr != nil {
			zlog.Logger.Error().Err(markErr).Int64("id", n.ID).Msg("failed to set status=failed")
		}
		return
	}

	zlog.Logger.Info().Int64("id", n.ID).Str("channel", string(n.Channel)).Msg("notification sent")

	if markErr := h.service.MarkSent(ctx, strategy, n.ID); markErr != nil {
		zlog.Logger.Error().Err(markErr).Int64("id", n.ID).Msg("failed to set status=sent")
	}
}
