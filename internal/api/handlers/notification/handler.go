package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/nurtech/notify-hub/internal/api/dto"
	"github.com/nurtech/notify-hub/internal/api/respond"
	"github.com/nurtech/notify-hub/internal/config"
	"github.com/nurtech/notify-hub/internal/model"
	"github.com/nurtech/notify-hub/internal/rabbitmq/queue"
	"github.com/nurtech/notify-hub/internal/repository/notification"
)

//go:generate mockgen -source=handler.go -destination=../../../mocks/api/handlers/notification/mock.go -package=mocks

type notifService interface {
	Create(ctx context.Context, strategy retry.Strategy, n model.Notification) (model.Notification, error)
	Get(ctx context.Context, id int64) (model.Notification, error)
	List(ctx context.Context, f model.ListFilter) ([]model.Notification, error)
}

// ListResponse is the envelope returned by the list endpoint.
type ListResponse struct {
	Notifications []model.Notification `json:"notifications"`
	Count         int                  `json:"count"`
}

type Handler struct {
	service   notifService
	validator *validator.Validate
	cfg       *config.Config
}

func NewHandler(
	s notifService,
	v *validator.Validate,
	cfg *config.Config,
) *Handler {
	return &Handler{service: s, validator: v, cfg: cfg}
}

// Create accepts a notification, persists it as pending and enqueues
// it for delivery. Validation faults are the client's; a broker
// outage is a retryable server fault.
func (h *Handler) Create(c *ginext.Context) {
	var req dto.CreateRequest

	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to decode request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	if err := h.validator.Struct(req); err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to validate request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("validation error: %s", err.Error()))
		return
	}

	notif := model.Notification{
		UserID:  req.UserID,
		Type:    req.Type,
		Channel: model.Channel(req.Channel),
		Subject: req.Subject,
		Message: req.Message,
	}

	created, err := h.service.Create(c.Request.Context(), h.cfg.Retry, notif)
	if err != nil {
		if errors.Is(err, queue.ErrQueueUnavailable) {
			zlog.Logger.Error().Err(err).Msg("notification queue unavailable")
			respond.Fail(c.Writer, http.StatusServiceUnavailable, fmt.Errorf("queue unavailable, retry later"))
			return
		}
		if errors.Is(err, model.ErrInvalidChannel) ||
			errors.Is(err, model.ErrEmptyUserID) ||
			errors.Is(err, model.ErrEmptyType) ||
			errors.Is(err, model.ErrEmptyMessage) {
			respond.Fail(c.Writer, http.StatusBadRequest, err)
			return
		}

		zlog.Logger.Error().Err(err).Str("user_id", notif.UserID).Msg("failed to create notification")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.Created(c.Writer, created)
}

// Get returns the full record by id.
func (h *Handler) Get(c *ginext.Context) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("id", idStr).Msg("failed to parse id")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid id"))
		return
	}

	n, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, notification.ErrNotificationNotFound) {
			respond.Fail(c.Writer, http.StatusNotFound, fmt.Errorf("notification not found"))
			return
		}

		zlog.Logger.Error().Err(err).Int64("id", id).Msg("failed to get notification")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, n)
}

// List returns notifications newest first, optionally filtered by
// user_id, paginated by limit/offset.
func (h *Handler) List(c *ginext.Context) {
	filter := model.ListFilter{UserID: c.Query("user_id")}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid limit"))
			return
		}
		filter.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid offset"))
			return
		}
		filter.Offset = offset
	}

	notifications, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to list notifications")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, ListResponse{
		Notifications: notifications,
		Count:         len(notifications),
	})
}

// Health reports process liveness.
func (h *Handler) Health(c *ginext.Context) {
	respond.OK(c.Writer, map[string]string{"status": "ok"})
}
