package notification

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/retry"

	"github.com/nurtech/notify-hub/internal/api/dto"
	"github.com/nurtech/notify-hub/internal/config"
	mocks "github.com/nurtech/notify-hub/internal/mocks/api/handlers/notification"
	"github.com/nurtech/notify-hub/internal/model"
	"github.com/nurtech/notify-hub/internal/rabbitmq/queue"
	"github.com/nurtech/notify-hub/internal/repository/notification"
)

func setupHandler(t *testing.T) (*Handler, *mocks.MocknotifService, *config.Config) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockService := mocks.NewMocknotifService(ctrl)
	cfg := &config.Config{Retry: retry.Strategy{Attempts: 1}}
	validate := validator.New()
	handler := NewHandler(mockService, validate, cfg)

	return handler, mockService, cfg
}

func TestHandler_Create_Success(t *testing.T) {
	handler, mockService, cfg := setupHandler(t)

	reqBody := dto.CreateRequest{
		UserID:  "u1",
		Type:    "welcome",
		Channel: "email",
		Subject: "Hello",
		Message: "hi",
	}

	bodyBytes, _ := json.Marshal(reqBody)
	req := httptest.NewRequest(http.MethodPost, "/api/notifications", bytes.NewReader(bodyBytes))
	w := httptest.NewRecorder()

	c, _ := gin.CreateTestContext(w)
	c.Request = req

	notif := model.Notification{
		UserID:  reqBody.UserID,
		Type:    reqBody.Type,
		Channel: model.ChannelEmail,
		Subject: reqBody.Subject,
		Message: reqBody.Message,
	}

	created := notif
	created.ID = 42
	created.Status = model.StatusPending
	created.CreatedAt = time.Now()

	mockService.EXPECT().
		Create(gomock.Any(), cfg.Retry, notif).
		Return(created, nil)

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, w.Result().StatusCode)

	var resp struct {
		Data model.Notification `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(42), resp.Data.ID)
	assert.Equal(t, model.StatusPending, resp.Data.Status)
	assert.Nil(t, resp.Data.SentAt)
}

func TestHandler_Create_UnknownChannel(t *testing.T) {
	handler, _, _ := setupHandler(t)

	// "pager" is outside the closed channel set; the service must not
	// be called and no record may be created.
	body := []byte(`{"user_id":"u1","type":"welcome","channel":"pager","message":"hi"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/notifications", bytes.NewReader(body))
	w := httptest.NewRecorder()

	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestHandler_Create_MissingMessage(t *testing.T) {
	handler, _, _ := setupHandler(t)

	body := []byte(`{"user_id":"u1","type":"welcome","channel":"email"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/notifications", bytes.NewReader(body))
	w := httptest.NewRecorder()

	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestHandler_Create_QueueUnavailable(t *testing.T) {
	handler, mockService, cfg := setupHandler(t)

	reqBody := dto.CreateRequest{
		UserID:  "u1",
		Type:    "welcome",
		Channel: "bot",
		Message: "hi",
	}

	bodyBytes, _ := json.Marshal(reqBody)
	req := httptest.NewRequest(http.MethodPost, "/api/notifications", bytes.NewReader(bodyBytes))
	w := httptest.NewRecorder()

	c, _ := gin.CreateTestContext(w)
	c.Request = req

	mockService.EXPECT().
		Create(gomock.Any(), cfg.Retry, gomock.Any()).
		Return(model.Notification{}, queue.ErrQueueUnavailable)

	handler.Create(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Result().StatusCode)
}

func TestHandler_Get_Success(t *testing.T) {
	handler, mockService, _ := setupHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/notifications/7", nil)
	w := httptest.NewRecorder()

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "7"}}

	sentAt := time.Now()
	mockService.EXPECT().
		Get(gomock.Any(), int64(7)).
		Return(model.Notification{ID: 7, Status: model.StatusSent, SentAt: &sentAt}, nil)

	handler.Get(c)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
}

func TestHandler_Get_InvalidID(t *testing.T) {
	handler, _, _ := setupHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/notifications/abc", nil)
	w := httptest.NewRecorder()

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	handler.Get(c)

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestHandler_Get_NotFound(t *testing.T) {
	handler, mockService, _ := setupHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/notifications/404", nil)
	w := httptest.NewRecorder()

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "404"}}

	mockService.EXPECT().
		Get(gomock.Any(), int64(404)).
		Return(model.Notification{}, notification.ErrNotificationNotFound)

	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Result().StatusCode)
}

func TestHandler_List_Success(t *testing.T) {
	handler, mockService, _ := setupHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/notifications?user_id=u1&limit=1&offset=0", nil)
	w := httptest.NewRecorder()

	c, _ := gin.CreateTestContext(w)
	c.Request = req

	mockService.EXPECT().
		List(gomock.Any(), model.ListFilter{UserID: "u1", Limit: 1}).
		Return([]model.Notification{{ID: 2, UserID: "u1", Message: "latest"}}, nil)

	handler.List(c)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)

	var resp struct {
		Data ListResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.Count)
	require.Len(t, resp.Data.Notifications, 1)
	assert.Equal(t, int64(2), resp.Data.Notifications[0].ID)
}

func TestHandler_List_InvalidLimit(t *testing.T) {
	handler, _, _ := setupHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/notifications?limit=abc", nil)
	w := httptest.NewRecorder()

	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestHandler_Health(t *testing.T) {
	handler, _, _ := setupHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Health(c)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
