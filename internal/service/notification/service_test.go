package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/retry"

	mocks "github.com/nurtech/notify-hub/internal/mocks/service/notification"
	"github.com/nurtech/notify-hub/internal/model"
	"github.com/nurtech/notify-hub/internal/rabbitmq/queue"
)

type serviceMocks struct {
	repo      *mocks.MocknotificationRepository
	publisher *mocks.MocknotificationPublisher
	cache     *mocks.Mockcache
	sender    *mocks.MockSender
}

func setupService(t *testing.T) (*Service, serviceMocks) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	m := serviceMocks{
		repo:      mocks.NewMocknotificationRepository(ctrl),
		publisher: mocks.NewMocknotificationPublisher(ctrl),
		cache:     mocks.NewMockcache(ctrl),
		sender:    mocks.NewMockSender(ctrl),
	}

	senders := map[model.Channel]Sender{
		model.ChannelEmail: m.sender,
	}

	return NewService(m.repo, m.publisher, senders, m.cache), m
}

var strategy = retry.Strategy{Attempts: 1, Delay: time.Millisecond}

func TestService_Create_EnqueuesAfterInsert(t *testing.T) {
	svc, m := setupService(t)

	in := model.Notification{
		UserID:  "u1",
		Type:    "welcome",
		Channel: model.ChannelEmail,
		Message: "hi",
	}
	stored := in
	stored.ID = 42
	stored.Status = model.StatusPending
	stored.CreatedAt = time.Now()

	gomock.InOrder(
		m.repo.EXPECT().Create(gomock.Any(), in).Return(stored, nil),
		m.cache.EXPECT().SetWithRetry(gomock.Any(), strategy, "notification:42", "pending").Return(nil),
		m.publisher.EXPECT().Publish(queue.Message{ID: 42}, strategy).Return(nil),
	)

	created, err := svc.Create(context.Background(), strategy, in)
	require.NoError(t, err)
	assert.Equal(t, int64(42), created.ID)
	assert.Equal(t, model.StatusPending, created.Status)
	assert.Nil(t, created.SentAt)
}

func TestService_Create_QueueUnavailable(t *testing.T) {
	svc, m := setupService(t)

	in := model.Notification{
		UserID:  "u1",
		Type:    "welcome",
		Channel: model.ChannelEmail,
		Message: "hi",
	}
	stored := in
	stored.ID = 43
	stored.Status = model.StatusPending

	m.repo.EXPECT().Create(gomock.Any(), in).Return(stored, nil)
	m.cache.EXPECT().SetWithRetry(gomock.Any(), strategy, "notification:43", "pending").Return(nil)
	m.publisher.EXPECT().
		Publish(queue.Message{ID: 43}, strategy).
		Return(queue.ErrQueueUnavailable)

	_, err := svc.Create(context.Background(), strategy, in)
	assert.ErrorIs(t, err, queue.ErrQueueUnavailable)
}

func TestService_Create_RepoError(t *testing.T) {
	svc, m := setupService(t)

	in := model.Notification{UserID: "u1", Type: "welcome", Channel: "pager", Message: "hi"}

	m.repo.EXPECT().Create(gomock.Any(), in).Return(model.Notification{}, model.ErrInvalidChannel)

	_, err := svc.Create(context.Background(), strategy, in)
	assert.ErrorIs(t, err, model.ErrInvalidChannel)
}

func TestService_Status_CacheHit(t *testing.T) {
	svc, m := setupService(t)

	m.cache.EXPECT().
		GetWithRetry(gomock.Any(), strategy, "notification:7").
		Return("sent", nil)

	status, err := svc.Status(context.Background(), strategy, 7)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, status)
}

func TestService_Status_CacheMissFallsBackToRepo(t *testing.T) {
	svc, m := setupService(t)

	m.cache.EXPECT().
		GetWithRetry(gomock.Any(), strategy, "notification:7").
		Return("", redis.Nil)
	m.repo.EXPECT().
		Get(gomock.Any(), int64(7)).
		Return(model.Notification{ID: 7, Status: model.StatusPending}, nil)
	m.cache.EXPECT().
		SetWithRetry(gomock.Any(), strategy, "notification:7", "pending").
		Return(nil)

	status, err := svc.Status(context.Background(), strategy, 7)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, status)
}

func TestService_Send_UnknownChannel(t *testing.T) {
	svc, _ := setupService(t)

	err := svc.Send(context.Background(), model.Notification{
		ID:      7,
		UserID:  "u1",
		Channel: model.ChannelBot, // not registered in this fixture
		Message: "hi",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown channel")
}

func TestService_Send_DelegatesToSender(t *testing.T) {
	svc, m := setupService(t)

	m.sender.EXPECT().
		Send(gomock.Any(), "u1", "Hello", "hi").
		Return(nil)

	err := svc.Send(context.Background(), model.Notification{
		UserID:  "u1",
		Channel: model.ChannelEmail,
		Subject: "Hello",
		Message: "hi",
	})
	assert.NoError(t, err)
}

func TestService_MarkSent_UpdatesCache(t *testing.T) {
	svc, m := setupService(t)

	gomock.InOrder(
		m.repo.EXPECT().MarkSent(gomock.Any(), int64(7)).Return(nil),
		m.cache.EXPECT().SetWithRetry(gomock.Any(), strategy, "notification:7", "sent").Return(nil),
	)

	assert.NoError(t, svc.MarkSent(context.Background(), strategy, 7))
}

func TestService_MarkFailed_UpdatesCache(t *testing.T) {
	svc, m := setupService(t)

	gomock.InOrder(
		m.repo.EXPECT().MarkFailed(gomock.Any(), int64(7), "smtp timeout").Return(nil),
		m.cache.EXPECT().SetWithRetry(gomock.Any(), strategy, "notification:7", "failed").Return(nil),
	)

	assert.NoError(t, svc.MarkFailed(context.Background(), strategy, 7, "smtp timeout"))
}

func TestService_MarkSent_RepoError(t *testing.T) {
	svc, m := setupService(t)

	repoErr := errors.New("db down")
	m.repo.EXPECT().MarkSent(gomock.Any(), int64(7)).Return(repoErr)

	err := svc.MarkSent(context.Background(), strategy, 7)
	assert.ErrorIs(t, err, repoErr)
}
