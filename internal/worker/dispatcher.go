package worker

import (
	"context"
	"sync"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/nurtech/notify-hub/internal/model"
	"github.com/nurtech/notify-hub/internal/rabbitmq/queue"
)

//go:generate mockgen -source=dispatcher.go -destination=../mocks/worker/mock.go -package=mocks

type notificationConsumer interface {
	Consume(ctx context.Context, out chan<- queue.Message, strategy retry.Strategy) error
}

type messageHandler interface {
	HandleMessage(ctx context.Context, msg queue.Message, strategy retry.Strategy)
}

type notificationService interface {
	Status(ctx context.Context, strategy retry.Strategy, id int64) (model.Status, error)
}

// Dispatcher drains the queue with a small pool of workers. Each
// worker is an independent loop; racing on the same id is safe because
// the terminal-status skip and the mark operations are idempotent.
type Dispatcher struct {
	queue   notificationConsumer
	handler messageHandler
	service notificationService
}

func NewDispatcher(q notificationConsumer, h messageHandler, s notificationService) *Dispatcher {
	return &Dispatcher{
		queue:   q,
		handler: h,
		service: s,
	}
}

// Run consumes the queue until ctx is cancelled. Cancellation takes
// effect between items, never abandoning an in-flight delivery. Run
// returns once every worker has drained.
func (d *Dispatcher) Run(ctx context.Context, strategy retry.Strategy, workerCount int) {
	var wg sync.WaitGroup
	msgChan := make(chan queue.Message, workerCount*10)

	go func() {
		if err := d.queue.Consume(ctx, msgChan, strategy); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to consume messages")
		}
	}()

	wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go func(id int) {
			defer wg.Done()

			zlog.Logger.Printf("worker-%d started", id)

			for {
				select {
				case <-ctx.Done():
					zlog.Logger.Printf("worker-%d shutting down", id)
					return
				case msg, ok := <-msgChan:
					if !ok {
						zlog.Logger.Printf("worker-%d channel closed, shutting down", id)
						return
					}

					// Cheap pre-check on the cached status; the handler
					// re-reads the record before actually sending.
					status, err := d.service.Status(ctx, strategy, msg.ID)
					if err != nil {
						zlog.Logger.Printf("failed to get status for %d: %v", msg.ID, err)
						continue
					}

					if status.Terminal() {
						zlog.Logger.Printf("notification %d already %s, skipping", msg.ID, status)
						continue
					}

					d.handler.HandleMessage(ctx, msg, strategy)
				}
			}
		}(i)
	}

	<-ctx.Done()
	wg.Wait()
	zlog.Logger.Print("dispatcher stopped")
}
