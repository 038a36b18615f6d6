package worker

import (
	"context"
	"time"

	"cluster-registration/internal/notification"
	"cluster-registration/internal/queue"
	"cluster-registration/pkg/logger"

	"go.uber.org/zap"
)

type NotificationWorker interface {
	// 訂閱通知隊列並投遞到 sink，ctx 結束後停止
	Start(ctx context.Context) error
	// 等待投遞迴圈結束
	Done() <-chan struct{}
}

type NotificationWorkerImpl struct {
	sink           notification.Sink
	queue          queue.NotificationQueue
	deliverTimeout time.Duration
	done           chan struct{}
}

func NewNotificationWorker(sink notification.Sink, queue queue.NotificationQueue, deliverTimeout time.Duration) NotificationWorker {
	if deliverTimeout <= 0 {
		deliverTimeout = 10 * time.Second
	}
	return &NotificationWorkerImpl{
		sink:           sink,
		queue:          queue,
		deliverTimeout: deliverTimeout,
		done:           make(chan struct{}),
	}
}

func (w *NotificationWorkerImpl) Start(ctx context.Context) error {
	msgs, err := w.queue.Subscribe(ctx)
	if err != nil {
		close(w.done)
		return err
	}

	go func() {
		defer close(w.done)
		log := logger.WithComponent("worker")
		for msg := range msgs {
			deliverCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.deliverTimeout)
			err := w.sink.Deliver(deliverCtx, msg.Data)
			cancel()

			if err != nil {
				// sink 暫時不可用時重試，由隊列決定重試上限
				log.Warn("deliver notification failed",
					zap.String("notification_id", msg.Data.ID.String()),
					zap.Int("registration_id", msg.Data.RegistrationID),
					zap.Error(err))
				msg.Nack(true)
				continue
			}
			msg.Ack()
		}
	}()
	return nil
}

func (w *NotificationWorkerImpl) Done() <-chan struct{} {
	return w.done
}
