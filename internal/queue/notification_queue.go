package queue

import (
	"context"
	"errors"

	"cluster-registration/internal/model"
	"cluster-registration/pkg/logger"

	"go.uber.org/zap"
)

var ErrQueueFull = errors.New("notification queue is full")

type Delivery struct {
	Data *model.RegistrationNotification
	Ack  func()
	Nack func(requeue bool)
}

type NotificationQueue interface {
	// 發送報名通知到隊列
	PublishRegistration(ctx context.Context, notification *model.RegistrationNotification) error
	// 訂閱通知隊列
	Subscribe(ctx context.Context) (<-chan Delivery, error)
}

type memoryMessage struct {
	notification *model.RegistrationNotification
	attempts     int
}

type MemoryNotificationQueueImpl struct {
	// 使用 Go channel 作為行程內的隊列
	ch         chan memoryMessage
	maxRetries int
}

func NewMemoryNotificationQueue(bufferSize int, maxRetries int) NotificationQueue {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &MemoryNotificationQueueImpl{
		ch:         make(chan memoryMessage, bufferSize),
		maxRetries: maxRetries,
	}
}

// PublishRegistration 隊列滿時等到 ctx 結束為止，不會無限阻塞
func (q *MemoryNotificationQueueImpl) PublishRegistration(ctx context.Context, notification *model.RegistrationNotification) error {
	select {
	case q.ch <- memoryMessage{notification: notification}:
		return nil
	case <-ctx.Done():
		return errors.Join(ErrQueueFull, ctx.Err())
	}
}

func (q *MemoryNotificationQueueImpl) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-q.ch:
				select {
				case out <- q.newDelivery(msg):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (q *MemoryNotificationQueueImpl) newDelivery(msg memoryMessage) Delivery {
	return Delivery{
		Data: msg.notification,
		Ack:  func() {},
		Nack: func(requeue bool) {
			if !requeue {
				return
			}
			msg.attempts++
			if msg.attempts >= q.maxRetries {
				logger.WithComponent("mq").Warn("discard notification after max retries",
					zap.String("notification_id", msg.notification.ID.String()),
					zap.Int("retries", msg.attempts))
				return
			}
			// 重新排入；隊列已滿就放棄，通知本來就是 best-effort
			select {
			case q.ch <- msg:
			default:
				logger.WithComponent("mq").Warn("queue full, drop requeued notification",
					zap.String("notification_id", msg.notification.ID.String()))
			}
		},
	}
}
