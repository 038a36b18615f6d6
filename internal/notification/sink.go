package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cluster-registration/internal/model"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// 部分成功的投遞紀錄保留多久；超過後重送會再投遞到所有 sink
const defaultDeliveryRetention = time.Hour

// Sink 新報名通知的下游消費者（log、MQ、webhook）
type Sink interface {
	Name() string
	Deliver(ctx context.Context, notification *model.RegistrationNotification) error
}

type partialDelivery struct {
	done      map[int]struct{}
	updatedAt time.Time
}

// MultiSink 並行投遞到所有 sink，任何一個失敗都回傳合併後的錯誤。
// 同一則通知重送時，已成功的 sink 會被略過，只補送失敗的部分。
type MultiSink struct {
	sinks     []Sink
	retention time.Duration
	now       func() time.Time

	mu      sync.Mutex
	partial map[uuid.UUID]*partialDelivery
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{
		sinks:     sinks,
		retention: defaultDeliveryRetention,
		now:       time.Now,
		partial:   make(map[uuid.UUID]*partialDelivery),
	}
}

func (m *MultiSink) Name() string {
	return "multi"
}

func (m *MultiSink) Deliver(ctx context.Context, notification *model.RegistrationNotification) error {
	done := m.delivered(notification.ID)
	errs := make([]error, len(m.sinks))
	ok := make([]bool, len(m.sinks))

	var g errgroup.Group
	for i, sink := range m.sinks {
		if _, skip := done[i]; skip {
			continue
		}
		g.Go(func() error {
			if err := sink.Deliver(ctx, notification); err != nil {
				errs[i] = fmt.Errorf("%s: %w", sink.Name(), err)
				return nil
			}
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	err := errors.Join(errs...)
	m.record(notification.ID, ok, err == nil)
	return err
}

// delivered 回傳這則通知先前已成功的 sink，順便清掉過期紀錄
func (m *MultiSink) delivered(id uuid.UUID) map[int]struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, p := range m.partial {
		if now.Sub(p.updatedAt) > m.retention {
			delete(m.partial, key)
		}
	}

	p, found := m.partial[id]
	if !found {
		return nil
	}
	done := make(map[int]struct{}, len(p.done))
	for i := range p.done {
		done[i] = struct{}{}
	}
	return done
}

func (m *MultiSink) record(id uuid.UUID, ok []bool, complete bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if complete {
		delete(m.partial, id)
		return
	}
	p, found := m.partial[id]
	if !found {
		p = &partialDelivery{done: make(map[int]struct{})}
		m.partial[id] = p
	}
	for i, delivered := range ok {
		if delivered {
			p.done[i] = struct{}{}
		}
	}
	p.updatedAt = m.now()
}
