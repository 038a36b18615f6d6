package service_test

import (
	"testing"
	"time"

	cacheMocks "cluster-registration/internal/cache/mocks"
	"cluster-registration/internal/model"
	queueMocks "cluster-registration/internal/queue/mocks"
	repoMocks "cluster-registration/internal/repository/mocks"

	"github.com/stretchr/testify/mock"
)

type registrationMocks struct {
	db               *repoMocks.MockTxBeginner
	tx               *repoMocks.MockTx
	eventRepo        *repoMocks.MockEventRepository
	registrationRepo *repoMocks.MockRegistrationRepository
	eventCache       *cacheMocks.MockEventCache
	queue            *queueMocks.MockNotificationQueue
}

func setupRegistrationMocks(t *testing.T) *registrationMocks {
	t.Helper()
	return &registrationMocks{
		db:               repoMocks.NewMockTxBeginner(t),
		tx:               repoMocks.NewMockTx(t),
		eventRepo:        repoMocks.NewMockEventRepository(t),
		registrationRepo: repoMocks.NewMockRegistrationRepository(t),
		eventCache:       cacheMocks.NewMockEventCache(t),
		queue:            queueMocks.NewMockNotificationQueue(t),
	}
}

// expectTx 開啟交易；Rollback 由 defer 呼叫，commit 後也會被呼叫
func (m *registrationMocks) expectTx() {
	m.db.On("BeginTx", mock.Anything, mock.Anything).Return(m.tx, nil).Once()
	m.tx.On("Rollback", mock.Anything).Return(nil).Maybe()
}

func newTestEvent(id, capacityMax, capacityCurrent int, status model.EventStatus) *model.Event {
	start := time.Now().Add(24 * time.Hour)
	return &model.Event{
		ID:              id,
		Title:           "Cluster Meetup",
		StartAt:         start,
		EndAt:           start.Add(2 * time.Hour),
		CapacityMax:     capacityMax,
		CapacityCurrent: capacityCurrent,
		Status:          status,
	}
}
