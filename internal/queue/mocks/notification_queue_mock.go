package mocks

import (
	"context"

	"cluster-registration/internal/model"
	"cluster-registration/internal/queue"

	"github.com/stretchr/testify/mock"
)

type MockNotificationQueue struct {
	mock.Mock
}

func NewMockNotificationQueue(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockNotificationQueue {
	m := &MockNotificationQueue{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockNotificationQueue) PublishRegistration(ctx context.Context, notification *model.RegistrationNotification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

func (m *MockNotificationQueue) Subscribe(ctx context.Context) (<-chan queue.Delivery, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan queue.Delivery), args.Error(1)
}
