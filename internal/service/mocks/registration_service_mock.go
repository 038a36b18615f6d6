package mocks

import (
	"context"

	"cluster-registration/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockRegistrationService struct {
	mock.Mock
}

func NewMockRegistrationService(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockRegistrationService {
	m := &MockRegistrationService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockRegistrationService) RegisterForEvent(ctx context.Context, input model.RegisterInput) (*model.RegistrationResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RegistrationResult), args.Error(1)
}

func (m *MockRegistrationService) GetByID(ctx context.Context, id int) (*model.Registration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Registration), args.Error(1)
}

func (m *MockRegistrationService) ListByEvent(ctx context.Context, eventID int) ([]*model.Registration, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Registration), args.Error(1)
}

func (m *MockRegistrationService) Review(ctx context.Context, id int, status model.RegistrationStatus) (*model.Registration, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Registration), args.Error(1)
}

func (m *MockRegistrationService) WaitNotifications() {
	m.Called()
}
