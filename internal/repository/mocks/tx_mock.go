package mocks

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

// MockTx 只實作 Commit 與 Rollback，其餘 pgx.Tx 方法不應被 service 呼叫
type MockTx struct {
	pgx.Tx
	mock.Mock
}

func NewMockTx(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTx {
	m := &MockTx{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockTxBeginner struct {
	mock.Mock
}

func NewMockTxBeginner(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTxBeginner {
	m := &MockTxBeginner{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTxBeginner) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Tx), args.Error(1)
}
