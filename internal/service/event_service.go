package service

import (
	"context"

	"cluster-registration/internal/cache"
	"cluster-registration/internal/model"
	"cluster-registration/internal/repository"
	apperrors "cluster-registration/pkg/app_errors"
	"cluster-registration/pkg/logger"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type EventService interface {
	List(ctx context.Context) ([]*model.Event, error)
	GetByID(ctx context.Context, id int) (*model.Event, error)
	Create(ctx context.Context, params model.CreateEventParams) (*model.Event, error)
	// UpdateStatus 依狀態機轉換活動狀態，並讓快取失效
	UpdateStatus(ctx context.Context, id int, status model.EventStatus) (*model.Event, error)
}

type EventServiceImpl struct {
	db         repository.TxBeginner
	repo       repository.EventRepository
	eventCache cache.EventCache
}

func NewEventService(db repository.TxBeginner, repo repository.EventRepository, eventCache cache.EventCache) EventService {
	if eventCache == nil {
		eventCache = cache.NewNoopEventCache()
	}
	return &EventServiceImpl{db: db, repo: repo, eventCache: eventCache}
}

func (s *EventServiceImpl) List(ctx context.Context) ([]*model.Event, error) {
	return s.repo.List(ctx)
}

func (s *EventServiceImpl) GetByID(ctx context.Context, id int) (*model.Event, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *EventServiceImpl) Create(ctx context.Context, params model.CreateEventParams) (*model.Event, error) {
	if err := validateCreateEventParams(params); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, params)
}

func (s *EventServiceImpl) UpdateStatus(ctx context.Context, id int, status model.EventStatus) (*model.Event, error) {
	if !status.IsValid() {
		return nil, apperrors.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	current, err := s.repo.FindByIDWithLock(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(status) {
		return nil, apperrors.ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateStatus(ctx, tx, id, status)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if err := s.eventCache.Invalidate(ctx, id); err != nil {
		logger.WithComponent("cache").Warn("event cache invalidate failed", zap.Int("event_id", id), zap.Error(err))
	}
	return updated, nil
}
