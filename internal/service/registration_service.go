package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cluster-registration/internal/cache"
	"cluster-registration/internal/model"
	"cluster-registration/internal/queue"
	"cluster-registration/internal/repository"
	apperrors "cluster-registration/pkg/app_errors"
	"cluster-registration/pkg/logger"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("cluster-registration/internal/service")

type RegistrationService interface {
	// 報名活動：業務結果（ok/exists/full/not_found/validation_error）以 result 回傳，
	// 只有資料庫等非預期錯誤才回傳 error
	RegisterForEvent(ctx context.Context, input model.RegisterInput) (*model.RegistrationResult, error)
	GetByID(ctx context.Context, id int) (*model.Registration, error)
	ListByEvent(ctx context.Context, eventID int) ([]*model.Registration, error)
	// 審核報名：pending -> confirmed / rejected
	Review(ctx context.Context, id int, status model.RegistrationStatus) (*model.Registration, error)
	// 等待背景中的通知發送完成（關機用）
	WaitNotifications()
}

type RegistrationServiceImpl struct {
	db                     repository.TxBeginner
	eventRepository        repository.EventRepository
	registrationRepository repository.RegistrationRepository
	eventCache             cache.EventCache
	notificationQueue      queue.NotificationQueue
	publishTimeout         time.Duration
	now                    func() time.Time
	inflight               sync.WaitGroup
}

func NewRegistrationService(
	db repository.TxBeginner,
	eventRepository repository.EventRepository,
	registrationRepository repository.RegistrationRepository,
	eventCache cache.EventCache,
	notificationQueue queue.NotificationQueue,
	publishTimeout time.Duration,
) RegistrationService {
	if eventCache == nil {
		eventCache = cache.NewNoopEventCache()
	}
	if publishTimeout <= 0 {
		publishTimeout = 3 * time.Second
	}
	return &RegistrationServiceImpl{
		db:                     db,
		eventRepository:        eventRepository,
		registrationRepository: registrationRepository,
		eventCache:             eventCache,
		notificationQueue:      notificationQueue,
		publishTimeout:         publishTimeout,
		now:                    time.Now,
	}
}

func (s *RegistrationServiceImpl) RegisterForEvent(ctx context.Context, input model.RegisterInput) (result *model.RegistrationResult, err error) {
	ctx, span := tracer.Start(ctx, "RegistrationService.RegisterForEvent")
	defer func() {
		if result != nil {
			span.SetAttributes(attribute.String("registration.outcome", string(result.Outcome)))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	// 1. 驗證輸入
	input = normalizeRegisterInput(input)
	if verr := validateRegisterInput(input); verr != nil {
		return &model.RegistrationResult{Outcome: model.OutcomeValidationError, Validation: verr}, nil
	}
	span.SetAttributes(attribute.Int("event.id", input.EventID))

	// 2. 活動是否存在且可報名
	if input.EventID > model.MaxEventID {
		return &model.RegistrationResult{Outcome: model.OutcomeNotFound}, nil
	}
	event, err := s.getEvent(ctx, input.EventID)
	if err != nil {
		if errors.Is(err, apperrors.ErrEventNotFound) {
			return &model.RegistrationResult{Outcome: model.OutcomeNotFound}, nil
		}
		return nil, apperrors.NewStorageError("get event", err)
	}
	if !event.IsRegistrable() {
		return &model.RegistrationResult{Outcome: model.OutcomeNotFound, Event: event}, nil
	}

	// 3. 重複報名預檢，需在名額預檢之前：拿到最後一個名額的人重送仍應得到 exists
	existing, err := s.registrationRepository.FindExisting(ctx, input.EventID, input.ContactEmail, input.UserID)
	if err == nil {
		return &model.RegistrationResult{Outcome: model.OutcomeExists, Event: event, Existing: existing}, nil
	}
	if !errors.Is(err, apperrors.ErrRegistrationNotFound) {
		return nil, apperrors.NewStorageError("find existing registration", err)
	}

	// 4. 名額預檢（提早結束用，權威判斷在交易內的條件式 UPDATE）
	if event.IsFull() {
		return &model.RegistrationResult{Outcome: model.OutcomeFull, Event: event}, nil
	}

	// 5. 交易：寫入報名 + 增加名額
	created, updated, err := s.commitRegistration(ctx, input)
	switch {
	case errors.Is(err, apperrors.ErrAlreadyRegistered):
		// 併發下同一個 email 已由另一筆交易寫入，以唯一索引為準
		existing, ferr := s.registrationRepository.FindExisting(ctx, input.EventID, input.ContactEmail, input.UserID)
		if ferr != nil {
			return nil, apperrors.NewStorageError("find conflicting registration", ferr)
		}
		return &model.RegistrationResult{Outcome: model.OutcomeExists, Event: event, Existing: existing}, nil
	case errors.Is(err, apperrors.ErrCapacityExceeded):
		s.invalidateEvent(ctx, input.EventID)
		return &model.RegistrationResult{Outcome: model.OutcomeFull, Event: event}, nil
	case err != nil:
		return nil, apperrors.NewStorageError("commit registration", err)
	}

	// 6. 提交後：快取失效、非同步通知（失敗不影響報名結果）
	s.invalidateEvent(ctx, updated.ID)
	s.dispatchNotification(ctx, model.NewRegistrationNotification(updated, created))

	return &model.RegistrationResult{
		Outcome:           model.OutcomeOK,
		Registration:      created,
		Event:             updated,
		RemainingCapacity: updated.RemainingCapacity(),
	}, nil
}

func (s *RegistrationServiceImpl) commitRegistration(ctx context.Context, input model.RegisterInput) (*model.Registration, *model.Event, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	registration := &model.Registration{
		EventID:      input.EventID,
		CompanyID:    input.CompanyID,
		UserID:       input.UserID,
		ContactName:  input.ContactName,
		ContactEmail: input.ContactEmail,
		ContactPhone: input.ContactPhone,
		CompanyName:  input.CompanyName,
		Comments:     input.Comments,
		Status:       model.RegistrationStatusPending,
		RegisteredAt: s.now().UTC(),
	}

	created, err := s.registrationRepository.Create(ctx, tx, registration)
	if err != nil {
		return nil, nil, err
	}

	updated, err := s.eventRepository.IncrementCapacity(ctx, tx, input.EventID, 1)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}

	return created, updated, nil
}

// getEvent 先讀快取，miss 或快取錯誤時讀資料庫並回填
func (s *RegistrationServiceImpl) getEvent(ctx context.Context, eventID int) (*model.Event, error) {
	log := logger.WithComponent("cache")

	event, err := s.eventCache.Get(ctx, eventID)
	if err == nil {
		return event, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		log.Warn("event cache get failed", zap.Int("event_id", eventID), zap.Error(err))
	}

	event, err = s.eventRepository.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if err := s.eventCache.Set(ctx, event); err != nil {
		log.Warn("event cache set failed", zap.Int("event_id", eventID), zap.Error(err))
	}
	return event, nil
}

func (s *RegistrationServiceImpl) invalidateEvent(ctx context.Context, eventID int) {
	if err := s.eventCache.Invalidate(ctx, eventID); err != nil {
		logger.WithComponent("cache").Warn("event cache invalidate failed", zap.Int("event_id", eventID), zap.Error(err))
	}
}

// dispatchNotification 在背景 goroutine 發送通知：不延遲回應，失敗只記錄
// 使用 context.WithoutCancel，請求結束後仍可送出
func (s *RegistrationServiceImpl) dispatchNotification(ctx context.Context, notification *model.RegistrationNotification) {
	if s.notificationQueue == nil {
		return
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		log := logger.WithComponent("service").With(
			zap.String("notification_id", notification.ID.String()),
			zap.Int("registration_id", notification.RegistrationID),
			zap.Int("event_id", notification.EventID),
		)
		defer func() {
			if r := recover(); r != nil {
				log.Error("notification publish panicked", zap.Any("panic", r))
			}
		}()

		publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
		defer cancel()

		if err := s.notificationQueue.PublishRegistration(publishCtx, notification); err != nil {
			log.Warn("failed to publish registration notification", zap.Error(err))
			return
		}
		log.Debug("registration notification published")
	}()
}

func (s *RegistrationServiceImpl) WaitNotifications() {
	s.inflight.Wait()
}

func (s *RegistrationServiceImpl) GetByID(ctx context.Context, id int) (*model.Registration, error) {
	return s.registrationRepository.FindByID(ctx, id)
}

func (s *RegistrationServiceImpl) ListByEvent(ctx context.Context, eventID int) ([]*model.Registration, error) {
	if _, err := s.eventRepository.FindByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.registrationRepository.ListByEventID(ctx, eventID)
}

// Review 不會調整活動名額：capacity_current 代表累計報名數
func (s *RegistrationServiceImpl) Review(ctx context.Context, id int, status model.RegistrationStatus) (*model.Registration, error) {
	if status != model.RegistrationStatusConfirmed && status != model.RegistrationStatusRejected {
		return nil, apperrors.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	current, err := s.registrationRepository.FindByIDWithLock(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(status) {
		return nil, apperrors.ErrInvalidStatusTransition
	}

	updated, err := s.registrationRepository.UpdateStatus(ctx, tx, id, status)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}
