package repository

import (
	"context"
	"errors"
	"time"

	"cluster-registration/internal/model"
	apperrors "cluster-registration/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventColumns = `id, title, description, start_at, end_at, location,
		capacity_max, capacity_current, status, price, created_at, updated_at`

type EventRepository interface {
	Create(ctx context.Context, params model.CreateEventParams) (*model.Event, error)
	List(ctx context.Context) ([]*model.Event, error)
	FindByID(ctx context.Context, id int) (*model.Event, error)

	// Transaction methods
	FindByIDWithLock(ctx context.Context, tx pgx.Tx, id int) (*model.Event, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id int, status model.EventStatus) (*model.Event, error)
	// IncrementCapacity 以單一條件式 UPDATE 增加已報名人數，超過上限時回傳 ErrCapacityExceeded
	IncrementCapacity(ctx context.Context, tx pgx.Tx, id int, delta int) (*model.Event, error)
}

type EventRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) EventRepository {
	return &EventRepositoryImpl{
		pool: pool,
	}
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var event model.Event
	err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.StartAt,
		&event.EndAt,
		&event.Location,
		&event.CapacityMax,
		&event.CapacityCurrent,
		&event.Status,
		&event.Price,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *EventRepositoryImpl) Create(ctx context.Context, params model.CreateEventParams) (*model.Event, error) {
	query := `
		INSERT INTO events (title, description, start_at, end_at, location, capacity_max, status, price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + eventColumns

	return scanEvent(r.pool.QueryRow(ctx, query,
		params.Title, params.Description, params.StartAt, params.EndAt,
		params.Location, params.CapacityMax, model.EventStatusScheduled, params.Price,
	))
}

func (r *EventRepositoryImpl) List(ctx context.Context) ([]*model.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		ORDER BY start_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*model.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

func (r *EventRepositoryImpl) FindByID(ctx context.Context, id int) (*model.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE id = $1
	`

	event, err := scanEvent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, err
	}

	return event, nil
}

func (r *EventRepositoryImpl) FindByIDWithLock(ctx context.Context, tx pgx.Tx, id int) (*model.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE id = $1
		FOR UPDATE
	`

	event, err := scanEvent(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, err
	}

	return event, nil
}

func (r *EventRepositoryImpl) UpdateStatus(ctx context.Context, tx pgx.Tx, id int, status model.EventStatus) (*model.Event, error) {
	query := `
		UPDATE events
		SET status = $1, updated_at = $2
		WHERE id = $3
		RETURNING ` + eventColumns

	event, err := scanEvent(tx.QueryRow(ctx, query, status, time.Now().UTC(), id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, err
	}

	return event, nil
}

func (r *EventRepositoryImpl) IncrementCapacity(ctx context.Context, tx pgx.Tx, id int, delta int) (*model.Event, error) {
	if delta <= 0 {
		return nil, apperrors.ErrInvalidInput
	}

	// 條件寫在 WHERE 裡：併發的交易會在 row lock 釋放後重新評估條件，不會超賣
	query := `
		UPDATE events
		SET capacity_current = capacity_current + $1, updated_at = $2
		WHERE id = $3 AND capacity_current + $1 <= capacity_max
		RETURNING ` + eventColumns

	event, err := scanEvent(tx.QueryRow(ctx, query, delta, time.Now().UTC(), id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCapacityExceeded
		}
		return nil, err
	}

	return event, nil
}
