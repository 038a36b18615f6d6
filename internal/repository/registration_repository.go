package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cluster-registration/internal/model"
	apperrors "cluster-registration/pkg/app_errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const registrationColumns = `id, event_id, company_id, user_id, contact_name, contact_email,
		contact_phone, company_name, comments, status, registered_at, updated_at`

type RegistrationRepository interface {
	FindByID(ctx context.Context, id int) (*model.Registration, error)
	ListByEventID(ctx context.Context, eventID int) ([]*model.Registration, error)
	// FindExisting 依 (event, email) 或 (event, user_id) 找出既有報名
	FindExisting(ctx context.Context, eventID int, email string, userID *int64) (*model.Registration, error)

	// Transaction methods
	Create(ctx context.Context, tx pgx.Tx, registration *model.Registration) (*model.Registration, error)
	FindByIDWithLock(ctx context.Context, tx pgx.Tx, id int) (*model.Registration, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id int, status model.RegistrationStatus) (*model.Registration, error)
}

type RegistrationRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewRegistrationRepository(pool *pgxpool.Pool) RegistrationRepository {
	return &RegistrationRepositoryImpl{
		pool: pool,
	}
}

func scanRegistration(row pgx.Row) (*model.Registration, error) {
	var reg model.Registration
	err := row.Scan(
		&reg.ID,
		&reg.EventID,
		&reg.CompanyID,
		&reg.UserID,
		&reg.ContactName,
		&reg.ContactEmail,
		&reg.ContactPhone,
		&reg.CompanyName,
		&reg.Comments,
		&reg.Status,
		&reg.RegisteredAt,
		&reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *RegistrationRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, registration *model.Registration) (*model.Registration, error) {
	query := `
		INSERT INTO registrations (
			event_id, company_id, user_id, contact_name, contact_email,
			contact_phone, company_name, comments, status, registered_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + registrationColumns

	created, err := scanRegistration(tx.QueryRow(ctx, query,
		registration.EventID,
		registration.CompanyID,
		registration.UserID,
		registration.ContactName,
		registration.ContactEmail,
		registration.ContactPhone,
		registration.CompanyName,
		registration.Comments,
		registration.Status,
		registration.RegisteredAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("failed to create registration: %w", err)
	}

	return created, nil
}

func (r *RegistrationRepositoryImpl) FindByID(ctx context.Context, id int) (*model.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE id = $1
	`

	reg, err := scanRegistration(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrRegistrationNotFound
		}
		return nil, err
	}

	return reg, nil
}

func (r *RegistrationRepositoryImpl) ListByEventID(ctx context.Context, eventID int) ([]*model.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE event_id = $1
		ORDER BY registered_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	registrations := make([]*model.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		registrations = append(registrations, reg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return registrations, nil
}

func (r *RegistrationRepositoryImpl) FindExisting(ctx context.Context, eventID int, email string, userID *int64) (*model.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE event_id = $1
		  AND (contact_email = $2 OR ($3::BIGINT IS NOT NULL AND user_id = $3))
		ORDER BY registered_at ASC, id ASC
		LIMIT 1
	`

	reg, err := scanRegistration(r.pool.QueryRow(ctx, query, eventID, email, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrRegistrationNotFound
		}
		return nil, err
	}

	return reg, nil
}

func (r *RegistrationRepositoryImpl) FindByIDWithLock(ctx context.Context, tx pgx.Tx, id int) (*model.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE id = $1
		FOR UPDATE
	`

	reg, err := scanRegistration(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrRegistrationNotFound
		}
		return nil, err
	}

	return reg, nil
}

func (r *RegistrationRepositoryImpl) UpdateStatus(ctx context.Context, tx pgx.Tx, id int, status model.RegistrationStatus) (*model.Registration, error) {
	query := `
		UPDATE registrations
		SET status = $1, updated_at = $2
		WHERE id = $3
		RETURNING ` + registrationColumns

	reg, err := scanRegistration(tx.QueryRow(ctx, query, status, time.Now().UTC(), id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to update registration status: %w", err)
	}

	return reg, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
