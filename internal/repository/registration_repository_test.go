package repository_test

import (
	"context"
	"testing"
	"time"

	"cluster-registration/internal/model"
	"cluster-registration/internal/repository"
	apperrors "cluster-registration/pkg/app_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestRegistration(t *testing.T, reg *model.Registration) (*model.Registration, error) {
	t.Helper()
	ctx := context.Background()
	repo := repository.NewRegistrationRepository(testDB)

	tx, err := testDB.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	created, err := repo.Create(ctx, tx, reg)
	if err != nil {
		return nil, err
	}
	require.NoError(t, tx.Commit(ctx))
	return created, nil
}

func newRegistration(eventID int, email string, userID *int64) *model.Registration {
	return &model.Registration{
		EventID:      eventID,
		UserID:       userID,
		ContactName:  "Bob",
		ContactEmail: email,
		Status:       model.RegistrationStatusPending,
		RegisteredAt: time.Now().UTC(),
	}
}

func TestRegistrationRepository_Create(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		setupTestWithTruncate(t)
		eventID := createTestEvent(t, "Meetup", 10, 0, "scheduled")

		company := "Acme"
		reg := newRegistration(eventID, "bob@x.com", nil)
		reg.CompanyName = &company

		created, err := createTestRegistration(t, reg)
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.Equal(t, model.RegistrationStatusPending, created.Status)
		assert.Equal(t, &company, created.CompanyName)
		assert.Nil(t, created.UserID)
	})

	t.Run("Failed - duplicate email", func(t *testing.T) {
		setupTestWithTruncate(t)
		eventID := createTestEvent(t, "Meetup", 10, 0, "scheduled")

		_, err := createTestRegistration(t, newRegistration(eventID, "bob@x.com", nil))
		require.NoError(t, err)

		_, err = createTestRegistration(t, newRegistration(eventID, "bob@x.com", nil))
		assert.ErrorIs(t, err, apperrors.ErrAlreadyRegistered)
	})

	t.Run("Failed - duplicate user id", func(t *testing.T) {
		setupTestWithTruncate(t)
		eventID := createTestEvent(t, "Meetup", 10, 0, "scheduled")
		userID := int64(42)

		_, err := createTestRegistration(t, newRegistration(eventID, "bob@x.com", &userID))
		require.NoError(t, err)

		_, err = createTestRegistration(t, newRegistration(eventID, "other@x.com", &userID))
		assert.ErrorIs(t, err, apperrors.ErrAlreadyRegistered)
	})

	t.Run("Success - same email on another event", func(t *testing.T) {
		setupTestWithTruncate(t)
		first := createTestEvent(t, "A", 10, 0, "scheduled")
		second := createTestEvent(t, "B", 10, 0, "scheduled")

		_, err := createTestRegistration(t, newRegistration(first, "bob@x.com", nil))
		require.NoError(t, err)
		_, err = createTestRegistration(t, newRegistration(second, "bob@x.com", nil))
		assert.NoError(t, err)
	})
}

func TestRegistrationRepository_FindExisting(t *testing.T) {
	setupTestWithTruncate(t)
	ctx := context.Background()
	repo := repository.NewRegistrationRepository(testDB)
	eventID := createTestEvent(t, "Meetup", 10, 0, "scheduled")
	userID := int64(42)

	created, err := createTestRegistration(t, newRegistration(eventID, "bob@x.com", &userID))
	require.NoError(t, err)

	t.Run("By email", func(t *testing.T) {
		found, err := repo.FindExisting(ctx, eventID, "bob@x.com", nil)
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
	})

	t.Run("By user id", func(t *testing.T) {
		found, err := repo.FindExisting(ctx, eventID, "new@x.com", &userID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
	})

	t.Run("Not found", func(t *testing.T) {
		other := int64(7)
		_, err := repo.FindExisting(ctx, eventID, "new@x.com", &other)
		assert.ErrorIs(t, err, apperrors.ErrRegistrationNotFound)
	})
}

func TestRegistrationRepository_UpdateStatus(t *testing.T) {
	setupTestWithTruncate(t)
	ctx := context.Background()
	repo := repository.NewRegistrationRepository(testDB)
	eventID := createTestEvent(t, "Meetup", 10, 0, "scheduled")

	created, err := createTestRegistration(t, newRegistration(eventID, "bob@x.com", nil))
	require.NoError(t, err)

	tx, err := testDB.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	locked, err := repo.FindByIDWithLock(ctx, tx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationStatusPending, locked.Status)

	updated, err := repo.UpdateStatus(ctx, tx, created.ID, model.RegistrationStatusConfirmed)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	assert.Equal(t, model.RegistrationStatusConfirmed, updated.Status)

	list, err := repo.ListByEventID(ctx, eventID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.RegistrationStatusConfirmed, list[0].Status)

	_, err = repo.FindByID(ctx, created.ID+1000)
	assert.ErrorIs(t, err, apperrors.ErrRegistrationNotFound)
}
