package service

import (
	"testing"
	"time"

	"cluster-registration/internal/model"
	apperrors "cluster-registration/pkg/app_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func TestNormalizeRegisterInput(t *testing.T) {
	in := normalizeRegisterInput(model.RegisterInput{
		EventID:      7,
		ContactName:  "  Bob ",
		ContactEmail: " Bob@X.com ",
		ContactPhone: strPtr("   "),
		CompanyName:  strPtr(" Acme "),
		CompanyID:    int64Ptr(0),
		UserID:       int64Ptr(-3),
		Comments:     strPtr(""),
	})

	assert.Equal(t, "Bob", in.ContactName)
	assert.Equal(t, "bob@x.com", in.ContactEmail)
	assert.Nil(t, in.ContactPhone)
	require.NotNil(t, in.CompanyName)
	assert.Equal(t, "Acme", *in.CompanyName)
	assert.Nil(t, in.CompanyID)
	assert.Nil(t, in.UserID)
	assert.Nil(t, in.Comments)
}

func TestValidateRegisterInput(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		verr := validateRegisterInput(model.RegisterInput{EventID: 1, ContactName: "Ana", ContactEmail: "ana@x.com"})
		assert.Nil(t, verr)
	})

	t.Run("All required missing", func(t *testing.T) {
		verr := validateRegisterInput(model.RegisterInput{})
		require.NotNil(t, verr)
		assert.Equal(t, []string{"evento_id", "nombre_usuario", "email_contacto"}, verr.MissingFields)
		assert.False(t, verr.InvalidEmail)
		assert.ErrorIs(t, verr, apperrors.ErrInvalidInput)
	})

	t.Run("Whitespace only name counts as missing", func(t *testing.T) {
		in := normalizeRegisterInput(model.RegisterInput{EventID: 1, ContactName: "   ", ContactEmail: "ana@x.com"})
		verr := validateRegisterInput(in)
		require.NotNil(t, verr)
		assert.Equal(t, []string{"nombre_usuario"}, verr.MissingFields)
	})

	t.Run("Missing takes priority over bad email", func(t *testing.T) {
		verr := validateRegisterInput(model.RegisterInput{ContactName: "Ana", ContactEmail: "not-an-email"})
		require.NotNil(t, verr)
		assert.Equal(t, []string{"evento_id"}, verr.MissingFields)
		assert.False(t, verr.InvalidEmail)
	})

	t.Run("Invalid email", func(t *testing.T) {
		for _, email := range []string{"ana", "ana@", "@x.com", "ana x@x.com"} {
			verr := validateRegisterInput(model.RegisterInput{EventID: 1, ContactName: "Ana", ContactEmail: email})
			require.NotNil(t, verr, email)
			assert.True(t, verr.InvalidEmail, email)
			assert.Equal(t, "Email no válido", verr.Error())
		}
	})
}

func TestValidateCreateEventParams(t *testing.T) {
	start := time.Now().Add(24 * time.Hour)

	t.Run("Valid", func(t *testing.T) {
		err := validateCreateEventParams(model.CreateEventParams{
			Title: "Meetup", StartAt: start, EndAt: start.Add(time.Hour), CapacityMax: 10,
		})
		assert.NoError(t, err)
	})

	t.Run("End before start", func(t *testing.T) {
		err := validateCreateEventParams(model.CreateEventParams{
			Title: "Meetup", StartAt: start, EndAt: start.Add(-time.Hour), CapacityMax: 10,
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("Negative capacity", func(t *testing.T) {
		err := validateCreateEventParams(model.CreateEventParams{
			Title: "Meetup", StartAt: start, EndAt: start.Add(time.Hour), CapacityMax: -1,
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("Missing title", func(t *testing.T) {
		err := validateCreateEventParams(model.CreateEventParams{
			StartAt: start, EndAt: start.Add(time.Hour), CapacityMax: 10,
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}
