package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"musicclub-backend/internal/domain"
	"musicclub-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() service.SubmitInput {
	return service.SubmitInput{
		FirstName:     "Ada",
		LastName:      "Lovelace",
		Email:         "ada@example.com",
		NationalID:    "12345678901",
		StudentNumber: "201912345",
		Phone:         "05551234567",
		Source:        domain.ApplicationSourceWebsite,
	}
}

func TestIdentityValidator_ValidateFormat(t *testing.T) {
	v, err := service.NewIdentityValidator(nil, nil, "")
	require.NoError(t, err)

	tests := []struct {
		name      string
		mutate    func(in *service.SubmitInput)
		wantField string
	}{
		{"valid", func(in *service.SubmitInput) {}, ""},
		{"student number only", func(in *service.SubmitInput) { in.NationalID = "" }, ""},
		{"national id only", func(in *service.SubmitInput) { in.StudentNumber = "" }, ""},
		{"missing first name", func(in *service.SubmitInput) { in.FirstName = "" }, "firstName"},
		{"long last name", func(in *service.SubmitInput) { in.LastName = strings.Repeat("x", 101) }, "lastName"},
		{"bad email", func(in *service.SubmitInput) { in.Email = "not-an-email" }, "email"},
		{"national id leading zero", func(in *service.SubmitInput) { in.NationalID = "01234567890" }, "nationalId"},
		{"national id ten digits", func(in *service.SubmitInput) { in.NationalID = "1234567890" }, "nationalId"},
		{"national id letters", func(in *service.SubmitInput) { in.NationalID = "1234567890a" }, "nationalId"},
		{"short phone", func(in *service.SubmitInput) { in.Phone = "555123" }, "phone"},
		{"long phone", func(in *service.SubmitInput) { in.Phone = "055512345678" }, "phone"},
		{"phone letters", func(in *service.SubmitInput) { in.Phone = "05551234abc" }, "phone"},
		{"long notes", func(in *service.SubmitInput) { in.ProcessingNotes = strings.Repeat("n", 1001) }, "processingNotes"},
		{"no identification", func(in *service.SubmitInput) { in.NationalID, in.StudentNumber = "", "" }, "identification"},
		{"unknown source", func(in *service.SubmitInput) { in.Source = "FAX" }, "source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			err := v.ValidateFormat(&in)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
			assert.True(t, errors.Is(err, domain.ErrValidation))
		})
	}
}

func TestIdentityValidator_StudentNumberPattern(t *testing.T) {
	v, err := service.NewIdentityValidator(nil, nil, `^[0-9]{9}$`)
	require.NoError(t, err)

	in := validInput()
	assert.NoError(t, v.ValidateFormat(&in))

	in.StudentNumber = "S-1"
	var ve *domain.ValidationError
	require.ErrorAs(t, v.ValidateFormat(&in), &ve)
	assert.Equal(t, "studentNumber", ve.Field)

	_, err = service.NewIdentityValidator(nil, nil, "([")
	assert.Error(t, err)
}

func TestIdentityValidator_CheckUniqueness(t *testing.T) {
	ctx := context.Background()

	t.Run("All free", func(t *testing.T) {
		apps, accounts := new(MockApplicationRepo), new(MockAccountRepo)
		apps.On("ExistsByEmail", ctx, "ada@example.com").Return(false, nil)
		accounts.On("ExistsByEmail", ctx, "ada@example.com").Return(false, nil)
		apps.On("ExistsByNationalID", ctx, "12345678901").Return(false, nil)
		accounts.On("ExistsByNationalID", ctx, "12345678901").Return(false, nil)
		apps.On("ExistsByStudentNumber", ctx, "201912345").Return(false, nil)
		accounts.On("ExistsByStudentNumber", ctx, "201912345").Return(false, nil)

		v, _ := service.NewIdentityValidator(apps, accounts, "")
		assert.NoError(t, v.CheckUniqueness(ctx, "ada@example.com", "12345678901", "201912345"))
		apps.AssertExpectations(t)
		accounts.AssertExpectations(t)
	})

	t.Run("Empty values skipped", func(t *testing.T) {
		apps, accounts := new(MockApplicationRepo), new(MockAccountRepo)
		apps.On("ExistsByEmail", ctx, "ada@example.com").Return(false, nil)
		accounts.On("ExistsByEmail", ctx, "ada@example.com").Return(false, nil)
		apps.On("ExistsByStudentNumber", ctx, "201912345").Return(false, nil)
		accounts.On("ExistsByStudentNumber", ctx, "201912345").Return(false, nil)

		v, _ := service.NewIdentityValidator(apps, accounts, "")
		assert.NoError(t, v.CheckUniqueness(ctx, "ada@example.com", "", "201912345"))
		apps.AssertNotCalled(t, "ExistsByNationalID", ctx, "")
	})

	t.Run("Student number used by application", func(t *testing.T) {
		apps, accounts := new(MockApplicationRepo), new(MockAccountRepo)
		apps.On("ExistsByEmail", ctx, "ada@example.com").Return(false, nil)
		accounts.On("ExistsByEmail", ctx, "ada@example.com").Return(false, nil)
		apps.On("ExistsByStudentNumber", ctx, "201912345").Return(true, nil)

		v, _ := service.NewIdentityValidator(apps, accounts, "")
		err := v.CheckUniqueness(ctx, "ada@example.com", "", "201912345")
		var ce *domain.ConflictError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "studentNumber", ce.Field)
		accounts.AssertNotCalled(t, "ExistsByStudentNumber", ctx, "201912345")
	})

	t.Run("Email used by account", func(t *testing.T) {
		apps, accounts := new(MockApplicationRepo), new(MockAccountRepo)
		apps.On("ExistsByEmail", ctx, "ada@example.com").Return(false, nil)
		accounts.On("ExistsByEmail", ctx, "ada@example.com").Return(true, nil)

		v, _ := service.NewIdentityValidator(apps, accounts, "")
		err := v.CheckUniqueness(ctx, "ada@example.com", "12345678901", "")
		assert.True(t, errors.Is(err, domain.ErrConflict))
	})

	t.Run("Repository failure", func(t *testing.T) {
		apps, accounts := new(MockApplicationRepo), new(MockAccountRepo)
		dbErr := errors.New("connection reset")
		apps.On("ExistsByEmail", ctx, "ada@example.com").Return(false, dbErr)

		v, _ := service.NewIdentityValidator(apps, accounts, "")
		err := v.CheckUniqueness(ctx, "ada@example.com", "", "")
		assert.ErrorIs(t, err, dbErr)
		assert.False(t, errors.Is(err, domain.ErrConflict))
	})
}

func TestIdentityValidator_FindByIdentification(t *testing.T) {
	ctx := context.Background()
	apps := new(MockApplicationRepo)
	v, _ := service.NewIdentityValidator(apps, new(MockAccountRepo), "")

	app, err := v.FindByIdentification(ctx, " ", "")
	assert.NoError(t, err)
	assert.Nil(t, app)
	apps.AssertNotCalled(t, "FindByIdentification")

	existing := &domain.Application{ID: "A1", StudentNumber: strPtr("201912345")}
	apps.On("FindByIdentification", ctx, "", "201912345").Return(existing, nil).Once()
	app, err = v.FindByIdentification(ctx, "", "201912345")
	require.NoError(t, err)
	assert.Equal(t, "A1", app.ID)

	apps.On("FindByIdentification", ctx, "12345678901", "").Return(nil, nil).Once()
	app, err = v.FindByIdentification(ctx, "12345678901", "")
	assert.NoError(t, err)
	assert.Nil(t, app)
	apps.AssertExpectations(t)
}
