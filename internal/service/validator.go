package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"musicclub-backend/internal/domain"
	"musicclub-backend/internal/repository"

	"github.com/go-playground/validator/v10"
)

// IdentityValidator checks the format of applicant identity fields and
// their uniqueness across applications and existing accounts. It never
// writes.
type IdentityValidator struct {
	apps                 repository.ApplicationRepository
	accounts             repository.AccountRepository
	validate             *validator.Validate
	studentNumberPattern *regexp.Regexp
}

// NewIdentityValidator builds a validator. studentNumberPattern is an
// optional extra policy for student numbers; empty accepts any non-empty
// value.
func NewIdentityValidator(apps repository.ApplicationRepository, accounts repository.AccountRepository, studentNumberPattern string) (*IdentityValidator, error) {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("national_id", func(fl validator.FieldLevel) bool {
		return domain.IsValidNationalID(fl.Field().String())
	}); err != nil {
		return nil, fmt.Errorf("failed to register national_id rule: %w", err)
	}

	iv := &IdentityValidator{apps: apps, accounts: accounts, validate: v}
	if studentNumberPattern != "" {
		re, err := regexp.Compile(studentNumberPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid student number pattern: %w", err)
		}
		iv.studentNumberPattern = re
	}
	return iv, nil
}

// ValidateFormat returns a *domain.ValidationError for the first offending
// field.
func (v *IdentityValidator) ValidateFormat(in *SubmitInput) error {
	if err := v.validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fieldError(fieldErrs[0])
		}
		return domain.NewValidationError("", err.Error())
	}

	if in.NationalID == "" && in.StudentNumber == "" {
		return domain.NewValidationError("identification", "missing identification: national ID or student number is required")
	}
	if in.StudentNumber != "" && v.studentNumberPattern != nil && !v.studentNumberPattern.MatchString(in.StudentNumber) {
		return domain.NewValidationError("studentNumber", "student number format is not accepted")
	}
	if !in.Source.Valid() {
		return domain.NewValidationError("source", fmt.Sprintf("unknown source %q", in.Source))
	}
	return nil
}

func fieldError(fe validator.FieldError) *domain.ValidationError {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return domain.NewValidationError(field, "is required")
	case "email":
		return domain.NewValidationError(field, "must be a valid email address")
	case "national_id":
		return domain.NewValidationError(field, "invalid national ID format: must be exactly 11 digits and must not start with 0")
	case "max":
		if field == "phone" {
			return domain.NewValidationError(field, "phone must be 10 or 11 digits")
		}
		return domain.NewValidationError(field, fmt.Sprintf("must be at most %s characters", fe.Param()))
	case "min", "number":
		if field == "phone" {
			return domain.NewValidationError(field, "phone must be 10 or 11 digits")
		}
	}
	return domain.NewValidationError(field, fmt.Sprintf("failed %q check", fe.Tag()))
}

// CheckUniqueness fails with a *domain.ConflictError when any supplied
// identifier is already used by an application or an account. Empty values
// are skipped.
func (v *IdentityValidator) CheckUniqueness(ctx context.Context, email, nationalID, studentNumber string) error {
	checks := []struct {
		field   string
		value   string
		apps    func(context.Context, string) (bool, error)
		account func(context.Context, string) (bool, error)
	}{
		{"email", email, v.apps.ExistsByEmail, v.accounts.ExistsByEmail},
		{"nationalId", nationalID, v.apps.ExistsByNationalID, v.accounts.ExistsByNationalID},
		{"studentNumber", studentNumber, v.apps.ExistsByStudentNumber, v.accounts.ExistsByStudentNumber},
	}

	for _, c := range checks {
		if c.value == "" {
			continue
		}
		taken, err := c.apps(ctx, c.value)
		if err != nil {
			return fmt.Errorf("failed to check %s against applications: %w", c.field, err)
		}
		if taken {
			return domain.NewConflictError(c.field, "an application with this value already exists")
		}
		taken, err = c.account(ctx, c.value)
		if err != nil {
			return fmt.Errorf("failed to check %s against accounts: %w", c.field, err)
		}
		if taken {
			return domain.NewConflictError(c.field, "an account with this value already exists")
		}
	}
	return nil
}

// FindByIdentification returns the first application matching either
// identifier, or nil when none is supplied or nothing matches.
func (v *IdentityValidator) FindByIdentification(ctx context.Context, nationalID, studentNumber string) (*domain.Application, error) {
	nationalID = strings.TrimSpace(nationalID)
	studentNumber = strings.TrimSpace(studentNumber)
	if nationalID == "" && studentNumber == "" {
		return nil, nil
	}
	return v.apps.FindByIdentification(ctx, nationalID, studentNumber)
}
