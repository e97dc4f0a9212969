package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/shelfmark/shelfmark-server/internal/errors"
)

type registerInput struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Rating   int    `json:"rating"   validate:"omitempty,gte=1,lte=5"`
}

func TestValidateValid(t *testing.T) {
	v := New()
	err := v.Validate(registerInput{
		Username: "reader",
		Email:    "reader@example.com",
		Password: "hunter2hunter2",
		Rating:   4,
	})
	assert.NoError(t, err)
}

func TestValidateFieldErrors(t *testing.T) {
	v := New()
	err := v.Validate(registerInput{
		Username: "ab",
		Email:    "not-an-email",
		Rating:   9,
	})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)

	details, ok := domainErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be at least 3 characters", details["username"])
	assert.Equal(t, "must be a valid email address", details["email"])
	assert.Equal(t, "is required", details["password"])
	assert.Equal(t, "must be less than or equal to 5", details["rating"])
}

func TestValidateUsesJSONTagNames(t *testing.T) {
	type input struct {
		DisplayName string `json:"display_name,omitempty" validate:"required"`
	}

	v := New()
	err := v.Validate(input{})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.True(t, errors.As(err, &domainErr))
	details, ok := domainErr.Details.(map[string]string)
	require.True(t, ok)
	_, found := details["display_name"]
	assert.True(t, found)
}
