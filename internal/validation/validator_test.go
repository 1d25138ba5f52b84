package validation

import (
	"errors"
	"testing"

	"github.com/dmitrijs2005/buoytelemetry/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Username string `json:"username" validate:"required,min=3,max=80"`
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"omitempty,oneof=admin researcher"`
}

type reading struct {
	Salinity *float64 `json:"salinity" validate:"required"`
	Depth    int      `json:"depth,omitempty" validate:"gte=0"`
}

func TestValidateStruct_OK(t *testing.T) {
	s := 35.1
	assert.NoError(t, ValidateStruct(&signup{Username: "alice", Email: "a@x.com"}))
	assert.NoError(t, ValidateStruct(&reading{Salinity: &s}))
}

func TestValidateStruct_CollectsFieldsByJSONName(t *testing.T) {
	err := ValidateStruct(&signup{Username: "al", Email: "nope", Role: "root"})
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Fields, 3)

	assert.Equal(t, "username", verr.Fields[0].Field)
	assert.Equal(t, "username must be at least 3 characters", verr.Fields[0].Message)
	assert.Equal(t, "email must be a valid email address", verr.Fields[1].Message)
	assert.Equal(t, "role must be one of: admin researcher", verr.Fields[2].Message)
	assert.Contains(t, err.Error(), "; ")
}

func TestValidateStruct_UnwrapsToErrValidation(t *testing.T) {
	err := ValidateStruct(&reading{Depth: -1})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, err.Error(), "salinity is required")
	assert.Contains(t, err.Error(), "depth must be greater than or equal to 0")
}

func TestGet_ReturnsSingleton(t *testing.T) {
	assert.Same(t, Get(), Get())
}
