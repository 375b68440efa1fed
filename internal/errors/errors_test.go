package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	err := New(ErrCodeInvalidCredentials, "invalid email or password")
	assert.Equal(t, "invalid email or password", err.Error())

	wrapped := Wrap(stderrors.New("boom"), ErrCodeAuthProvider, "provider call failed")
	assert.Equal(t, "provider call failed: boom", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(cause, ErrCodeAuthProvider, "sign in")

	assert.True(t, stderrors.Is(err, cause))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "nope"))
	assert.Nil(t, Wrapf(nil, ErrCodeInternal, "nope %d", 1))
}

func TestCodeHelpers(t *testing.T) {
	tests := []struct {
		code  ErrorCode
		check func(error) bool
	}{
		{ErrCodeInvalidCredentials, IsInvalidCredentials},
		{ErrCodeAccountBanned, IsAccountBanned},
		{ErrCodeConfiguration, IsConfiguration},
		{ErrCodeProvisioning, IsProvisioning},
		{ErrCodeAuthProvider, IsAuthProvider},
		{ErrCodeDeliveryTimeout, IsDeliveryTimeout},
		{ErrCodeDeliveryTransport, IsDeliveryTransport},
		{ErrCodeNotFound, IsNotFound},
		{ErrCodeConflict, IsConflict},
		{ErrCodeValidation, IsValidation},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := New(tt.code, "x")
			assert.True(t, tt.check(err))
			assert.False(t, tt.check(New(ErrCodeInternal, "x")))
			assert.False(t, tt.check(stderrors.New("plain")))
		})
	}
}

func TestCodeHelpers_SeeThroughWrapping(t *testing.T) {
	inner := New(ErrCodeAccountBanned, "account disabled")
	outer := fmt.Errorf("authenticate: %w", inner)

	assert.True(t, IsAccountBanned(outer))
	assert.Equal(t, ErrCodeAccountBanned, GetCode(outer))
}

func TestWithRemediation(t *testing.T) {
	base := New(ErrCodeProvisioning, "profile insert failed")
	err := base.WithRemediation("insert staff_profiles row with id=%s email=%s", "p-1", "ops@example.com")

	require.NotSame(t, base, err)
	assert.Empty(t, base.Remediation)
	assert.Equal(t, "insert staff_profiles row with id=p-1 email=ops@example.com", GetRemediation(err))
	assert.Empty(t, GetRemediation(stderrors.New("plain")))
}
