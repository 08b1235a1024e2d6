package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_StableCodes(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		code    int
		message string
		hint    StatusHint
	}{
		{"no code", NoCode, 0, "No code", HintNotImplemented},
		{"incorrect current password", IncorrectCurrentPassword, 300, "Current password is incorrect", HintBadRequest},
		{"new password mismatch", NewPasswordMismatch, 301, "The new password does not match", HintBadRequest},
		{"account locked", AccountLocked, 302, "User account is locked", HintForbidden},
		{"account disabled", AccountDisabled, 303, "User account is disabled", HintForbidden},
		{"bad credentials", BadCredentials, 304, "Login and / or password is incorrect", HintForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := Lookup(tt.kind)
			assert.Equal(t, tt.code, entry.Code)
			assert.Equal(t, tt.message, entry.Message)
			assert.Equal(t, tt.hint, entry.Hint)
		})
	}
}

func TestLookup_CodesAreUnique(t *testing.T) {
	kinds := []Kind{NoCode, IncorrectCurrentPassword, NewPasswordMismatch, AccountLocked, AccountDisabled, BadCredentials}

	seen := make(map[int]Kind, len(kinds))
	for _, k := range kinds {
		code := Lookup(k).Code
		prev, dup := seen[code]
		require.False(t, dup, "code %d shared by %v and %v", code, prev, k)
		seen[code] = k
	}
}

func TestLookup_UnknownKindFallsBackToSentinel(t *testing.T) {
	entry := Lookup(Kind(999))
	assert.Equal(t, 0, entry.Code)
	assert.Equal(t, HintNotImplemented, entry.Hint)
}

func TestKind_AsError(t *testing.T) {
	var err error = AccountLocked

	assert.Equal(t, "User account is locked", err.Error())
	assert.True(t, errors.Is(err, AccountLocked))
	assert.False(t, errors.Is(err, BadCredentials))
}
