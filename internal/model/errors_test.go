package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
	}{
		{"not found", NewNotFound("session", "s1"), IsNotFound},
		{"validation", NewValidation("bad status"), IsValidation},
		{"storage unavailable", NewStorageUnavailable("timeout", nil), IsStorageUnavailable},
		{"conflict", NewConflict("session", "s1"), IsConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.pred(tt.err))
		})
	}

	// Predicates discriminate between codes.
	assert.False(t, IsNotFound(NewValidation("x")))
	assert.False(t, IsValidation(NewNotFound("patient", "p1")))
	assert.False(t, IsConflict(errors.New("plain")))
	assert.False(t, IsNotFound(nil))
}

func TestErrorPredicatesSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("loading session: %w", NewNotFound("session", "s1"))
	assert.True(t, IsNotFound(wrapped))

	var derr *Error
	require.True(t, errors.As(wrapped, &derr))
	assert.Equal(t, CodeNotFound, derr.Code)
	assert.Equal(t, "session", derr.Entity)
	assert.Equal(t, "s1", derr.ID)
}

func TestStorageUnavailableUnwraps(t *testing.T) {
	cause := errors.New("database is locked")
	err := NewStorageUnavailable("write failed", cause)
	assert.ErrorIs(t, err, cause)
}
