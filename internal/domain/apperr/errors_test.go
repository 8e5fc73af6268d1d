package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("register: %w", Conflict("taken"))
	assert.Equal(t, KindConflict, KindOf(err))
	assert.True(t, Is(err, KindConflict))
	assert.False(t, Is(err, KindNotFound))

	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestMessageOf_HidesInternalCause(t *testing.T) {
	err := Internal(errors.New("pq: connection refused"))
	assert.Equal(t, "internal server error", MessageOf(err))
	assert.Contains(t, err.Error(), "connection refused")
	assert.ErrorIs(t, err, err.Cause)

	assert.Equal(t, "internal server error", MessageOf(errors.New("raw")))
	assert.Equal(t, "nope", MessageOf(Forbidden("nope")))
}
