package domainerrors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "hirelane/pkg/domain-errors"
)

func TestHasCode(t *testing.T) {
	err := dErrors.New(dErrors.CodeNotFound, "application not found")

	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	assert.False(t, dErrors.HasCode(err, dErrors.CodeConflict))
	assert.False(t, dErrors.HasCode(nil, dErrors.CodeNotFound))
	assert.False(t, dErrors.HasCode(errors.New("plain"), dErrors.CodeNotFound))
}

func TestHasCodeThroughWrapping(t *testing.T) {
	cause := dErrors.New(dErrors.CodeDuplicateSubmission, "application already exists")
	wrapped := fmt.Errorf("submit: %w", cause)

	assert.True(t, dErrors.HasCode(wrapped, dErrors.CodeDuplicateSubmission))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := dErrors.Wrap(cause, dErrors.CodeDownstreamUnavailable, "existence check failed")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "existence check failed: connection refused", err.Error())
	assert.Equal(t, "existence check failed", err.Message())
	assert.Equal(t, dErrors.CodeDownstreamUnavailable, err.Code())
}

func TestIsMatchesByCode(t *testing.T) {
	a := dErrors.New(dErrors.CodeFinalized, "already finalized")
	b := dErrors.New(dErrors.CodeFinalized, "different message")

	assert.ErrorIs(t, a, b)
	assert.NotErrorIs(t, a, dErrors.New(dErrors.CodeForbidden, "nope"))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, dErrors.CodeInvalidTransition,
		dErrors.CodeOf(dErrors.Newf(dErrors.CodeInvalidTransition, "invalid transition from %s to %s", "SUBMITTED", "ACCEPTED")))
	assert.Equal(t, dErrors.CodeInternal, dErrors.CodeOf(errors.New("plain")))
}
