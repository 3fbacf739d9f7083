package rpcerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromKeepsProviderErrors(t *testing.T) {
	wrapped := fmt.Errorf("validate: %w", ErrTokenExpired)

	got := From(wrapped)
	require.Equal(t, CodeTokenExpired, got.Code)
	require.Equal(t, "The player token expired", got.Message)
}

func TestFromMapsUnknownToInternal(t *testing.T) {
	cause := errors.New("connection reset")

	got := From(cause)
	require.Equal(t, CodeInternal, got.Code)
	require.ErrorIs(t, got, cause)
	assert.Contains(t, got.Error(), "connection reset")
}

func TestIsMatchesByCode(t *testing.T) {
	err := Wrap(CodeInsufficientFunds, errors.New("balance 10 < 20"))
	assert.True(t, errors.Is(err, ErrInsufficientFunds))
	assert.False(t, errors.Is(err, ErrTokenInvalid))
	assert.Nil(t, From(nil))
}
