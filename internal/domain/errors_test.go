package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/djdiptayan1/HRone/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestInsufficientStockMessage(t *testing.T) {
	err := domain.InsufficientStock("Shirt", 0, 2)

	require.Equal(t, "Insufficient stock for Shirt. Available: 0, Requested: 2", err.Error())
	require.Equal(t, 0, err.Available)
	require.Equal(t, 2, err.Requested)
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("placing order: %w", domain.NotFound("Product with ID %s not found", "x"))
	require.Equal(t, domain.KindNotFound, domain.KindOf(wrapped))

	require.Equal(t, domain.KindInternal, domain.KindOf(errors.New("boom")))

	cause := errors.New("deadlock detected")
	conflict := domain.Conflict("Order conflicted with a concurrent update, retry", cause)
	require.Equal(t, domain.KindConflict, domain.KindOf(conflict))
	require.ErrorIs(t, conflict, cause)
}

func TestValidateID(t *testing.T) {
	require.NoError(t, domain.ValidateID("product", domain.NewID()))

	err := domain.ValidateID("product", "not-an-id")
	require.Error(t, err)
	require.Equal(t, domain.KindInvalidArgument, domain.KindOf(err))
}
