package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToFiber(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{Validation("bad %s", "input"), fiber.StatusBadRequest},
		{NotFound("stock record", "r1"), fiber.StatusNotFound},
		{fmt.Errorf("ctx: %w", Conflict("taken")), fiber.StatusConflict},
		{&CapacityError{StockRecordID: "r1", Requested: 5, Available: 2}, fiber.StatusUnprocessableEntity},
		{&TransientStoreError{Err: errors.New("conn reset")}, fiber.StatusServiceUnavailable},
		{fiber.NewError(fiber.StatusTeapot, "tea"), fiber.StatusTeapot},
	}
	for _, tc := range cases {
		var fe *fiber.Error
		require.ErrorAs(t, ToFiber(tc.err), &fe, "%v", tc.err)
		assert.Equal(t, tc.code, fe.Code, "%v", tc.err)
	}

	plain := errors.New("boom")
	assert.Same(t, plain, ToFiber(plain))
	assert.NoError(t, ToFiber(nil))
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "stock record r1 not found", NotFound("stock record", "r1").Error())
	assert.Equal(t, "stock record r1 has 2 pieces remaining, 5 requested",
		(&CapacityError{StockRecordID: "r1", Requested: 5, Available: 2}).Error())

	inner := errors.New("conn reset")
	assert.ErrorIs(t, &TransientStoreError{Err: inner}, inner)
	assert.True(t, IsTransient(fmt.Errorf("wrap: %w", &TransientStoreError{Err: inner})))
	assert.False(t, IsTransient(inner))
}
