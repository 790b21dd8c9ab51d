package serverutils

import (
	"fmt"
	"testing"

	"github.com/akvekariya/AIChatBot/internal/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestStatusForTaxonomy(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperror.ErrUnauthenticated, fiber.StatusUnauthorized},
		{apperror.ErrNotFound, fiber.StatusNotFound},
		{apperror.ErrAccessDenied, fiber.StatusForbidden},
		{apperror.ErrInvalidTopics, fiber.StatusBadRequest},
		{apperror.ErrValidation, fiber.StatusBadRequest},
		{apperror.ErrMessageLimitExceeded, fiber.StatusConflict},
		{apperror.ErrBackendFailure, fiber.StatusBadGateway},
		{apperror.ErrPersistence, fiber.StatusServiceUnavailable},
		{fmt.Errorf("something odd"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), "error %v", tt.err)
	}
}

func TestStatusForWrappedErrors(t *testing.T) {
	wrapped := apperror.NotFoundf("chat %s", "abc")
	assert.Equal(t, fiber.StatusNotFound, StatusFor(wrapped))
	assert.Equal(t, "NOT_FOUND", apperror.Code(wrapped))

	deep := fmt.Errorf("outer: %w", apperror.Persistencef("insert", fmt.Errorf("connection reset")))
	assert.Equal(t, fiber.StatusServiceUnavailable, StatusFor(deep))
}

func TestInvalidTopicsSurfaceAsValidationFailure(t *testing.T) {
	err := fmt.Errorf("%w: unknown topic astrology", apperror.ErrInvalidTopics)
	assert.Equal(t, "VALIDATION_FAILURE", apperror.Code(err))
	assert.Equal(t, fiber.StatusBadRequest, StatusFor(err))
}

func TestValidateRequest(t *testing.T) {
	type payload struct {
		Topics []string `validate:"required,min=1,max=2"`
	}

	assert.NoError(t, ValidateRequest(payload{Topics: []string{"health"}}))

	err := ValidateRequest(payload{})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
