package serverutils

import (
	"errors"

	"github.com/akvekariya/AIChatBot/internal/apperror"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts taxonomy errors bubbling out of controllers
// into the standard error envelope. Non-taxonomy errors become a generic 500
// so internals never leak to clients.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ResponseEnvelope{
				Success: false,
				Message: fiberErr.Message,
			})
		}

		status := StatusFor(err)
		message := err.Error()
		if status == fiber.StatusInternalServerError {
			message = "Internal server error"
		}

		return ctx.Status(status).JSON(ResponseEnvelope{
			Success: false,
			Message: message,
			Code:    apperror.Code(err),
		})
	}
}
