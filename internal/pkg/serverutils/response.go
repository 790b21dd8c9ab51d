package serverutils

import (
	"github.com/akvekariya/AIChatBot/internal/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type ResponseEnvelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
}

func SuccessResponse(message string, data interface{}) ResponseEnvelope {
	return ResponseEnvelope{
		Success: true,
		Message: message,
		Data:    data,
	}
}

var validate = validator.New()

// ValidateRequest runs struct-tag validation and normalizes failures into the
// ValidationFailure taxonomy so the error handler maps them to 400.
func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		return apperror.Validationf("%v", err)
	}
	return nil
}

// StatusFor maps a taxonomy error to its HTTP status.
func StatusFor(err error) int {
	switch apperror.Code(err) {
	case "UNAUTHENTICATED":
		return fiber.StatusUnauthorized
	case "NOT_FOUND":
		return fiber.StatusNotFound
	case "ACCESS_DENIED":
		return fiber.StatusForbidden
	case "VALIDATION_FAILURE":
		return fiber.StatusBadRequest
	case "MESSAGE_LIMIT_EXCEEDED":
		return fiber.StatusConflict
	case "AI_GENERATION_FAILED":
		return fiber.StatusBadGateway
	case "PERSISTENCE_FAILURE":
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
