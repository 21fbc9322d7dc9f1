package engine

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"
)

// ErrorHandler renders every handler error in the {"error": ...} envelope.
// Anything that is not an *AppError or *fiber.Error is logged and reported as
// an internal error.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx, err error) error {
		var appErr *AppError
		if errors.As(err, &appErr) {
			return RespondError(c, appErr)
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return RespondError(c, &AppError{
				Code:    statusCode(fiberErr.Code),
				Status:  fiberErr.Code,
				Message: fiberErr.Message,
			})
		}

		logger.Error("Request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return RespondError(c, &AppError{
			Code:    "INTERNAL_ERROR",
			Status:  fiber.StatusInternalServerError,
			Message: "Internal server error",
		})
	}
}

func RespondError(c *fiber.Ctx, appErr *AppError) error {
	return c.Status(appErr.Status).JSON(ErrorResponse{Error: appErr})
}

// statusCode turns 404 into "NOT_FOUND", 405 into "METHOD_NOT_ALLOWED" etc.
func statusCode(status int) string {
	msg := utils.StatusMessage(status)
	if msg == "" {
		return "HTTP_ERROR"
	}
	return strings.ToUpper(strings.ReplaceAll(msg, " ", "_"))
}
