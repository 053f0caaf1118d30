package serverutils

import (
	"errors"
	"strconv"

	"school-chat-be/internal/apperror"
	"school-chat-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware maps the tagged error set to transport status
// codes at the outermost boundary. Unexpected errors are logged with detail
// and surfaced as a generic 500.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		if appErr, ok := apperror.As(err); ok {
			if appErr.Kind == apperror.KindRateLimited {
				ctx.Set("Retry-After", strconv.Itoa(appErr.RetryAfter))
			}
			if appErr.Kind == apperror.KindInternal {
				log.Error("HTTP", "Internal error", map[string]interface{}{
					"path":  ctx.Path(),
					"error": appErr.Error(),
				})
				return ctx.Status(appErr.Kind.StatusCode()).JSON(ErrorResponse("خطای داخلی سرور"))
			}
			return ctx.Status(appErr.Kind.StatusCode()).JSON(ErrorResponse(appErr.Message))
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Message))
		}

		log.Error("HTTP", "Unhandled error", map[string]interface{}{
			"path":  ctx.Path(),
			"error": err.Error(),
		})
		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse("خطای داخلی سرور"))
	}
}
