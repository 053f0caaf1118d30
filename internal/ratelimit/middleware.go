package ratelimit

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Middleware adapts a Limiter to the REST mirror. The subject is the
// authenticated user id (set by the JWT middleware) with the client IP as
// fallback for anonymous probes; the resource is the route path.
func Middleware(l *Limiter, resource string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		subject, _ := ctx.Locals("user_id").(string)
		if subject == "" {
			subject = ctx.IP()
		}

		res := l.Check(Key(subject, resource))

		ctx.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		ctx.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		ctx.Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset.Unix(), 10))

		if !res.Allowed {
			ctx.Set("Retry-After", strconv.Itoa(res.RetryAfter))
			return ctx.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"status":  "error",
				"message": res.Message,
			})
		}

		return ctx.Next()
	}
}
