package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ledgerworks/walletledger/internal/form"
)

const rateLimitPrefix = "rl:transfer:"

// TransferRateLimit caps transfer attempts per sender wallet per minute using
// a Redis counter. Without Redis, with maxPerMin <= 0, or when Redis errors,
// requests pass through.
func TransferRateLimit(cache *redis.Client, maxPerMin int, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cache == nil || maxPerMin <= 0 {
			return c.Next()
		}
		subject := c.IP()
		if f, err := form.Parse(c); err == nil {
			if sender, ok := f.Raw("sender_id"); ok {
				subject = "wallet:" + strings.TrimSpace(sender)
			}
		}
		key := rateLimitPrefix + subject

		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			logger.Warn("transfer rate limit unavailable", slog.Any("error", err))
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			c.Set(fiber.HeaderRetryAfter, "60")
			return c.Status(http.StatusTooManyRequests).JSON(fiber.Map{"error": "too many transfer attempts, try again later"})
		}
		return c.Next()
	}
}
