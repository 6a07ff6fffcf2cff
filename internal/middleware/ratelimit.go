package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

const CodeRateLimited = "RATE_LIMITED"

// LoginRateLimiterはログイン系エンドポイント用のIP別固定窓リミッター。
// 資格情報の総当たり対策。redisが落ちている間は素通し（fail-open）で、
// 認証自体を止めることはしない。
func LoginRateLimiter(rdb *redis.Client, limit int, window time.Duration) echo.MiddlewareFunc {
	if rdb == nil || limit <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			key := "ratelimit:login:" + ip

			ctx := c.Request().Context()

			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				//redis障害時は素通し
				return next(c)
			}
			if count == 1 {
				_ = rdb.Expire(ctx, key, window).Err()
			}

			if count > int64(limit) {
				ttl, err := rdb.TTL(ctx, key).Result()
				if err != nil || ttl < 0 {
					ttl = window
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(ttl.Seconds())))
				return c.JSON(http.StatusTooManyRequests, guardErrorResponse{
					Success: false,
					Message: "too many login attempts",
					Error:   CodeRateLimited,
				})
			}

			return next(c)
		}
	}
}
