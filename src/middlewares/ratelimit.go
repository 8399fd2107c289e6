package middlewares

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"ticketflow/src/lib"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimit is a fixed-window limiter backed by redis INCR+EXPIRE, keyed
// by route name and client IP. It fails open: with no redis configured or
// an errored round trip the request passes through.
func RateLimit(name string, limit int64, window time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		rd := lib.GetRedisClient()
		if rd == nil {
			return
		}
		key := fmt.Sprintf("ratelimit:%s:%s", name, ctx.ClientIP())
		count, err := rd.Incr(context.Background(), key).Result()
		if err != nil {
			log.Printf("[ratelimit] redis error, failing open: %s\n", err.Error())
			return
		}
		if count == 1 {
			rd.Expire(context.Background(), key, window)
		}
		if count > limit {
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, try again later"})
			return
		}
	}
}
