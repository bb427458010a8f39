package cozycurated

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/klipach/cozycurated/contract"
	"github.com/klipach/cozycurated/log"
	"golang.org/x/time/rate"
)

// rateLimit rejects requests once the shared token bucket is empty.
func rateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			log.LoggerFromContext(c.Request.Context()).Warn("rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, contract.ErrorResponse{Error: "Too many requests"})
			return
		}
		c.Next()
	}
}
