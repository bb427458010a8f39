package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/klipach/cozycurated/contract"
	"github.com/klipach/cozycurated/log"
)

const identityKey = "identity"

type ctxKey struct{}

// Middleware resolves the caller identity when credentials are present. Requests
// without credentials pass through anonymously; invalid credentials are logged
// and treated as anonymous so pages can render the sign-in view.
func Middleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		logger := log.LoggerFromContext(ctx)

		identity, err := Authenticate(c.Request, verifier)
		if err != nil {
			if !errors.Is(err, errNoCredentials) {
				logger.Warn("error while authenticating", slog.String(log.ErrorMsgLogField, err.Error()))
			}
			c.Next()
			return
		}

		logger = logger.With(slog.String(log.UserIDLogField, identity.UID))
		ctx = log.WithLogger(WithIdentity(ctx, identity), logger)
		c.Request = c.Request.WithContext(ctx)
		c.Set(identityKey, identity)
		c.Next()
	}
}

// RequireIdentity aborts with 401 unless Middleware resolved an identity.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := FromGin(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, contract.ErrorResponse{Error: "Unauthorized"})
			return
		}
		c.Next()
	}
}

func FromGin(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	identity, ok := v.(Identity)
	return identity, ok
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, identity)
}

func FromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(ctxKey{}).(Identity)
	return identity, ok
}
