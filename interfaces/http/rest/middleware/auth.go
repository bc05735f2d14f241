package middleware

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"astraea-backend/pkg/auth"
	"astraea-backend/pkg/common"
	apperrors "astraea-backend/pkg/errors"
)

// Authenticate validates the bearer token on every request and loads the
// authenticated principal into the context. Handlers downstream can assume a
// principal is always present.
func Authenticate(validator *auth.TokenValidator, responder *apperrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := validator.Validate(r.Header.Get("Authorization"))
			if err != nil {
				logger.Warn("request rejected",
					zap.String("path", r.URL.Path),
					zap.String("ip", ClientIP(r)),
					zap.Error(err),
				)
				responder.HandleStatus(w, r, http.StatusUnauthorized, unauthorizedMessage(err))
				return
			}

			ctx := auth.WithPrincipal(r.Context(), principal)
			ctx = common.WithUserID(ctx, principal.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthenticateFromGateway trusts identity headers stamped by the Lambda
// adapter after the API Gateway JWT authorizer has already validated the
// token. Never mount this on a directly reachable server.
func AuthenticateFromGateway(responder *apperrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := r.Header.Get("X-User-ID")
			if userID == "" {
				logger.Warn("gateway-authorized request missing user header",
					zap.String("path", r.URL.Path),
				)
				responder.HandleStatus(w, r, http.StatusUnauthorized, "missing user context")
				return
			}

			role := r.Header.Get("X-User-Role")
			if role == "" {
				role = "authenticated"
			}
			principal := &auth.Principal{
				UserID: userID,
				Email:  r.Header.Get("X-User-Email"),
				Role:   role,
			}

			ctx := auth.WithPrincipal(r.Context(), principal)
			ctx = common.WithUserID(ctx, principal.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimit throttles requests per authenticated user, falling back to the
// client IP before authentication. Mounted after Authenticate so the user key
// is available. Limiter failures never reject requests.
func RateLimit(limiter auth.RateLimiter, responder *apperrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := auth.IPKey(ClientIP(r))
			if principal, ok := auth.PrincipalFrom(r.Context()); ok {
				key = auth.UserKey(principal.UserID)
			}

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				// Fail open: a broken limiter must not take the API down.
				logger.Warn("rate limiter error", zap.String("key", key), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", "60")
				responder.HandleStatus(w, r, http.StatusTooManyRequests, "rate limit exceeded, retry later")
				return
			}

			if distributed, ok := limiter.(*auth.DistributedRateLimiter); ok {
				if headers, err := distributed.Headers(r.Context(), key); err == nil {
					for name, value := range headers {
						w.Header().Set(name, value)
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP resolves the originating client address behind proxies.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}

func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return "missing bearer token"
	case errors.Is(err, auth.ErrExpiredToken):
		return "token has expired"
	case errors.Is(err, auth.ErrInvalidSignature):
		return "invalid token signature"
	default:
		return "invalid token"
	}
}
