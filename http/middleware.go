package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/sagarc03/davgate"
)

// Authenticator decides whether a request may proceed. *davgate.Guard implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, req davgate.AuthRequest) (davgate.AuthResult, error)
}

// AuthMiddleware runs every request through auth before it reaches a bucket.
// A ledger failure denies the request with 503.
func AuthMiddleware(auth Authenticator, identity davgate.IdentityPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")

			result, err := auth.Authenticate(r.Context(), davgate.AuthRequest{
				Method:        r.Method,
				Authorization: header,
				Identity:      identity.Identify(r.Header, r.RemoteAddr),
			})
			if err != nil {
				HandleError(w, err)
				return
			}

			switch result.Decision {
			case davgate.Allowed:
				next.ServeHTTP(w, r)
			case davgate.DeniedBanned:
				writeBanned(w, result.RetryAfter)
			case davgate.DeniedUnauthorized:
				if header == "" {
					HandleError(w, davgate.ErrAuthMissing)
					return
				}
				HandleError(w, davgate.ErrAuthInvalid)
			default:
				HandleError(w, result.Err())
			}
		})
	}
}

// ResolveMiddleware resolves the request path into a Target for the handlers.
// Unknown buckets are answered with 404 here.
func ResolveMiddleware(resolver *Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			target, err := resolver.Resolve(r.URL.Path)
			if err != nil {
				HandleError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithTarget(r.Context(), target)))
		})
	}
}

// RateLimit caps requests per minute for each client identity.
func RateLimit(requestsPerMinute int, identity davgate.IdentityPolicy) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return identity.Identify(r.Header, r.RemoteAddr), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			WriteError(w, http.StatusTooManyRequests, "rate_limited", "Rate limit exceeded")
		}),
	)
}

// RequestLogger logs one line per request. The Authorization header is never logged.
func RequestLogger(logger *slog.Logger, identity davgate.IdentityPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(wrapped, r)

			status := wrapped.Status()
			if status == 0 {
				status = http.StatusOK
			}

			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}

			logger.LogAttrs(r.Context(), level, "http_request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", wrapped.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("identity", identity.Identify(r.Header, r.RemoteAddr)),
			)
		})
	}
}
