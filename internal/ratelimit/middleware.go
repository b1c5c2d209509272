package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"bucketlist/pkg/platform/httputil"
	"bucketlist/pkg/requestcontext"
)

var rejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "bucketlist_rate_limited_total",
	Help: "Requests rejected by the rate limiter, by endpoint class",
}, []string{"class"})

// Store counts requests per key.
type Store interface {
	Allow(ctx context.Context, key string, p Policy) (*Result, error)
}

type Middleware struct {
	store    Store
	policies map[Class]Policy
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

// WithPolicy overrides the policy for class.
func WithPolicy(class Class, p Policy) Option {
	return func(m *Middleware) {
		if p.Limit > 0 && p.Window > 0 {
			m.policies[class] = p
		}
	}
}

// WithDisabled turns every check into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func New(store Store, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		store:    store,
		policies: map[Class]Policy{ClassAuth: DefaultAuthPolicy},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// Limit throttles requests per client IP under class's policy. Store
// failures let the request through.
func (m *Middleware) Limit(class Class) func(http.Handler) http.Handler {
	policy := m.policies[class]
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled || policy.Limit == 0 {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)
			result, err := m.store.Allow(ctx, key(class, ip), policy)
			if err != nil {
				m.logger.ErrorContext(ctx, "rate limit check failed",
					"error", err,
					"class", class,
					"request_id", requestcontext.RequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				rejected.WithLabelValues(string(class)).Inc()
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
				httputil.WriteJSON(w, http.StatusTooManyRequests, exceededResponse{
					Error:      "rate_limit_exceeded",
					Message:    "Too many requests. Please try again later.",
					RetryAfter: result.RetryAfter,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
