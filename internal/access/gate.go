// Package access decides whether a bearer token may act on a bucketlist.
//
// Checks run in a fixed order and short-circuit on the first failure:
// missing token, token validity, revocation, whether the subject's user still
// exists, then ownership of the target bucketlist. A bucketlist the caller does not own is reported as not found,
// never as unauthorized. Items have no check of their own; they are reached
// only through their parent bucketlist.
package access

//go:generate mockgen -source=gate.go -destination=mocks/mocks.go -package=mocks TokenValidator,RevocationChecker,SubjectLookup,OwnershipLookup

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	jwttoken "bucketlist/internal/jwt_token"
	id "bucketlist/pkg/domain"
	dErrors "bucketlist/pkg/domain-errors"
	"bucketlist/pkg/platform/sentinel"
)

// Client-facing messages.
const (
	MsgMissingToken       = "unauthorized action"
	MsgTokenExpired       = "Signature expired. Please log in again."
	MsgTokenInvalid       = "Invalid token. Please log in again."
	MsgTokenRevoked       = "token has been revoked"
	MsgUnknownUser        = "user no longer exists"
	MsgBucketlistNotFound = "Bucketlist not found"
)

var decisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "bucketlist_access_decisions_total",
	Help: "Access gate outcomes",
}, []string{"outcome"})

type TokenValidator interface {
	ValidateToken(token string) (*jwttoken.Claims, error)
}

type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// SubjectLookup reports whether a token's subject still has a user row.
type SubjectLookup interface {
	UserExists(ctx context.Context, userID id.UserID) (bool, error)
}

// OwnershipLookup resolves a bucketlist's owner. It returns
// sentinel.ErrNotFound for unknown bucketlists.
type OwnershipLookup interface {
	OwnerOf(ctx context.Context, bucketlistID id.BucketlistID) (id.UserID, error)
}

// Target names the resource a request acts on. A zero BucketlistID means the
// request only needs an authenticated user.
type Target struct {
	BucketlistID id.BucketlistID
}

// Decision is the outcome of a successful authorization.
type Decision struct {
	UserID    id.UserID
	TokenID   string
	ExpiresAt time.Time
}

type Gate struct {
	tokens      TokenValidator
	revocations RevocationChecker
	subjects    SubjectLookup
	owners      OwnershipLookup
	logger      *slog.Logger
}

type Option func(*Gate)

// WithRevocationChecker enables logout-aware token checks.
func WithRevocationChecker(rc RevocationChecker) Option {
	return func(g *Gate) {
		g.revocations = rc
	}
}

// WithSubjectLookup rejects tokens whose user has been deleted.
func WithSubjectLookup(sl SubjectLookup) Option {
	return func(g *Gate) {
		g.subjects = sl
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

func New(tokens TokenValidator, owners OwnershipLookup, opts ...Option) *Gate {
	g := &Gate{tokens: tokens, owners: owners, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authorize validates token and, when target names a bucketlist, checks that
// the token's subject owns it.
func (g *Gate) Authorize(ctx context.Context, token string, target Target) (*Decision, error) {
	if token == "" {
		decisions.WithLabelValues("missing_token").Inc()
		return nil, dErrors.New(dErrors.CodeUnauthorized, MsgMissingToken)
	}

	claims, err := g.tokens.ValidateToken(token)
	if err != nil {
		if errors.Is(err, jwttoken.ErrTokenExpired) {
			decisions.WithLabelValues("expired").Inc()
			return nil, dErrors.New(dErrors.CodeUnauthorized, MsgTokenExpired)
		}
		decisions.WithLabelValues("invalid").Inc()
		return nil, dErrors.New(dErrors.CodeUnauthorized, MsgTokenInvalid)
	}

	if g.revocations != nil && claims.ID != "" {
		revoked, err := g.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			g.logger.ErrorContext(ctx, "failed to check token revocation", "error", err)
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check token revocation")
		}
		if revoked {
			decisions.WithLabelValues("revoked").Inc()
			return nil, dErrors.New(dErrors.CodeUnauthorized, MsgTokenRevoked)
		}
	}

	if g.subjects != nil {
		exists, err := g.subjects.UserExists(ctx, claims.UserID)
		if err != nil {
			g.logger.ErrorContext(ctx, "failed to look up token subject", "error", err)
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
		}
		if !exists {
			decisions.WithLabelValues("unknown_user").Inc()
			return nil, dErrors.New(dErrors.CodeUnauthorized, MsgUnknownUser)
		}
	}

	if !target.BucketlistID.IsNil() {
		owner, err := g.owners.OwnerOf(ctx, target.BucketlistID)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			decisions.WithLabelValues("not_found").Inc()
			return nil, dErrors.New(dErrors.CodeNotFound, MsgBucketlistNotFound)
		case err != nil:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load bucketlist")
		case owner != claims.UserID:
			decisions.WithLabelValues("not_owner").Inc()
			return nil, dErrors.New(dErrors.CodeNotFound, MsgBucketlistNotFound)
		}
	}

	decisions.WithLabelValues("allowed").Inc()
	d := &Decision{UserID: claims.UserID, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		d.ExpiresAt = claims.ExpiresAt.Time
	}
	return d, nil
}
