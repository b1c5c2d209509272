package access

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	id "bucketlist/pkg/domain"
	dErrors "bucketlist/pkg/domain-errors"
	"bucketlist/pkg/platform/httputil"
	"bucketlist/pkg/platform/middleware/auth"
	"bucketlist/pkg/requestcontext"
)

// TargetFunc derives the Target of a request, typically from path params.
type TargetFunc func(r *http.Request) (Target, error)

// Authenticated requires a valid token and no particular resource.
func Authenticated(*http.Request) (Target, error) {
	return Target{}, nil
}

// BucketlistParam reads the bucketlist id from the named chi URL param. An
// unparseable id is reported the same way as a bucketlist that does not exist.
func BucketlistParam(param string) TargetFunc {
	return func(r *http.Request) (Target, error) {
		bucketlistID, err := id.ParseBucketlistID(chi.URLParam(r, param))
		if err != nil {
			return Target{}, dErrors.New(dErrors.CodeNotFound, MsgBucketlistNotFound)
		}
		return Target{BucketlistID: bucketlistID}, nil
	}
}

// Middleware authorizes each request before it reaches next. On success the
// user id and token identity are placed in the request context.
func (g *Gate) Middleware(targetFn TargetFunc) func(http.Handler) http.Handler {
	if targetFn == nil {
		targetFn = Authenticated
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := auth.ExtractToken(r)

			target, targetErr := targetFn(r)
			if targetErr != nil {
				// Authentication failures still take precedence over a bad path.
				if _, err := g.Authorize(ctx, token, Target{}); err != nil {
					g.reject(w, r, err)
					return
				}
				g.reject(w, r, targetErr)
				return
			}

			decision, err := g.Authorize(ctx, token, target)
			if err != nil {
				g.reject(w, r, err)
				return
			}

			ctx = requestcontext.WithUserID(ctx, decision.UserID)
			ctx = requestcontext.WithToken(ctx, requestcontext.TokenInfo{
				ID:        decision.TokenID,
				ExpiresAt: decision.ExpiresAt,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (g *Gate) reject(w http.ResponseWriter, r *http.Request, err error) {
	g.logger.InfoContext(r.Context(), "access denied",
		"path", r.URL.Path,
		"request_id", requestcontext.RequestID(r.Context()),
		"reason", err.Error(),
	)
	httputil.WriteError(w, err)
}
