package testutil

import (
	"net/http"

	id "bucketlist/pkg/domain"
	"bucketlist/pkg/requestcontext"
)

// WithUserID adds a user ID to the request context, as the access gate would
// after a successful authorization.
func WithUserID(req *http.Request, userID id.UserID) *http.Request {
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}

// WithBearer sets an Authorization: Bearer header.
func WithBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
