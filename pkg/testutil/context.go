package testutil

import (
	"net/http"

	id "provenant/pkg/domain"
	"provenant/pkg/requestcontext"
)

// WithCaller attaches an authenticated caller identity to the request, as the
// auth middleware would. Invalid identities are silently ignored.
func WithCaller(req *http.Request, caller string) *http.Request {
	parsed, err := id.ParseIdentity(caller)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithCaller(req.Context(), parsed))
}
