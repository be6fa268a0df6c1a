package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Strob0t/askdesk/internal/logger"
)

// HeaderUserID carries the authenticated user ID set by the upstream auth
// gateway. askdesk never authenticates on its own.
const HeaderUserID = "X-User-ID"

const maxUserIDLength = 128

type userCtxKey struct{}

// Identity stores the requesting user from X-User-ID in the request context.
// A missing or blank header leaves the request anonymous.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if uid == "" || len(uid) > maxUserIDLength {
			next.ServeHTTP(w, r)
			return
		}
		ctx := WithUserID(r.Context(), uid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithUserID returns ctx carrying uid as the requesting user, also tagging
// log records with it.
func WithUserID(ctx context.Context, uid string) context.Context {
	ctx = context.WithValue(ctx, userCtxKey{}, uid)
	return logger.WithFields(ctx, logger.Fields{UserID: uid})
}

// UserIDFromContext returns the requesting user, or nil when anonymous.
func UserIDFromContext(ctx context.Context) *string {
	uid, ok := ctx.Value(userCtxKey{}).(string)
	if !ok || uid == "" {
		return nil
	}
	return &uid
}
