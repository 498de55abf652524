package auth

import (
	"context"

	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/model"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

// ContextKeyUserID is the key for user ID in request context
const ContextKeyUserID ContextKey = "userID"

// ContextWithUserID returns a new context with the user ID set
func ContextWithUserID(ctx context.Context, userID model.UserID) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// UserIDFromContext extracts the user ID from context
func UserIDFromContext(ctx context.Context) (model.UserID, bool) {
	userID, ok := ctx.Value(ContextKeyUserID).(model.UserID)
	return userID, ok
}

// CurrentUser returns the editing identity for ctx, or AnonymousUser when
// nobody is signed in. This is the getCurrentUser boundary that stamps
// editedBy on overrides.
func CurrentUser(ctx context.Context) model.UserID {
	if userID, ok := UserIDFromContext(ctx); ok && userID != "" {
		return userID
	}
	return model.AnonymousUser
}
