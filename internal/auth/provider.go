// Package auth gates dev-mode editing and resolves the identity stamped on
// edits. Identity providers are opaque: the rest of the service only ever
// sees a UserID or its absence.
package auth

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/model"
)

type AuthProvider interface {
	WithHeaderAuthorization() func(http.Handler) http.Handler

	GetUserIDFromSession(r *http.Request) (model.UserID, error)

	EnforceUserAndGetID(w http.ResponseWriter, r *http.Request) (model.UserID, error)
}

var authLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	authLogger = l
}
