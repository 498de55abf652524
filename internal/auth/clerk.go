package auth

import (
	"errors"
	"net/http"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkhttp "github.com/clerk/clerk-sdk-go/v2/http"
	clerkuser "github.com/clerk/clerk-sdk-go/v2/user"

	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/model"
)

// ClerkAuthProvider resolves editing identity from Clerk sessions. Clerk's
// user management, webhooks and account lifecycle are its own business;
// this provider only ever asks "who is this request".
type ClerkAuthProvider struct {
	cookieExtractor clerkhttp.AuthorizationOption
}

func NewClerkAuthProvider(clerkKey string) *ClerkAuthProvider {
	clerk.SetKey(clerkKey)

	return &ClerkAuthProvider{
		cookieExtractor: clerkhttp.AuthorizationJWTExtractor(func(r *http.Request) string {
			cookie, err := r.Cookie("__session")
			if err != nil || cookie == nil {
				authLogger.Debug().Err(err).Msg("Authorization cookie not found")
				return ""
			}
			return cookie.Value
		}),
	}
}

func (c *ClerkAuthProvider) WithHeaderAuthorization() func(http.Handler) http.Handler {
	return clerkhttp.WithHeaderAuthorization(c.cookieExtractor)
}

func (c *ClerkAuthProvider) GetUserIDFromSession(r *http.Request) (model.UserID, error) {
	claims, ok := clerk.SessionClaimsFromContext(r.Context())
	if !ok {
		return "", errors.New("failed to get session claims from context")
	}

	usr, err := clerkuser.Get(r.Context(), claims.Subject)
	if err != nil {
		return "", err
	}

	return model.UserID(usr.ID), nil
}

func (c *ClerkAuthProvider) EnforceUserAndGetID(w http.ResponseWriter, r *http.Request) (model.UserID, error) {
	userID, err := c.GetUserIDFromSession(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return "", err
	}
	return userID, nil
}
