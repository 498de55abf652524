package auth

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/config"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/routes"
)

// Ed25519ChallengeHandler serves the current challenge (GET) and rotates it (POST).
func Ed25519ChallengeHandler(provider *Ed25519AuthProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := zerolog.Ctx(r.Context())
		switch r.Method {
		case http.MethodGet:
			response := map[string]string{
				"challenge": base64.StdEncoding.EncodeToString(provider.GetChallenge()),
			}

			w.Header().Set(config.HCType, config.CTypeJSON)
			json.NewEncoder(w).Encode(response)

		case http.MethodPost:
			if err := provider.RefreshChallenge(); err != nil {
				l.Error().Err(err).Msg("Failed to refresh challenge")
				http.Error(w, config.ErrRefreshChallengeFmt, http.StatusInternalServerError)
				return
			}

			response := map[string]string{
				"challenge": base64.StdEncoding.EncodeToString(provider.GetChallenge()),
			}

			w.Header().Set(config.HCType, config.CTypeJSON)
			json.NewEncoder(w).Encode(response)

		default:
			http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		}
	}
}

// Ed25519VerifyHandler verifies a signed challenge and sets the auth cookie.
func Ed25519VerifyHandler(provider *Ed25519AuthProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
			return
		}

		authHeader := r.Header.Get(provider.headerName)
		if authHeader == "" {
			http.Error(w, config.ErrAuthHeaderRequired, http.StatusUnauthorized)
			return
		}

		signature, err := base64.StdEncoding.DecodeString(strings.TrimSpace(authHeader))
		if err != nil {
			authLogger.Error().Err(err).Msg("Failed to decode signature")
			http.Error(w, config.ErrInvalidSignatureFormat, http.StatusUnauthorized)
			return
		}

		if !ed25519.Verify(provider.publicKey, provider.challenge, signature) {
			authLogger.Error().Msg("Signature verification failed")
			http.Error(w, config.ErrInvalidSignature, http.StatusUnauthorized)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     config.CookieAuthToken,
			Value:    base64.StdEncoding.EncodeToString(signature),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
			Secure:   r.TLS != nil,
			MaxAge:   3600 * 24, // 24 hours
		})

		w.WriteHeader(http.StatusOK)
	}
}

// RegisterEd25519AuthRoutes registers the dev-mode unlock endpoints.
func RegisterEd25519AuthRoutes(mux *http.ServeMux, provider *Ed25519AuthProvider) {
	mux.HandleFunc(routes.AuthChallenge, Ed25519ChallengeHandler(provider))
	mux.HandleFunc(routes.AuthVerify, Ed25519VerifyHandler(provider))
}
