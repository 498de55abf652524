// Package routes defines HTTP route constants for the content service.
package routes

const (
	// Editing pipeline
	APIContent    = "/api/content/{project}"
	APIPublish    = "/api/publish/{project}"
	APIClearCache = "/api/cache/{project}/clear"
	APIPublished  = "/api/published/{project}"
	APIResolve    = "/api/resolve/{project}"
	APIMeta       = "/api/meta/{project}"
	APICaptions   = "/api/captions/{project}"
	APIImages     = "/api/images/{project}"
	APIWrites     = "/api/writes/{id}"

	// SSE
	SSEPath = "/sse"

	// Auth routes
	AuthChallenge = "/auth/challenge"
	AuthVerify    = "/auth/verify"

	// Health
	HealthPath = "/healthz"
)
