package config

const (
	HCType        = "Content-Type"
	HETag         = "ETag"
	HCacheControl = "Cache-Control"

	CTypeJSON = "application/json"
	CTypeHTML = "text/html"
)

const (
	HTTPErrMethodNotAllowed = "Method not allowed"
)

const (
	CookieAuthToken = "auth_token"
)
