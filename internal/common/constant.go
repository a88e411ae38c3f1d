// Package common contains shared constants and sentinel errors used across
// HiiNen server components.
package common

const (
	// AuthorizationHeader carries the bearer access token on HTTP requests.
	AuthorizationHeader = "Authorization"
	// BearerPrefix precedes the token inside AuthorizationHeader.
	BearerPrefix = "Bearer "
	// RequestIDHeader is echoed back on every HTTP response.
	RequestIDHeader = "X-Request-ID"
)
