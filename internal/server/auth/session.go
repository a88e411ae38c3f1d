package auth

import "time"

// Session is what a successful login or refresh hands back to the client.
type Session struct {
	AccessToken  string    `json:"token"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}
