package auth

import "time"

// Session holds the tokens minted by the identity provider for one
// signed-in user. The tokens are opaque to this package except for the
// identity token, whose payload is decoded (unverified) into an
// Identity. A Session is valid strictly until ExpiresAt.
type Session struct {
	IDToken      string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Valid reports whether the session is usable at the given instant.
// An expired session must never be handed to the resource layer;
// callers refresh first.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && now.Before(s.ExpiresAt)
}

// Identity is decoded once per session from the identity-token payload
// and is immutable for the session's lifetime.
type Identity struct {
	Subject     string
	Email       string
	DisplayName string
	PictureURL  string
}

// CloudCredentials are the temporary access key / secret / session
// token triple derived from a valid Session via the identity pool.
// They are held in memory only and re-derived whenever the session is
// refreshed; they are never written to durable storage.
type CloudCredentials struct {
	AccessKeyID  string
	SecretKey    string
	SessionToken string
	Expiration   time.Time
}

// Usable reports whether the credentials can still sign requests at
// the given instant. A zero Expiration means the provider did not
// report one and the credentials are assumed live.
func (c *CloudCredentials) Usable(now time.Time) bool {
	if c == nil || c.AccessKeyID == "" || c.SecretKey == "" || c.SessionToken == "" {
		return false
	}
	return c.Expiration.IsZero() || now.Before(c.Expiration)
}
