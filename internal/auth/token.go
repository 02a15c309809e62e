package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// DecodeIdentity extracts the user identity from the payload segment of
// an identity token. Only the middle base64url segment is decoded; the
// signature is not checked here.
func DecodeIdentity(idToken string) (Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return Identity{}, fmt.Errorf("decoding identity token: %w", err)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Identity{}, fmt.Errorf("identity token payload has no subject")
	}

	id := Identity{Subject: sub}
	if email, ok := claims["email"].(string); ok {
		id.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		id.DisplayName = name
	}
	if pic, ok := claims["picture"].(string); ok {
		id.PictureURL = pic
	}
	return id, nil
}
