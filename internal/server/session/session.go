package session

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the issuer of every session token.
const Issuer = "passgate"

// Claims are the claims carried by a session token.
// Binding is the session binding value of the user at issuance.
type Claims struct {
	jwt.RegisteredClaims
	Binding string `json:"sbh"`
}

// TokenFromAuthorization extracts the token of a bearer Authorization header value.
func TokenFromAuthorization(authorization string) string {
	parts := strings.Split(authorization, " ")
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
