package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"
)

// Claims is the minimal shape this service expects from a bearer token
// minted by an external identity provider. Token issuance is explicitly out
// of scope (spec.md keeps auth external); this package only verifies.
type Claims struct {
	jwt.RegisteredClaims
	ExternalUserID string `json:"sub"`
	Nickname       string `json:"nickname"`
}

// Authenticator verifies HS256 bearer tokens against a shared secret. It is
// the one "auth" piece spec.md allows in-repo: verification, not issuance.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Verify parses and validates tokenString, returning the resolved
// externalUserId and nickname.
func (a *Authenticator) Verify(tokenString string) (externalUserID, nickname string, err error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", "", err
	}
	if !token.Valid {
		return "", "", errors.New("token is not valid")
	}
	if claims.ExternalUserID == "" {
		return "", "", errors.New("token missing subject claim")
	}
	return claims.ExternalUserID, claims.Nickname, nil
}
