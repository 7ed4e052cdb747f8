// Package token issues and verifies the session tokens that prove a prior
// successful login. The strategy is an interface so JWT can be swapped for
// opaque or delegated tokens without touching the services.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalid = errors.New("invalid session token")

type Strategy interface {
	Issue(userID string) (string, error)
	Verify(token string) (string, error)
}

type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// JWT signs HS256 tokens carrying the user id.
type JWT struct {
	secret []byte
	ttl    time.Duration
}

var _ Strategy = (*JWT)(nil)

func NewJWT(secret string, ttl time.Duration) *JWT {
	return &JWT{secret: []byte(secret), ttl: ttl}
}

func (j *JWT) Issue(userID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}

func (j *JWT) Verify(tokenString string) (string, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return j.secret, nil
	})
	if err != nil || !parsed.Valid || claims.UserID == "" {
		return "", ErrInvalid
	}
	return claims.UserID, nil
}
