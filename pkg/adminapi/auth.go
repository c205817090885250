package adminapi

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminSubject is the subject claim carried by admin bearer tokens
const AdminSubject = "admin"

// tokenTTL keeps each signed token valid just long enough for one request
const tokenTTL = time.Minute

// Claims are the JWT claims sent to and accepted by the admin API
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// SignToken issues a short-lived HS256 admin token
func SignToken(secret, name string, now time.Time) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("token secret is empty")
	}
	claims := &Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   AdminSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates an admin token signed with secret
func ParseToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject != AdminSubject {
		return nil, fmt.Errorf("unexpected subject: %q", claims.Subject)
	}
	return claims, nil
}
