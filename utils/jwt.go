package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// FlashClaims carries a one-shot notification between a redirect and the next page.
type FlashClaims struct {
	Category string `json:"cat"`
	Message  string `json:"msg"`
	jwt.RegisteredClaims
}

// SignFlash issues an HS256 token for the flash, valid for ttl.
func SignFlash(secret, category, message string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := FlashClaims{
		Category: category,
		Message:  message,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseFlash validates a flash token and returns its claims.
func ParseFlash(secret, tokenStr string) (*FlashClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &FlashClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*FlashClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid flash claims")
	}
	return claims, nil
}
