package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSignature is returned when a token was not signed with the
// expected secret and algorithm.
var ErrInvalidSignature = errors.New("invalid token signature")

// ErrExpired is returned for a correctly signed token past its exp claim.
var ErrExpired = errors.New("token expired")

// Sign issues an HS256 JWT carrying claims.
func Sign(claims Claims, secret string) (string, error) {
	if secret == "" {
		return "", errors.New("signing secret is empty")
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return token, nil
}

// Issue signs a token for userID valid for ttl. A non-positive ttl issues a
// token without an exp claim.
func Issue(userID, email, secret string, ttl time.Duration, now time.Time) (string, error) {
	c := Claims{
		UserID:           userID,
		Email:            email,
		RegisteredClaims: jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(now)},
	}
	if ttl > 0 {
		c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return Sign(c, secret)
}

// Verify checks that token is HS256-signed with secret and unexpired at now,
// and returns its claims.
func Verify(token, secret string, now time.Time) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (interface{}, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenMalformed):
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, ErrExpired
	default:
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	if claims.UserID == "" {
		return Claims{}, fmt.Errorf("token has no user id: %w", ErrMalformedToken)
	}
	return claims, nil
}
