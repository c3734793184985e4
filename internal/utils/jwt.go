package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type jwtCustomClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// RoleAdmin is the only role tokens are issued for.
const RoleAdmin = "admin"

// GenerateToken creates a signed admin JWT for the provided username.
func GenerateToken(secret, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &jwtCustomClaims{
		Username: username,
		Role:     RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates the token and returns the embedded username.
func ParseToken(secret, tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtCustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}

	if claims, ok := token.Claims.(*jwtCustomClaims); ok && token.Valid && claims.Role == RoleAdmin && claims.Username != "" {
		return claims.Username, nil
	}

	return "", jwt.ErrTokenInvalidClaims
}
