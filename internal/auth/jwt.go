package auth

import (
	"fmt"
	"time"

	"cosmos-server/internal/shared/config"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the identity extracted from a signed token. The credential
// store issuing these tokens lives outside this service; we only consume
// the opaque userId.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

func jwtSecret() (string, error) {
	if config.GlobalConfig == nil || config.GlobalConfig.Auth.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret is not configured")
	}
	return config.GlobalConfig.Auth.JWTSecret, nil
}

// GenerateToken signs an identity token for the given user.
func GenerateToken(userID string) (string, error) {
	secret, err := jwtSecret()
	if err != nil {
		return "", fmt.Errorf("cannot generate token: %w", err)
	}

	expiration := config.GlobalConfig.Auth.TokenExpiration
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken parses and verifies an identity token.
func ValidateToken(tokenString string) (*Claims, error) {
	secret, err := jwtSecret()
	if err != nil {
		return nil, fmt.Errorf("cannot validate token: %w", err)
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.UserID != "" {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
