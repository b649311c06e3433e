package auth

import (
	"fmt"
	"time"

	"cyberrange-server/internal/shared/config"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the stable player identifier issued by the identity
// provider. The game engines trust PlayerID as-is; how the token was
// obtained is outside the core.
type Claims struct {
	PlayerID string `json:"player_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func getJWTSecret() (string, error) {
	cfg := config.GlobalConfig
	if cfg == nil || cfg.Auth.JWTSecret == "" {
		return "", fmt.Errorf("JWT_SECRET is required but not set")
	}
	return cfg.Auth.JWTSecret, nil
}

func GenerateJWT(playerID, role string) (string, error) {
	secret, err := getJWTSecret()
	if err != nil {
		return "", fmt.Errorf("cannot generate JWT: %w", err)
	}

	expiration := 24 * time.Hour
	if config.GlobalConfig != nil && config.GlobalConfig.Auth.TokenExpiration > 0 {
		expiration = config.GlobalConfig.Auth.TokenExpiration
	}

	claims := Claims{
		PlayerID: playerID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   playerID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateJWT(tokenString string) (*Claims, error) {
	secret, err := getJWTSecret()
	if err != nil {
		return nil, fmt.Errorf("cannot validate JWT: %w", err)
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if claims.PlayerID == "" {
		return nil, fmt.Errorf("token does not carry a player id")
	}

	return claims, nil
}
