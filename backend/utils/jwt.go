package utils

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/aimastery/academy/backend/apperr"
	"github.com/aimastery/academy/backend/config"
)

type Claims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

func GenerateJWTToken(userID uint, cfg *config.Config) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.JWTExpiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ParseJWTToken accepts the raw token or an "Authorization: Bearer <token>" value.
func ParseJWTToken(header string, cfg *config.Config) (uint, error) {
	tokenString := strings.TrimSpace(header)
	if len(tokenString) > 7 && strings.EqualFold(tokenString[:7], "bearer ") {
		tokenString = strings.TrimSpace(tokenString[7:])
	}
	if tokenString == "" {
		return 0, apperr.Wrap(apperr.ErrUnauthorized, "Missing authorization token")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.Wrap(apperr.ErrUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, apperr.Wrap(apperr.ErrUnauthorized, "Invalid token")
	}
	if claims.UserID == 0 {
		return 0, apperr.Wrap(apperr.ErrUnauthorized, "Invalid user ID in token")
	}
	return claims.UserID, nil
}
