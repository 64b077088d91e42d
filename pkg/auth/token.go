package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService mints and checks the bearer tokens that carry a session
// identifier between the UI boundary and the access layer. The token
// itself is not the session; the server-side session record is.
type TokenService interface {
	Generate(sessionID, username, role string) (string, error)
	Validate(token string) (sessionID string, err error)
}

type jwtService struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTService(secret string, ttl time.Duration) TokenService {
	return &jwtService{secret: []byte(secret), ttl: ttl}
}

func (s *jwtService) Generate(sessionID, username, role string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"jti":  sessionID,
		"sub":  username,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *jwtService) Validate(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token claims")
	}
	sessionID, ok := claims["jti"].(string)
	if !ok || sessionID == "" {
		return "", fmt.Errorf("token missing session id")
	}
	return sessionID, nil
}
