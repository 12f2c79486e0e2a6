package session

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type Role string

const (
	RoleHost    Role = "host"
	RoleSurface Role = "surface"
)

const (
	sessionIdKey = "session_id"
	roleKey      = "role"
)

type Claims struct {
	SessionId string `json:"session_id"`
	Role      Role   `json:"role"`
}

func (s *service) generateJWT(sessionId string, role Role) (string, error) {
	claims := jwt.MapClaims{
		sessionIdKey: sessionId,
		roleKey:      string(role),
		"exp":        s.now().Add(s.cfg.TokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(s.cfg.Secret))
}

func (s *service) parseJWT(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sessionId, ok := claims[sessionIdKey].(string)
	if !ok {
		return nil, ErrInvalidToken
	}

	role, ok := claims[roleKey].(string)
	if !ok {
		return nil, ErrInvalidToken
	}

	return &Claims{
		SessionId: sessionId,
		Role:      Role(role),
	}, nil
}

// Authorize checks that token grants role on the session.
func (s *service) Authorize(sessionId, token string, role Role) error {
	claims, err := s.parseJWT(token)
	if err != nil {
		return err
	}

	if claims.SessionId != sessionId || claims.Role != role {
		return ErrInvalidToken
	}

	return nil
}
