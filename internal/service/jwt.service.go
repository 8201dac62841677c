package service

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/melodex/server/internal/domain"
)

var ErrInvalidToken = errors.New("invalid token")

const (
	userIdKey = "user_id"
	nameKey   = "name"
)

type Claims struct {
	UserId string
	Name   string
}

// GenerateToken signs a user token. Sign-in itself happens outside this server;
// the token only carries the user id and display name.
func (s service) GenerateToken(userId, name string) (string, error) {
	claims := jwt.MapClaims{
		userIdKey: userId,
		nameKey:   name,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(s.secret)
}

func (s service) parseJWT(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	})
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

	userId, ok := claims[userIdKey].(string)
	if !ok || userId == "" {
		return nil, ErrInvalidToken
	}

	name, _ := claims[nameKey].(string)

	return &Claims{
		UserId: userId,
		Name:   name,
	}, nil
}

type AuthenticateParams struct {
	Token         string
	ParticipantId string
}

type AuthenticateResponse struct {
	Identity domain.Identity
	// Name is the display name carried by a user token.
	Name string
}

// Authenticate resolves the caller identity: a user when a token is given,
// a guest when only a participant id is, anonymous otherwise.
func (s service) Authenticate(params *AuthenticateParams) (AuthenticateResponse, error) {
	if params.Token != "" {
		claims, err := s.parseJWT(params.Token)
		if err != nil {
			return AuthenticateResponse{}, err
		}

		return AuthenticateResponse{
			Identity: domain.UserIdentity(claims.UserId),
			Name:     claims.Name,
		}, nil
	}

	if params.ParticipantId != "" {
		if err := validateParticipantId(params.ParticipantId); err != nil {
			return AuthenticateResponse{}, err
		}

		return AuthenticateResponse{
			Identity: domain.GuestIdentity(params.ParticipantId),
		}, nil
	}

	return AuthenticateResponse{}, nil
}
