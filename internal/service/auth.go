package service

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/memorialnav/candle-ledger/internal/config"
	"github.com/memorialnav/candle-ledger/internal/domain"
)

var tracer = otel.Tracer("auth")

type AuthService struct {
	config config.Auth
}

func NewAuthService(config config.Auth) *AuthService {
	return &AuthService{config: config}
}

type AuthResult struct {
	UserID string
}

// Enabled reports whether a signing secret is configured.
func (s *AuthService) Enabled() bool {
	return s.config.JWTSecret != ""
}

// Required reports whether lighting needs an authenticated caller.
func (s *AuthService) Required() bool {
	return s.config.Required
}

// AuthJwt validates an HS256 token and returns its subject as the user id.
func (s *AuthService) AuthJwt(ctx context.Context, token string) (*AuthResult, error) {
	_, span := tracer.Start(ctx, "Auth.Service.AuthJwt")
	defer span.End()

	if !s.Enabled() {
		err := errors.Wrap(domain.ErrUnauthorized, "jwt secret not configured")
		span.RecordError(err)
		return nil, err
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(s.config.Audience))
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(s.config.JWTSecret), nil
	}, opts...)
	if err != nil {
		err = errors.Wrap(domain.ErrUnauthorized, err.Error())
		span.RecordError(err)
		return nil, err
	}

	if err := domain.ValidateIdentifier("sub", claims.Subject); err != nil {
		err := fmt.Errorf("%w: invalid subject: %v", domain.ErrUnauthorized, err)
		span.RecordError(err)
		return nil, err
	}

	return &AuthResult{UserID: claims.Subject}, nil
}
