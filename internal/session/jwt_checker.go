package session

import (
	"context"
	"log/slog"

	"github.com/abgdnv/gocommerce/cart_service/pkg/auth"
)

// JWTChecker verifies the held token against the IdP's JWKS.
type JWTChecker struct {
	verifier auth.Verifier
	tokens   TokenSource
	logger   *slog.Logger
}

func NewJWTChecker(verifier auth.Verifier, tokens TokenSource, logger *slog.Logger) *JWTChecker {
	return &JWTChecker{
		verifier: verifier,
		tokens:   tokens,
		logger:   logger.With("component", "jwt_checker"),
	}
}

func (c *JWTChecker) CheckAuth(ctx context.Context) AuthState {
	token, ok := c.tokens.Token()
	if !ok {
		return AuthState{}
	}
	userID, err := auth.Subject(ctx, c.verifier, token)
	if err != nil {
		c.logger.DebugContext(ctx, "Token rejected, treating session as guest", "error", err)
		return AuthState{}
	}
	return AuthState{IsAuth: true, UserID: userID}
}
