package session

import (
	"context"
	"log/slog"

	"github.com/Nerzal/gocloak/v13"
	"github.com/abgdnv/gocommerce/cart_service/pkg/config"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// Introspector is the part of the gocloak client used for token introspection.
type Introspector interface {
	RetrospectToken(ctx context.Context, accessToken, clientID, clientSecret, realm string) (*gocloak.IntroSpectTokenResult, error)
}

// KeycloakChecker asks Keycloak whether the held token is still active.
type KeycloakChecker struct {
	client Introspector
	cfg    config.KeycloakConfig
	tokens TokenSource
	logger *slog.Logger
}

func NewKeycloakChecker(client Introspector, cfg config.KeycloakConfig, tokens TokenSource, logger *slog.Logger) *KeycloakChecker {
	return &KeycloakChecker{
		client: client,
		cfg:    cfg,
		tokens: tokens,
		logger: logger.With("component", "keycloak_checker"),
	}
}

func (c *KeycloakChecker) CheckAuth(ctx context.Context) AuthState {
	token, ok := c.tokens.Token()
	if !ok {
		return AuthState{}
	}
	result, err := c.client.RetrospectToken(ctx, token, c.cfg.ClientID, c.cfg.ClientSecret, c.cfg.Realm)
	if err != nil {
		c.logger.WarnContext(ctx, "Token introspection failed, treating session as guest", "error", err)
		return AuthState{}
	}
	if result == nil || result.Active == nil || !*result.Active {
		return AuthState{}
	}
	// Keycloak vouched for the token, the subject is read without re-verifying the signature.
	parsed, err := jwt.ParseInsecure([]byte(token))
	if err != nil {
		c.logger.WarnContext(ctx, "Active token is not a JWT", "error", err)
		return AuthState{}
	}
	sub, ok := parsed.Subject()
	if !ok || sub == "" {
		return AuthState{}
	}
	return AuthState{IsAuth: true, UserID: sub}
}
