// Package auth verifies bearer tokens issued by the identity provider.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/abgdnv/gocommerce/cart_service/pkg/config"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

type Verifier interface {
	Verify(ctx context.Context, tokenString string) (jwt.Token, error)
}

// ErrNoSubject is returned when a verified token carries no "sub" claim.
var ErrNoSubject = errors.New("token has no subject")

// Subject verifies the token and returns its "sub" claim, the cart owner's user id.
func Subject(ctx context.Context, v Verifier, tokenString string) (string, error) {
	token, err := v.Verify(ctx, tokenString)
	if err != nil {
		return "", err
	}
	sub, ok := token.Subject()
	if !ok || sub == "" {
		return "", ErrNoSubject
	}
	return sub, nil
}

// JWTVerifier checks signature, expiry, issuer and authorized party of a token.
// The JWKS is fetched at most once per MinInterval; if a refetch fails the
// previous key set stays in use.
type JWTVerifier struct {
	cfg config.IdP
	now func() time.Time

	mu        sync.Mutex
	set       jwk.Set
	fetchedAt time.Time
}

// NewJWTVerifier fetches the JWKS once and fails if the IdP is unreachable.
func NewJWTVerifier(ctx context.Context, cfg config.IdP) (*JWTVerifier, error) {
	v := &JWTVerifier{cfg: cfg, now: time.Now}
	if _, err := v.keySet(ctx); err != nil {
		return nil, fmt.Errorf("initial JWKS fetch failed: %w", err)
	}
	return v, nil
}

func (v *JWTVerifier) keySet(ctx context.Context) (jwk.Set, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.set != nil && v.now().Sub(v.fetchedAt) < v.cfg.MinInterval {
		return v.set, nil
	}
	set, err := jwk.Fetch(ctx, v.cfg.JwksURL)
	if err != nil {
		if v.set != nil {
			return v.set, nil
		}
		return nil, fmt.Errorf("failed to fetch JWKS from %s: %w", v.cfg.JwksURL, err)
	}
	v.set = set
	v.fetchedAt = v.now()
	return set, nil
}

func (v *JWTVerifier) Verify(ctx context.Context, tokenString string) (jwt.Token, error) {
	set, err := v.keySet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get keyset for verification: %w", err)
	}
	token, err := jwt.Parse([]byte(tokenString),
		jwt.WithKeySet(set),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithClaimValue("azp", v.cfg.ClientID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}
	return token, nil
}
