package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/abgdnv/gocommerce/cart_service/internal/cart"
	carterrors "github.com/abgdnv/gocommerce/cart_service/internal/errors"
	"github.com/abgdnv/gocommerce/cart_service/internal/session"
	"github.com/abgdnv/gocommerce/cart_service/pkg/client/resilience"
	"github.com/abgdnv/gocommerce/cart_service/pkg/config"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const cartPath = "/api/v1/cart"

// HTTPCartLoader fetches the server cart over REST with the session's bearer token.
type HTTPCartLoader struct {
	baseURL  string
	client   *http.Client
	tokens   session.TokenSource
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHTTPCartLoader builds a loader whose transport is traced, bounded by
// timeout and guarded by a circuit breaker.
func NewHTTPCartLoader(cfg config.RemoteHTTPConfig, breaker config.CircuitBreakerConfig, tokens session.TokenSource, logger *slog.Logger) *HTTPCartLoader {
	transport := otelhttp.NewTransport(
		resilience.NewBreakerTransport("cart-backend", breaker,
			resilience.NewTimeoutTransport(cfg.Timeout, http.DefaultTransport)),
	)
	return NewHTTPCartLoaderWithClient(cfg.BaseURL, &http.Client{Transport: transport}, tokens, logger)
}

// NewHTTPCartLoaderWithClient uses the given client as is.
func NewHTTPCartLoaderWithClient(baseURL string, client *http.Client, tokens session.TokenSource, logger *slog.Logger) *HTTPCartLoader {
	return &HTTPCartLoader{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   client,
		tokens:   tokens,
		validate: validator.New(),
		logger:   logger.With("component", "http_cart_loader"),
	}
}

type cartResponse struct {
	Items []cart.LineItem `json:"items"`
}

func (l *HTTPCartLoader) LoadUserCart(ctx context.Context) LoadResult {
	token, ok := l.tokens.Token()
	if !ok {
		return Failure(carterrors.ErrUnauthenticated)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+cartPath, nil)
	if err != nil {
		return Failure(fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return Failure(fmt.Errorf("%w: %w", carterrors.ErrLoadCart, err))
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		// The user has no server cart yet.
		return LoadResult{Success: true, Items: []cart.LineItem{}}
	default:
		return Failure(fmt.Errorf("%w: unexpected status %d", carterrors.ErrLoadCart, resp.StatusCode))
	}

	var body cartResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Failure(fmt.Errorf("%w: failed to decode response: %w", carterrors.ErrLoadCart, err))
	}
	items := validItems(ctx, l.validate, l.logger, body.Items)
	l.logger.DebugContext(ctx, "Server cart loaded", "items", len(items))
	return LoadResult{Success: true, Items: items}
}
