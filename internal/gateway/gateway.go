// Package gateway performs every authenticated FlexiFisio api call. It
// attaches the bearer credential and, when the api answers 401, refreshes the
// credential once and retries the call once.
package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"flexifisio-client/internal/metrics"
	"flexifisio-client/internal/middleware"
)

var tracer = otel.Tracer("flexifisio/gateway")

// Authenticator supplies the credential and the two recovery capabilities
// the gateway needs. *session.Session implements it.
type Authenticator interface {
	Token(ctx context.Context) (string, error)
	// Refresh trades the stale credential for a fresh one and persists it.
	Refresh(ctx context.Context, stale string) (string, error)
	// Logout clears the credential and tells the app it is unauthenticated.
	Logout(ctx context.Context) error
}

type Gateway struct {
	baseURL string
	auth    Authenticator
	http    *http.Client
	log     *zap.Logger
	metrics *metrics.GatewayMetrics
}

type Option func(*Gateway)

func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.http = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(g *Gateway) { g.log = l }
}

func WithMetrics(m *metrics.GatewayMetrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

func New(baseURL string, a Authenticator, opts ...Option) *Gateway {
	g := &Gateway{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		auth:    a,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Do issues method path with body encoded as json (nil means no body) and
// returns the final response. The caller closes its body.
//
// Non-2xx statuses are not errors: the response is handed back for the caller
// to inspect. Errors are reserved for transport and encoding failures or
// cancellation.
func (g *Gateway) Do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	ctx, span := tracer.Start(ctx, "gateway.do", trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
	))
	defer span.End()

	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("gateway: encode body: %w", err)
		}
		payload = b
	}

	tok, err := g.auth.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}

	resp, err := g.send(ctx, method, path, payload, tok)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	if tok == "" {
		// nothing to refresh and nobody to log out
		return resp, nil
	}

	span.AddEvent("refresh")
	fresh, err := g.auth.Refresh(ctx, tok)
	if err != nil {
		if ctx.Err() != nil {
			// cancelled mid refresh: not the credential's fault
			resp.Body.Close()
			return nil, ctx.Err()
		}
		g.metrics.ObserveRefresh(false)
		g.log.Warn("refresh failed, logging out", zap.String("path", path), zap.Error(err))
		if lerr := g.auth.Logout(ctx); lerr != nil {
			g.log.Warn("logout failed", zap.Error(lerr))
		}
		g.metrics.ObserveLogout()
		span.SetAttributes(attribute.Bool("gateway.logged_out", true))
		return resp, nil
	}
	g.metrics.ObserveRefresh(true)

	// the original 401 is discarded once a retry is issued
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	span.SetAttributes(attribute.Bool("gateway.retried", true))
	retry, err := g.send(ctx, method, path, payload, fresh)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return nil, err
	}
	return retry, nil
}

func (g *Gateway) send(ctx context.Context, method, path string, payload []byte, tok string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("gateway: build request: %w", err)
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(middleware.RequestIDHeader, uuid.NewString())

	start := time.Now()
	resp, err := g.http.Do(req)
	if err != nil {
		g.metrics.ObserveRequest(method, 0, time.Since(start).Seconds())
		return nil, fmt.Errorf("gateway: %s %s: %w", method, path, err)
	}
	g.metrics.ObserveRequest(method, resp.StatusCode, time.Since(start).Seconds())
	return resp, nil
}
