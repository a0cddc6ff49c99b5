package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"flexifisio-client/internal/model"
)

var ErrEmptyToken = errors.New("api: no token in response")

// AuthClient calls the token endpoints. They sit outside the gateway: they
// are either unauthenticated or carry the stale credential themselves, and a
// 401 from them must never trigger another refresh.
type AuthClient struct {
	baseURL  string
	http     *http.Client
	validate *validator.Validate
}

func NewAuthClient(baseURL string, hc *http.Client) *AuthClient {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &AuthClient{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		http:     hc,
		validate: validator.New(),
	}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"accessToken"`
}

func (r tokenResponse) value() string {
	if r.Token != "" {
		return r.Token
	}
	return r.AccessToken
}

func (a *AuthClient) post(ctx context.Context, path, bearer string, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode: %w", err)
		}
		payload = b
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: POST %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode %s: %w", path, err)
	}
	return nil
}

func (a *AuthClient) Login(ctx context.Context, email, password string) (string, error) {
	req := LoginRequest{Email: email, Password: password}
	if err := a.validate.Struct(req); err != nil {
		return "", &ValidationError{Err: err}
	}
	var out tokenResponse
	if err := a.post(ctx, "/fisioterapista/login", "", req, &out); err != nil {
		return "", err
	}
	if out.value() == "" {
		return "", ErrEmptyToken
	}
	return out.value(), nil
}

func (a *AuthClient) Register(ctx context.Context, reg model.Registration) error {
	if err := a.validate.Struct(reg); err != nil {
		return &ValidationError{Err: err}
	}
	return a.post(ctx, "/fisioterapista/register", "", reg, nil)
}

// Refresh presents the stale credential and returns its replacement.
func (a *AuthClient) Refresh(ctx context.Context, stale string) (string, error) {
	var out tokenResponse
	if err := a.post(ctx, "/fisioterapista/refreshToken", stale, nil, &out); err != nil {
		return "", err
	}
	if out.value() == "" {
		return "", ErrEmptyToken
	}
	return out.value(), nil
}
