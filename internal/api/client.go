// Package api is the typed FlexiFisio api: one method per endpoint, request
// validation before anything goes on the wire, and decoding of the replies.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// Doer issues authenticated calls. *gateway.Gateway implements it.
type Doer interface {
	Do(ctx context.Context, method, path string, body any) (*http.Response, error)
}

type Client struct {
	gw       Doer
	validate *validator.Validate
}

func New(gw Doer) *Client {
	return &Client{gw: gw, validate: validator.New()}
}

// StatusError is a non-2xx answer from the api.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Message)
}

func StatusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

func IsUnauthorized(err error) bool { return StatusOf(err) == http.StatusUnauthorized }
func IsNotFound(err error) bool     { return StatusOf(err) == http.StatusNotFound }

type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return "api: invalid request: " + e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

func (c *Client) check(req any) error {
	if err := c.validate.Struct(req); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// call runs one request and decodes a 2xx body into out (when non-nil).
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.gw.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("api: decode %s %s: %w", method, path, err)
	}
	return nil
}

// statusError pulls a readable message out of an error body; the api answers
// either {"message": ...}, {"error": ...} or plain text.
func statusError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	se := &StatusError{StatusCode: resp.StatusCode}
	var m struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(b, &m) == nil && (m.Message != "" || m.Error != "") {
		se.Message = m.Message
		if se.Message == "" {
			se.Message = m.Error
		}
		return se
	}
	se.Message = strings.TrimSpace(string(b))
	return se
}
