package api

import (
	"context"
	"fmt"
	"net/http"

	"flexifisio-client/internal/model"
)

type PatientRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,max=32"`
	BirthDate string `json:"birthDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Notes     string `json:"notes,omitempty"`
}

func (c *Client) ListPatients(ctx context.Context) ([]model.Patient, error) {
	out := []model.Patient{}
	if err := c.call(ctx, http.MethodGet, "/patient", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TerminatedPatients lists patients whose therapy has ended.
func (c *Client) TerminatedPatients(ctx context.Context) ([]model.Patient, error) {
	out := []model.Patient{}
	if err := c.call(ctx, http.MethodGet, "/patient/terminated", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetPatient(ctx context.Context, id int64) (*model.Patient, error) {
	out := &model.Patient{}
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/patient/%d", id), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreatePatient(ctx context.Context, req PatientRequest) (*model.Patient, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	out := &model.Patient{}
	if err := c.call(ctx, http.MethodPost, "/patient", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdatePatient(ctx context.Context, id int64, req PatientRequest) (*model.Patient, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	out := &model.Patient{}
	if err := c.call(ctx, http.MethodPatch, fmt.Sprintf("/patient/%d", id), req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeletePatient(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/patient/%d", id), nil, nil)
}

func (c *Client) Profile(ctx context.Context) (*model.Profile, error) {
	out := &model.Profile{}
	if err := c.call(ctx, http.MethodGet, "/profile", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}
