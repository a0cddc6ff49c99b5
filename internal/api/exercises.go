package api

import (
	"context"
	"fmt"
	"net/http"

	"flexifisio-client/internal/model"
)

type ExerciseRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
	BodyArea    string `json:"bodyArea,omitempty"`
	VideoURL    string `json:"videoUrl,omitempty" validate:"omitempty,url"`
}

func (c *Client) ListExercises(ctx context.Context) ([]model.Exercise, error) {
	out := []model.Exercise{}
	if err := c.call(ctx, http.MethodGet, "/exercise", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetExercise(ctx context.Context, id int64) (*model.Exercise, error) {
	out := &model.Exercise{}
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/exercise/%d", id), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateExercise(ctx context.Context, req ExerciseRequest) (*model.Exercise, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	out := &model.Exercise{}
	if err := c.call(ctx, http.MethodPost, "/exercise", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateExercise(ctx context.Context, id int64, req ExerciseRequest) (*model.Exercise, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	out := &model.Exercise{}
	if err := c.call(ctx, http.MethodPatch, fmt.Sprintf("/exercise/%d", id), req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteExercise(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/exercise/%d", id), nil, nil)
}
