package api

import (
	"context"
	"fmt"
	"net/http"

	"flexifisio-client/internal/model"
)

type CardExerciseRequest struct {
	ExerciseID int64  `json:"exerciseId" validate:"required,gt=0"`
	Sets       int    `json:"sets" validate:"gte=1,lte=50"`
	Reps       int    `json:"reps" validate:"gte=1,lte=500"`
	Notes      string `json:"notes,omitempty"`
}

type SessionRequest struct {
	Date      string                 `json:"date" validate:"required,datetime=2006-01-02"`
	PainLevel int                    `json:"painLevel" validate:"gte=0,lte=10"`
	Notes     string                 `json:"notes,omitempty"`
	Results   []model.ExerciseResult `json:"results,omitempty" validate:"dive"`
}

func (c *Client) GetTrainingCard(ctx context.Context, id int64) (*model.TrainingCard, error) {
	out := &model.TrainingCard{}
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/trainingCard/%d", id), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddCardExercise assigns an exercise of the catalog to a training card.
func (c *Client) AddCardExercise(ctx context.Context, cardID int64, req CardExerciseRequest) (*model.TrainingCard, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	out := &model.TrainingCard{}
	if err := c.call(ctx, http.MethodPost, fmt.Sprintf("/trainingCard/%d/exercise", cardID), req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateTrainingSession(ctx context.Context, cardID int64, req SessionRequest) (*model.TrainingSession, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	out := &model.TrainingSession{}
	if err := c.call(ctx, http.MethodPost, fmt.Sprintf("/trainingSession/%d", cardID), req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListTrainingSessions(ctx context.Context, cardID int64) ([]model.TrainingSession, error) {
	out := []model.TrainingSession{}
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/trainingSessions/%d", cardID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProgressGraph returns the chart series recorded for a training card.
func (c *Client) ProgressGraph(ctx context.Context, cardID int64) ([]model.Graph, error) {
	out := []model.Graph{}
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/trainingSession/graph/%d", cardID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
