package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"flexifisio-client/internal/model"
	"flexifisio-client/internal/slots"
)

type BookRequest struct {
	PatientID int64  `json:"patientId" validate:"required,gt=0"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Time      string `json:"time" validate:"required,datetime=15:04:05"`
}

type MoveRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	Time string `json:"time" validate:"required,datetime=15:04:05"`
}

func (c *Client) ListAppointments(ctx context.Context) ([]model.Appointment, error) {
	out := []model.Appointment{}
	if err := c.call(ctx, http.MethodGet, "/appointment", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) BookAppointment(ctx context.Context, req BookRequest) (*model.Appointment, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	out := &model.Appointment{}
	if err := c.call(ctx, http.MethodPost, "/appointment", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MoveAppointment(ctx context.Context, id int64, req MoveRequest) (*model.Appointment, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	out := &model.Appointment{}
	if err := c.call(ctx, http.MethodPatch, fmt.Sprintf("/appointment/%d", id), req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ConfirmAppointment(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodPatch, fmt.Sprintf("/appointment/%d/confirm", id), nil, nil)
}

func (c *Client) DeleteAppointment(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/appointment/%d", id), nil, nil)
}

// DaySlots fetches the clinic's appointments and reconciles them against
// hours for day.
func (c *Client) DaySlots(ctx context.Context, day time.Time, hours []int) (slots.Day, error) {
	if day.IsZero() {
		return slots.Build(day, hours, nil, false), nil
	}
	appts, err := c.ListAppointments(ctx)
	if err != nil {
		return slots.Day{Date: day, State: slots.Loading}, err
	}
	return slots.Build(day, hours, appts, true), nil
}

// BookSlot books patientID at hour on day after checking the slot is part of
// the template and still free. The api stays the final judge of conflicts.
func (c *Client) BookSlot(ctx context.Context, patientID int64, day time.Time, hour int, hours []int) (*model.Appointment, error) {
	d, err := c.DaySlots(ctx, day, hours)
	if err != nil {
		return nil, err
	}
	if err := d.CanBook(hour); err != nil {
		return nil, err
	}
	s, _ := d.At(hour)
	return c.BookAppointment(ctx, BookRequest{
		PatientID: patientID,
		Date:      s.Start.Format(model.DateLayout),
		Time:      s.Start.Format(model.TimeLayout),
	})
}
