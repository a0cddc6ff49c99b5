package apitest

import (
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"flexifisio-client/internal/model"
	"flexifisio-client/internal/slots"
)

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "id required")
		return 0, false
	}
	return id, true
}

type slotRequest struct {
	PatientID int64  `json:"patientId"`
	Date      string `json:"date"`
	Time      string `json:"time"`
}

// checkSlot validates the date and time of a booking against the clinic
// template. It returns a message for the caller when they are unusable.
func checkSlot(date, tm string) string {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return "date must be YYYY-MM-DD"
	}
	t, err := time.Parse(model.TimeLayout, tm)
	if err != nil {
		return "time must be HH:MM:SS"
	}
	if t.Minute() != 0 || t.Second() != 0 || !slices.Contains(slots.DefaultHours, t.Hour()) {
		return "time is not a bookable slot"
	}
	return ""
}

// overlapLocked reports whether another appointment holds the same slot.
// skip excludes an appointment from the check.
func (c *clinic) overlapLocked(date, tm string, skip int64) bool {
	want := model.Appointment{Date: date, Time: tm}
	wh, _ := want.Hour()
	for _, a := range c.appts {
		if a.ID == skip || a.Date != date {
			continue
		}
		if h, err := a.Hour(); err == nil && h == wh {
			return true
		}
	}
	return false
}

func (c *clinic) appointment(id int64) int {
	for i, a := range c.appts {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// AddAppointment stores a booking for the physiotherapist uid as is, without
// slot checks, so tests can seed odd data.
func (s *Server) AddAppointment(uid string, a model.Appointment) model.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		a.ID = s.id()
	}
	if a.Confirmation == "" {
		a.Confirmation = model.NotConfirmed
	}
	c := s.clinicOf(uid)
	c.appts = append(c.appts, a)
	return a
}

func (s *Server) listAppointments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]model.Appointment{}, s.clinicOf(uid(r)).appts...)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) bookAppointment(w http.ResponseWriter, r *http.Request) {
	var req slotRequest
	if !decode(w, r, &req) {
		return
	}
	if msg := checkSlot(req.Date, req.Time); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.clinicOf(uid(r))
	p, ok := c.patients[req.PatientID]
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown patient")
		return
	}
	if c.overlapLocked(req.Date, req.Time, 0) {
		writeError(w, http.StatusConflict, "slot already booked")
		return
	}
	a := model.Appointment{
		ID:           s.id(),
		Date:         req.Date,
		Time:         req.Time,
		Confirmation: model.NotConfirmed,
		Patient:      p.Ref(),
	}
	c.appts = append(c.appts, a)
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) moveAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req slotRequest
	if !decode(w, r, &req) {
		return
	}
	if msg := checkSlot(req.Date, req.Time); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.clinicOf(uid(r))
	i := c.appointment(id)
	if i < 0 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	// exclude self from overlap check
	if c.overlapLocked(req.Date, req.Time, id) {
		writeError(w, http.StatusConflict, "slot already booked")
		return
	}
	c.appts[i].Date = req.Date
	c.appts[i].Time = req.Time
	writeJSON(w, http.StatusOK, c.appts[i])
}

func (s *Server) confirmAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.clinicOf(uid(r))
	i := c.appointment(id)
	if i < 0 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	c.appts[i].Confirmation = model.Confirmed
	writeJSON(w, http.StatusOK, c.appts[i])
}

func (s *Server) deleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.clinicOf(uid(r))
	i := c.appointment(id)
	if i < 0 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	c.appts = slices.Delete(c.appts, i, i+1)
	w.WriteHeader(http.StatusNoContent)
}
