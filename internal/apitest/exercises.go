package apitest

import (
	"net/http"

	"flexifisio-client/internal/model"
)

type exerciseBody struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	BodyArea    string `json:"bodyArea"`
	VideoURL    string `json:"videoUrl" validate:"omitempty,url"`
}

func (b exerciseBody) apply(e *model.Exercise) {
	e.Name = b.Name
	e.Description = b.Description
	e.BodyArea = b.BodyArea
	e.VideoURL = b.VideoURL
}

// AddExercise stores an exercise in the catalog of the physiotherapist uid.
func (s *Server) AddExercise(uid string, e model.Exercise) model.Exercise {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == 0 {
		e.ID = s.id()
	}
	s.clinicOf(uid).exercises[e.ID] = &e
	return e
}

func (s *Server) listExercises(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := sortedByID(s.clinicOf(uid(r)).exercises, func(e *model.Exercise) int64 { return e.ID }, nil)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getExercise(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.clinicOf(uid(r)).exercises[id]
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) createExercise(w http.ResponseWriter, r *http.Request) {
	var b exerciseBody
	if !decode(w, r, &b) {
		return
	}
	if err := s.valid.Struct(b); err != nil {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := &model.Exercise{ID: s.id()}
	b.apply(e)
	s.clinicOf(uid(r)).exercises[e.ID] = e
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) updateExercise(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var b exerciseBody
	if !decode(w, r, &b) {
		return
	}
	if err := s.valid.Struct(b); err != nil {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.clinicOf(uid(r)).exercises[id]
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	b.apply(e)
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) deleteExercise(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.clinicOf(uid(r))
	if _, ok := c.exercises[id]; !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	delete(c.exercises, id)
	w.WriteHeader(http.StatusNoContent)
}
