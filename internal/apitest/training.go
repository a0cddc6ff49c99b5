package apitest

import (
	"net/http"
	"time"

	"flexifisio-client/internal/model"
)

// AddCard opens an empty training card for a patient of uid.
func (s *Server) AddCard(uid string, patientID int64) model.TrainingCard {
	s.mu.Lock()
	defer s.mu.Unlock()
	card := &model.TrainingCard{ID: s.id(), PatientID: patientID, Exercises: []model.CardExercise{}}
	s.clinicOf(uid).cards[card.ID] = card
	return *card
}

// AddCardExercise appends ce to a card of uid. Unknown cards are ignored.
func (s *Server) AddCardExercise(uid string, cardID int64, ce model.CardExercise) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if card, ok := s.clinicOf(uid).cards[cardID]; ok {
		card.Exercises = append(card.Exercises, ce)
	}
}

func (s *Server) getCard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.clinicOf(uid(r)).cards[id]
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (s *Server) addCardExercise(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		ExerciseID int64  `json:"exerciseId"`
		Sets       int    `json:"sets"`
		Reps       int    `json:"reps"`
		Notes      string `json:"notes"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Sets < 1 || req.Reps < 1 {
		writeError(w, http.StatusBadRequest, "sets and reps must be positive")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.clinicOf(uid(r))
	card, ok := c.cards[id]
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	ex, ok := c.exercises[req.ExerciseID]
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown exercise")
		return
	}
	card.Exercises = append(card.Exercises, model.CardExercise{
		Exercise: *ex,
		Sets:     req.Sets,
		Reps:     req.Reps,
		Notes:    req.Notes,
	})
	writeJSON(w, http.StatusCreated, card)
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Date      string                 `json:"date"`
		PainLevel int                    `json:"painLevel"`
		Notes     string                 `json:"notes"`
		Results   []model.ExerciseResult `json:"results"`
	}
	if !decode(w, r, &req) {
		return
	}
	if _, err := time.Parse(model.DateLayout, req.Date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	if req.PainLevel < 0 || req.PainLevel > 10 {
		writeError(w, http.StatusBadRequest, "pain level must be 0-10")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.clinicOf(uid(r))
	if _, ok := c.cards[id]; !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	ts := model.TrainingSession{
		ID:        s.id(),
		CardID:    id,
		Date:      req.Date,
		PainLevel: req.PainLevel,
		Notes:     req.Notes,
		Results:   req.Results,
	}
	c.sessions[id] = append(c.sessions[id], ts)
	writeJSON(w, http.StatusCreated, ts)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.clinicOf(uid(r))
	if _, ok := c.cards[id]; !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	out := append([]model.TrainingSession{}, c.sessions[id]...)
	writeJSON(w, http.StatusOK, out)
}

// graph charts the pain level of every session and, per exercise on the
// card, the repetitions completed.
func (s *Server) graph(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.clinicOf(uid(r))
	card, ok := c.cards[id]
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	pain := model.Graph{Label: "pain", Points: []model.GraphPoint{}}
	for _, ts := range c.sessions[id] {
		pain.Points = append(pain.Points, model.GraphPoint{Date: ts.Date, Value: float64(ts.PainLevel)})
	}
	out := []model.Graph{pain}
	for _, ce := range card.Exercises {
		g := model.Graph{Label: ce.Exercise.Name, Points: []model.GraphPoint{}}
		for _, ts := range c.sessions[id] {
			var reps int
			for _, res := range ts.Results {
				if res.ExerciseID == ce.Exercise.ID && res.Completed {
					reps += res.Sets * res.Reps
				}
			}
			g.Points = append(g.Points, model.GraphPoint{Date: ts.Date, Value: float64(reps)})
		}
		out = append(out, g)
	}
	writeJSON(w, http.StatusOK, out)
}
