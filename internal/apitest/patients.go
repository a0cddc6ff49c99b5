package apitest

import (
	"cmp"
	"net/http"
	"slices"

	"flexifisio-client/internal/model"
)

func sortedByID[T any](m map[int64]*T, id func(*T) int64, keep func(*T) bool) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		if keep == nil || keep(v) {
			out = append(out, *v)
		}
	}
	slices.SortFunc(out, func(a, b T) int { return cmp.Compare(id(&a), id(&b)) })
	return out
}

func patientID(p *model.Patient) int64 { return p.ID }

// AddPatient stores a patient for the physiotherapist uid.
func (s *Server) AddPatient(uid string, p model.Patient) model.Patient {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.id()
	}
	s.clinicOf(uid).patients[p.ID] = &p
	return p
}

type patientBody struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone"`
	BirthDate string `json:"birthDate"`
	Notes     string `json:"notes"`
}

func (b patientBody) apply(p *model.Patient) {
	p.FirstName = b.FirstName
	p.LastName = b.LastName
	p.Email = b.Email
	p.Phone = b.Phone
	p.BirthDate = b.BirthDate
	p.Notes = b.Notes
}

func (s *Server) listPatients(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := sortedByID(s.clinicOf(uid(r)).patients, patientID, func(p *model.Patient) bool { return !p.Terminated })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) terminatedPatients(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := sortedByID(s.clinicOf(uid(r)).patients, patientID, func(p *model.Patient) bool { return p.Terminated })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getPatient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.clinicOf(uid(r)).patients[id]
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) createPatient(w http.ResponseWriter, r *http.Request) {
	var b patientBody
	if !decode(w, r, &b) {
		return
	}
	if err := s.valid.Struct(b); err != nil {
		writeError(w, http.StatusBadRequest, "first and last name required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &model.Patient{ID: s.id()}
	b.apply(p)
	s.clinicOf(uid(r)).patients[p.ID] = p
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) updatePatient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var b patientBody
	if !decode(w, r, &b) {
		return
	}
	if err := s.valid.Struct(b); err != nil {
		writeError(w, http.StatusBadRequest, "first and last name required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.clinicOf(uid(r)).patients[id]
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	b.apply(p)
	writeJSON(w, http.StatusOK, p)
}

// deletePatient ends the therapy: the patient moves to the terminated list
// and keeps its history.
func (s *Server) deletePatient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.clinicOf(uid(r)).patients[id]
	if !ok || p.Terminated {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	p.Terminated = true
	w.WriteHeader(http.StatusNoContent)
}
