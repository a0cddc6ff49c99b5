package model

import (
	"errors"
	"strings"
	"time"
)

// wire layouts used by the remote api
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

type Confirmation string

const (
	Confirmed    Confirmation = "Confirmed"
	NotConfirmed Confirmation = "Not Confirmed"
)

var ErrBadDate = errors.New("bad date")

type PatientRef struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (p PatientRef) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

type Appointment struct {
	ID           int64        `json:"id"`
	Date         string       `json:"date"`
	Time         string       `json:"time"`
	Confirmation Confirmation `json:"confirmation"`
	Patient      PatientRef   `json:"patient"`
}

// Day returns the calendar date of the appointment. Both "2006-01-02" and
// full RFC 3339 timestamps are accepted; for the latter the date is taken in
// the timestamp's own offset.
func (a Appointment) Day() (y int, m time.Month, d int, err error) {
	s := strings.TrimSpace(a.Date)
	if t, perr := time.Parse(DateLayout, s); perr == nil {
		y, m, d = t.Date()
		return y, m, d, nil
	}
	if t, perr := time.Parse(time.RFC3339, s); perr == nil {
		y, m, d = t.Date()
		return y, m, d, nil
	}
	return 0, 0, 0, ErrBadDate
}

// Hour parses the HH:MM:SS time field. HH:MM is tolerated.
func (a Appointment) Hour() (int, error) {
	s := strings.TrimSpace(a.Time)
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t.Hour(), nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, ErrBadDate
	}
	return t.Hour(), nil
}

func (a Appointment) IsConfirmed() bool { return a.Confirmation == Confirmed }

type Patient struct {
	ID         int64  `json:"id"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	BirthDate  string `json:"birthDate,omitempty"`
	Notes      string `json:"notes,omitempty"`
	Terminated bool   `json:"terminated"`
}

func (p Patient) Ref() PatientRef {
	return PatientRef{ID: p.ID, FirstName: p.FirstName, LastName: p.LastName}
}

type Exercise struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	BodyArea    string `json:"bodyArea,omitempty"`
	VideoURL    string `json:"videoUrl,omitempty"`
}

type CardExercise struct {
	Exercise Exercise `json:"exercise"`
	Sets     int      `json:"sets"`
	Reps     int      `json:"reps"`
	Notes    string   `json:"notes,omitempty"`
}

type TrainingCard struct {
	ID        int64          `json:"id"`
	PatientID int64          `json:"patientId"`
	Exercises []CardExercise `json:"exercises"`
}

type ExerciseResult struct {
	ExerciseID int64 `json:"exerciseId"`
	Sets       int   `json:"sets"`
	Reps       int   `json:"reps"`
	Completed  bool  `json:"completed"`
}

type TrainingSession struct {
	ID        int64            `json:"id"`
	CardID    int64            `json:"cardId"`
	Date      string           `json:"date"`
	PainLevel int              `json:"painLevel"`
	Notes     string           `json:"notes,omitempty"`
	Results   []ExerciseResult `json:"results,omitempty"`
}

// GraphPoint is one sample of a progress chart series.
type GraphPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

type Graph struct {
	Label  string       `json:"label"`
	Points []GraphPoint `json:"points"`
}

type Profile struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Clinic    string `json:"clinic,omitempty"`
}

// Registration is the sign-up form of a physiotherapist.
type Registration struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Clinic    string `json:"clinic,omitempty"`
}
