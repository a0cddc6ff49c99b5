// Package slots merges the clinic's fixed daily appointment template with the
// appointments already booked, producing the per-day view used for booking.
package slots

import (
	"errors"
	"time"

	"flexifisio-client/internal/model"
)

// DefaultHours are the daily slot start hours of the clinic.
var DefaultHours = []int{9, 10, 11, 12, 15, 16, 17, 18, 19}

var (
	ErrNotLoaded = errors.New("slots: appointments not loaded")
	ErrNoSlot    = errors.New("slots: hour is not a bookable slot")
	ErrTaken     = errors.New("slots: slot already booked")
)

// Booking is the part of an appointment shown on an occupied slot.
type Booking struct {
	AppointmentID int64
	Confirmation  model.Confirmation
	Patient       model.PatientRef
}

type Slot struct {
	Start   time.Time
	Booking *Booking // nil when the slot is free
}

func (s Slot) Booked() bool { return s.Booking != nil }

func (s Slot) Label() string { return s.Start.Format("15:04") }

// Reconcile returns one slot per hour for day, in hours order. A slot is
// decorated with the first appointment on the same calendar date whose time
// falls in that hour; later matches for the same hour are ignored.
// A zero day or a nil (not yet fetched) list yields no slots.
func Reconcile(day time.Time, hours []int, appts []model.Appointment) []Slot {
	if day.IsZero() || appts == nil {
		return nil
	}
	y, m, d := day.Date()

	sameDay := make([]model.Appointment, 0, len(appts))
	for _, a := range appts {
		ay, am, ad, err := a.Day()
		if err != nil {
			continue
		}
		if ay == y && am == m && ad == d {
			sameDay = append(sameDay, a)
		}
	}

	out := make([]Slot, len(hours))
	for i, h := range hours {
		out[i] = Slot{Start: time.Date(y, m, d, h, 0, 0, 0, day.Location())}
		for _, a := range sameDay {
			ah, err := a.Hour()
			if err != nil || ah != h {
				continue
			}
			out[i].Booking = &Booking{
				AppointmentID: a.ID,
				Confirmation:  a.Confirmation,
				Patient:       a.Patient,
			}
			break
		}
	}
	return out
}

type State int

const (
	NoDate State = iota
	Loading
	Ready
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "no date"
	}
}

// Day is the view for one selected date. While the appointment list is
// still being fetched it is Loading and carries no slots, rather than a
// template that would show every hour as free.
type Day struct {
	Date  time.Time
	State State
	Slots []Slot
}

func Build(day time.Time, hours []int, appts []model.Appointment, loaded bool) Day {
	switch {
	case day.IsZero():
		return Day{State: NoDate}
	case !loaded:
		return Day{Date: day, State: Loading}
	}
	if appts == nil {
		appts = []model.Appointment{}
	}
	return Day{Date: day, State: Ready, Slots: Reconcile(day, hours, appts)}
}

func (d Day) Free() []Slot {
	var out []Slot
	for _, s := range d.Slots {
		if !s.Booked() {
			out = append(out, s)
		}
	}
	return out
}

func (d Day) Booked() []Slot {
	var out []Slot
	for _, s := range d.Slots {
		if s.Booked() {
			out = append(out, s)
		}
	}
	return out
}

func (d Day) At(hour int) (Slot, bool) {
	for _, s := range d.Slots {
		if s.Start.Hour() == hour {
			return s, true
		}
	}
	return Slot{}, false
}

// CanBook checks a booking at hour against the reconciled view.
func (d Day) CanBook(hour int) error {
	if d.State != Ready {
		return ErrNotLoaded
	}
	s, ok := d.At(hour)
	if !ok {
		return ErrNoSlot
	}
	if s.Booked() {
		return ErrTaken
	}
	return nil
}
