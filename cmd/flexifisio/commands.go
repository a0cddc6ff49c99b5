package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"flexifisio-client/internal/api"
	"flexifisio-client/internal/auth"
	"flexifisio-client/internal/model"
	"flexifisio-client/internal/slots"
)

var errUsage = errors.New("usage")

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.login(ctx, args)
	case "register":
		return a.register(ctx, args)
	case "logout":
		a.leaving = true
		return a.sess.Logout(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "slots":
		return a.slots(ctx, args)
	case "appointments":
		return a.appointments(ctx)
	case "book":
		return a.book(ctx, args)
	case "confirm":
		return withID(args, func(id int64) error { return a.api.ConfirmAppointment(ctx, id) })
	case "move":
		return a.move(ctx, args)
	case "cancel":
		return withID(args, func(id int64) error { return a.api.DeleteAppointment(ctx, id) })
	case "patients":
		return a.patients(ctx, args)
	case "patient":
		return withID(args, func(id int64) error { return a.patient(ctx, id) })
	case "exercises":
		return a.exercises(ctx)
	case "card":
		return withID(args, func(id int64) error { return a.card(ctx, id) })
	case "sessions":
		return withID(args, func(id int64) error { return a.sessions(ctx, id) })
	case "progress":
		return withID(args, func(id int64) error { return a.progress(ctx, id) })
	case "help", "-h", "--help":
		usage(a.out)
		return nil
	}
	return errUsage
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// withID runs fn with the leading positional id argument.
func withID(args []string, fn func(int64) error) error {
	if len(args) == 0 {
		return errUsage
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return fn(id)
}

// parseHour accepts "10", "10:00" or "10:00:00".
// parseHour accepts "10", "10:00" or "10:00:00". Slots start on the hour, so
// anything else is rejected rather than rounded.
func parseHour(s string) (int, error) {
	if h, err := strconv.Atoi(s); err == nil {
		if h < 0 || h > 23 {
			return 0, fmt.Errorf("invalid time %q", s)
		}
		return h, nil
	}
	for _, layout := range []string{"15:04", model.TimeLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Minute() != 0 || t.Second() != 0 {
				return 0, fmt.Errorf("invalid time %q, slots start on the hour", s)
			}
			return t.Hour(), nil
		}
	}
	return 0, fmt.Errorf("invalid time %q", s)
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		y, m, d := time.Now().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.Local), nil
	}
	t, err := time.ParseInLocation(model.DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

func (a *app) table(header ...string) *tablewriter.Table {
	tw := tablewriter.NewWriter(a.out)
	tw.SetHeader(header)
	tw.SetAutoWrapText(false)
	return tw
}

// ----- account -----

func (a *app) login(ctx context.Context, args []string) error {
	fs := newFlags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if err := a.sess.Login(ctx, *email, *password); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "logged in as", *email)
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := newFlags("register")
	var reg model.Registration
	fs.StringVar(&reg.FirstName, "first", "", "first name")
	fs.StringVar(&reg.LastName, "last", "", "last name")
	fs.StringVar(&reg.Email, "email", "", "account email")
	fs.StringVar(&reg.Password, "password", "", "password, at least 8 characters")
	fs.StringVar(&reg.Clinic, "clinic", "", "clinic name")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if err := a.sess.Register(ctx, reg); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "registered and logged in as", reg.Email)
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	// opaque credentials are valid, they just carry no expiry to show
	c, err := a.sess.Claims(ctx)
	if err != nil && !errors.Is(err, auth.ErrBadToken) {
		return err
	}
	p, err := a.api.Profile(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s %s <%s>\n", p.FirstName, p.LastName, p.Email)
	if p.Clinic != "" {
		fmt.Fprintln(a.out, "clinic:", p.Clinic)
	}
	if c != nil && c.ExpiresAt != nil {
		fmt.Fprintln(a.out, "credential expires:", c.ExpiresAt.Time.Local().Format(time.DateTime))
	}
	return nil
}

// ----- agenda -----

func (a *app) slots(ctx context.Context, args []string) error {
	fs := newFlags("slots")
	date := fs.String("date", "", "day to show, YYYY-MM-DD (default today)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	day, err := parseDay(*date)
	if err != nil {
		return err
	}
	d, err := a.api.DaySlots(ctx, day, slots.DefaultHours)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, d.Date.Format("Monday 02 January 2006"))
	tw := a.table("Time", "Status", "Patient", "Appointment")
	for _, s := range d.Slots {
		if !s.Booked() {
			tw.Append([]string{s.Label(), "free", "", ""})
			continue
		}
		tw.Append([]string{
			s.Label(),
			string(s.Booking.Confirmation),
			s.Booking.Patient.FullName(),
			strconv.FormatInt(s.Booking.AppointmentID, 10),
		})
	}
	tw.Render()
	fmt.Fprintf(a.out, "%d free, %d booked\n", len(d.Free()), len(d.Booked()))
	return nil
}

func (a *app) appointments(ctx context.Context) error {
	list, err := a.api.ListAppointments(ctx)
	if err != nil {
		return err
	}
	tw := a.table("ID", "Date", "Time", "Patient", "Status")
	for _, ap := range list {
		tw.Append([]string{
			strconv.FormatInt(ap.ID, 10),
			ap.Date,
			ap.Time,
			ap.Patient.FullName(),
			string(ap.Confirmation),
		})
	}
	tw.Render()
	return nil
}

func (a *app) book(ctx context.Context, args []string) error {
	fs := newFlags("book")
	patient := fs.Int64("patient", 0, "patient id")
	date := fs.String("date", "", "YYYY-MM-DD")
	tm := fs.String("time", "", "slot hour, e.g. 10 or 10:00")
	if err := fs.Parse(args); err != nil || *patient <= 0 || *date == "" || *tm == "" {
		return errUsage
	}
	day, err := parseDay(*date)
	if err != nil {
		return err
	}
	hour, err := parseHour(*tm)
	if err != nil {
		return err
	}
	ap, err := a.api.BookSlot(ctx, *patient, day, hour, slots.DefaultHours)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "booked appointment %d for %s on %s at %s\n",
		ap.ID, ap.Patient.FullName(), ap.Date, ap.Time)
	return nil
}

func (a *app) move(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	fs := newFlags("move")
	date := fs.String("date", "", "YYYY-MM-DD")
	tm := fs.String("time", "", "slot hour, e.g. 10 or 10:00")
	if err := fs.Parse(args[1:]); err != nil || *date == "" || *tm == "" {
		return errUsage
	}
	hour, err := parseHour(*tm)
	if err != nil {
		return err
	}
	ap, err := a.api.MoveAppointment(ctx, id, api.MoveRequest{
		Date: *date,
		Time: fmt.Sprintf("%02d:00:00", hour),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "appointment %d moved to %s at %s\n", ap.ID, ap.Date, ap.Time)
	return nil
}

// ----- patients and therapy -----

func (a *app) patients(ctx context.Context, args []string) error {
	fs := newFlags("patients")
	terminated := fs.Bool("terminated", false, "list patients whose therapy has ended")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	list := a.api.ListPatients
	if *terminated {
		list = a.api.TerminatedPatients
	}
	ps, err := list(ctx)
	if err != nil {
		return err
	}
	tw := a.table("ID", "Name", "Email", "Phone")
	for _, p := range ps {
		tw.Append([]string{strconv.FormatInt(p.ID, 10), p.Ref().FullName(), p.Email, p.Phone})
	}
	tw.Render()
	return nil
}

func (a *app) patient(ctx context.Context, id int64) error {
	p, err := a.api.GetPatient(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, p.Ref().FullName())
	for _, kv := range [][2]string{
		{"email", p.Email},
		{"phone", p.Phone},
		{"born", p.BirthDate},
		{"notes", p.Notes},
	} {
		if kv[1] != "" {
			fmt.Fprintf(a.out, "  %-6s %s\n", kv[0]+":", kv[1])
		}
	}
	if p.Terminated {
		fmt.Fprintln(a.out, "  therapy terminated")
	}
	return nil
}

func (a *app) exercises(ctx context.Context) error {
	list, err := a.api.ListExercises(ctx)
	if err != nil {
		return err
	}
	tw := a.table("ID", "Name", "Body area", "Description")
	for _, e := range list {
		tw.Append([]string{strconv.FormatInt(e.ID, 10), e.Name, e.BodyArea, e.Description})
	}
	tw.Render()
	return nil
}

func (a *app) card(ctx context.Context, id int64) error {
	c, err := a.api.GetTrainingCard(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "training card %d, patient %d\n", c.ID, c.PatientID)
	tw := a.table("Exercise", "Sets", "Reps", "Notes")
	for _, ce := range c.Exercises {
		tw.Append([]string{ce.Exercise.Name, strconv.Itoa(ce.Sets), strconv.Itoa(ce.Reps), ce.Notes})
	}
	tw.Render()
	return nil
}

func (a *app) sessions(ctx context.Context, cardID int64) error {
	list, err := a.api.ListTrainingSessions(ctx, cardID)
	if err != nil {
		return err
	}
	tw := a.table("ID", "Date", "Pain", "Done", "Notes")
	for _, s := range list {
		done := 0
		for _, r := range s.Results {
			if r.Completed {
				done++
			}
		}
		tw.Append([]string{
			strconv.FormatInt(s.ID, 10),
			s.Date,
			strconv.Itoa(s.PainLevel),
			fmt.Sprintf("%d/%d", done, len(s.Results)),
			s.Notes,
		})
	}
	tw.Render()
	return nil
}

func (a *app) progress(ctx context.Context, cardID int64) error {
	graphs, err := a.api.ProgressGraph(ctx, cardID)
	if err != nil {
		return err
	}
	for _, g := range graphs {
		vals := make([]string, 0, len(g.Points))
		for _, p := range g.Points {
			vals = append(vals, p.Date+"="+strconv.FormatFloat(p.Value, 'f', -1, 64))
		}
		fmt.Fprintf(a.out, "%s: %s\n", g.Label, strings.Join(vals, " "))
	}
	return nil
}
