package api_test

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flexifisio-client/internal/api"
	"flexifisio-client/internal/apitest"
	"flexifisio-client/internal/gateway"
	"flexifisio-client/internal/model"
	"flexifisio-client/internal/session"
	"flexifisio-client/internal/slots"
	"flexifisio-client/internal/store"
)

const (
	secret   = "test-secret"
	email    = "anna@flexifisio.it"
	password = "testpass123"
)

type env struct {
	srv  *apitest.Server
	uid  string
	sess *session.Session
	auth *api.AuthClient
	api  *api.Client
}

func setup(t *testing.T) env {
	t.Helper()
	srv, ts := apitest.Start(t, secret)
	uid, err := srv.AddUser(model.Registration{
		FirstName: "Anna", LastName: "Rossi", Email: email, Password: password, Clinic: "FlexiFisio Roma",
	})
	require.NoError(t, err)

	ac := api.NewAuthClient(ts.URL, ts.Client())
	sess := session.New(ac, store.NewMemory(), zap.NewNop())
	require.NoError(t, sess.Login(context.Background(), email, password))

	gw := gateway.New(ts.URL, sess, gateway.WithHTTPClient(ts.Client()))
	return env{srv: srv, uid: uid, sess: sess, auth: ac, api: api.New(gw)}
}

var day = time.Date(2030, 5, 14, 0, 0, 0, 0, time.UTC)

// ----- auth -----

func TestLoginBadCredentials(t *testing.T) {
	e := setup(t)
	_, err := e.auth.Login(context.Background(), email, "wrong-password")
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
	assert.Contains(t, err.Error(), "invalid credentials")
}

func TestLoginValidation(t *testing.T) {
	e := setup(t)
	before := e.srv.Requests()
	_, err := e.auth.Login(context.Background(), "not-an-email", password)
	var ve *api.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, before, e.srv.Requests())
}

func TestRegisterThenLogin(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	require.NoError(t, e.sess.Logout(ctx))

	err := e.sess.Register(ctx, model.Registration{
		FirstName: "Marco", LastName: "Bianchi", Email: "marco@flexifisio.it", Password: "longenough",
	})
	require.NoError(t, err)
	assert.True(t, e.sess.LoggedIn(ctx))

	p, err := e.api.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "marco@flexifisio.it", p.Email)
	assert.Equal(t, "Marco", p.FirstName)
}

func TestRegisterValidation(t *testing.T) {
	e := setup(t)
	tests := []struct {
		name string
		reg  model.Registration
	}{
		{"empty email", model.Registration{FirstName: "A", LastName: "B", Password: "longenough"}},
		{"bad email", model.Registration{FirstName: "A", LastName: "B", Email: "x", Password: "longenough"}},
		{"short password", model.Registration{FirstName: "A", LastName: "B", Email: "a@b.it", Password: "short"}},
		{"empty name", model.Registration{LastName: "B", Email: "a@b.it", Password: "longenough"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.auth.Register(context.Background(), tt.reg)
			var ve *api.ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	e := setup(t)
	err := e.auth.Register(context.Background(), model.Registration{
		FirstName: "Anna", LastName: "Rossi", Email: email, Password: password,
	})
	assert.Equal(t, http.StatusConflict, api.StatusOf(err))
}

func TestProfile(t *testing.T) {
	e := setup(t)
	p, err := e.api.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, email, p.Email)
	assert.Equal(t, "FlexiFisio Roma", p.Clinic)
}

// ----- credential recovery -----

func TestExpiredCredentialRefreshed(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	before, _ := e.sess.Token(ctx)

	e.srv.ExpireTokens()
	_, err := e.api.ListPatients(ctx)
	require.NoError(t, err)

	after, _ := e.sess.Token(ctx)
	assert.NotEqual(t, before, after)
	assert.EqualValues(t, 1, e.srv.Refreshes())

	// the fresh credential keeps working without another refresh
	_, err = e.api.ListExercises(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, e.srv.Refreshes())
}

func TestRefreshRejectedLogsOut(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	var logouts atomic.Int32
	e.sess.OnLogout(func() { logouts.Add(1) })

	e.srv.ExpireTokens()
	e.srv.FailRefresh(true)

	_, err := e.api.ListAppointments(ctx)
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
	assert.Equal(t, "token expired", err.(*api.StatusError).Message)
	assert.False(t, e.sess.LoggedIn(ctx))
	assert.EqualValues(t, 1, logouts.Load())
}

func TestLoggedOutCallFailsWithoutRefresh(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	require.NoError(t, e.sess.Logout(ctx))

	_, err := e.api.ListPatients(ctx)
	assert.True(t, api.IsUnauthorized(err))
	assert.EqualValues(t, 0, e.srv.Refreshes())
}

// ----- appointments and slots -----

func TestDaySlotsAndBooking(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := e.srv.AddPatient(e.uid, model.Patient{FirstName: "Luca", LastName: "Verdi"})

	d, err := e.api.DaySlots(ctx, day, slots.DefaultHours)
	require.NoError(t, err)
	assert.Equal(t, slots.Ready, d.State)
	require.Len(t, d.Slots, 9)
	assert.Len(t, d.Free(), 9)

	a, err := e.api.BookSlot(ctx, p.ID, day, 10, slots.DefaultHours)
	require.NoError(t, err)
	assert.Equal(t, "2030-05-14", a.Date)
	assert.Equal(t, "10:00:00", a.Time)
	assert.Equal(t, model.NotConfirmed, a.Confirmation)
	assert.Equal(t, "Luca Verdi", a.Patient.FullName())

	d, err = e.api.DaySlots(ctx, day, slots.DefaultHours)
	require.NoError(t, err)
	s, ok := d.At(10)
	require.True(t, ok)
	require.True(t, s.Booked())
	assert.Equal(t, a.ID, s.Booking.AppointmentID)
	assert.Len(t, d.Free(), 8)

	// other days are untouched
	next, err := e.api.DaySlots(ctx, day.AddDate(0, 0, 1), slots.DefaultHours)
	require.NoError(t, err)
	assert.Len(t, next.Free(), 9)

	_, err = e.api.BookSlot(ctx, p.ID, day, 10, slots.DefaultHours)
	assert.ErrorIs(t, err, slots.ErrTaken)
	_, err = e.api.BookSlot(ctx, p.ID, day, 13, slots.DefaultHours)
	assert.ErrorIs(t, err, slots.ErrNoSlot)
}

func TestDaySlotsNoDate(t *testing.T) {
	e := setup(t)
	before := e.srv.Requests()
	d, err := e.api.DaySlots(context.Background(), time.Time{}, slots.DefaultHours)
	require.NoError(t, err)
	assert.Equal(t, slots.NoDate, d.State)
	assert.Empty(t, d.Slots)
	assert.Equal(t, before, e.srv.Requests())
}

func TestBookConflictReportedByAPI(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := e.srv.AddPatient(e.uid, model.Patient{FirstName: "Luca", LastName: "Verdi"})
	e.srv.AddAppointment(e.uid, model.Appointment{Date: "2030-05-14", Time: "11:00:00", Patient: p.Ref()})

	_, err := e.api.BookAppointment(ctx, api.BookRequest{PatientID: p.ID, Date: "2030-05-14", Time: "11:00:00"})
	assert.Equal(t, http.StatusConflict, api.StatusOf(err))
	assert.Contains(t, err.Error(), "slot already booked")
}

func TestBookValidation(t *testing.T) {
	e := setup(t)
	tests := []struct {
		name string
		req  api.BookRequest
	}{
		{"missing patient", api.BookRequest{Date: "2030-05-14", Time: "10:00:00"}},
		{"bad date", api.BookRequest{PatientID: 1, Date: "14/05/2030", Time: "10:00:00"}},
		{"bad time", api.BookRequest{PatientID: 1, Date: "2030-05-14", Time: "10am"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := e.srv.Requests()
			_, err := e.api.BookAppointment(context.Background(), tt.req)
			var ve *api.ValidationError
			assert.ErrorAs(t, err, &ve)
			assert.Equal(t, before, e.srv.Requests())
		})
	}
}

func TestMoveConfirmCancel(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := e.srv.AddPatient(e.uid, model.Patient{FirstName: "Luca", LastName: "Verdi"})
	a, err := e.api.BookAppointment(ctx, api.BookRequest{PatientID: p.ID, Date: "2030-05-14", Time: "09:00:00"})
	require.NoError(t, err)

	moved, err := e.api.MoveAppointment(ctx, a.ID, api.MoveRequest{Date: "2030-05-15", Time: "16:00:00"})
	require.NoError(t, err)
	assert.Equal(t, "2030-05-15", moved.Date)
	assert.Equal(t, "16:00:00", moved.Time)

	require.NoError(t, e.api.ConfirmAppointment(ctx, a.ID))
	list, err := e.api.ListAppointments(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsConfirmed())

	require.NoError(t, e.api.DeleteAppointment(ctx, a.ID))
	list, err = e.api.ListAppointments(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	err = e.api.DeleteAppointment(ctx, a.ID)
	assert.True(t, api.IsNotFound(err))
}

// ----- patients and exercises -----

func TestPatientsLifecycle(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	p, err := e.api.CreatePatient(ctx, api.PatientRequest{FirstName: "Giulia", LastName: "Neri", Email: "giulia@example.com"})
	require.NoError(t, err)
	assert.NotZero(t, p.ID)

	p, err = e.api.UpdatePatient(ctx, p.ID, api.PatientRequest{FirstName: "Giulia", LastName: "Neri", Phone: "+39 333 1234567"})
	require.NoError(t, err)
	assert.Equal(t, "+39 333 1234567", p.Phone)

	got, err := e.api.GetPatient(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Giulia Neri", got.Ref().FullName())

	require.NoError(t, e.api.DeletePatient(ctx, p.ID))
	active, err := e.api.ListPatients(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
	ended, err := e.api.TerminatedPatients(ctx)
	require.NoError(t, err)
	require.Len(t, ended, 1)
	assert.True(t, ended[0].Terminated)

	_, err = e.api.GetPatient(ctx, 9999)
	assert.True(t, api.IsNotFound(err))
}

func TestPatientValidation(t *testing.T) {
	e := setup(t)
	_, err := e.api.CreatePatient(context.Background(), api.PatientRequest{FirstName: "Solo"})
	var ve *api.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestExercisesCRUD(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	ex, err := e.api.CreateExercise(ctx, api.ExerciseRequest{Name: "Squat", BodyArea: "legs"})
	require.NoError(t, err)

	ex, err = e.api.UpdateExercise(ctx, ex.ID, api.ExerciseRequest{Name: "Half squat", BodyArea: "legs"})
	require.NoError(t, err)
	assert.Equal(t, "Half squat", ex.Name)

	got, err := e.api.GetExercise(ctx, ex.ID)
	require.NoError(t, err)
	assert.Equal(t, "legs", got.BodyArea)

	list, err := e.api.ListExercises(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, e.api.DeleteExercise(ctx, ex.ID))
	_, err = e.api.GetExercise(ctx, ex.ID)
	assert.True(t, api.IsNotFound(err))

	_, err = e.api.CreateExercise(ctx, api.ExerciseRequest{Name: "Plank", VideoURL: "not a url"})
	var ve *api.ValidationError
	assert.ErrorAs(t, err, &ve)
}

// ----- training -----

func TestTrainingCardAndProgress(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := e.srv.AddPatient(e.uid, model.Patient{FirstName: "Luca", LastName: "Verdi"})
	squat := e.srv.AddExercise(e.uid, model.Exercise{Name: "Squat"})
	card := e.srv.AddCard(e.uid, p.ID)

	c, err := e.api.AddCardExercise(ctx, card.ID, api.CardExerciseRequest{ExerciseID: squat.ID, Sets: 3, Reps: 10})
	require.NoError(t, err)
	require.Len(t, c.Exercises, 1)
	assert.Equal(t, "Squat", c.Exercises[0].Exercise.Name)

	got, err := e.api.GetTrainingCard(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.PatientID)

	_, err = e.api.CreateTrainingSession(ctx, card.ID, api.SessionRequest{
		Date: "2030-05-01", PainLevel: 6,
		Results: []model.ExerciseResult{{ExerciseID: squat.ID, Sets: 3, Reps: 10, Completed: true}},
	})
	require.NoError(t, err)
	_, err = e.api.CreateTrainingSession(ctx, card.ID, api.SessionRequest{
		Date: "2030-05-08", PainLevel: 4,
		Results: []model.ExerciseResult{{ExerciseID: squat.ID, Sets: 3, Reps: 10}},
	})
	require.NoError(t, err)

	sessions, err := e.api.ListTrainingSessions(ctx, card.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, card.ID, sessions[0].CardID)

	graphs, err := e.api.ProgressGraph(ctx, card.ID)
	require.NoError(t, err)
	require.Len(t, graphs, 2)
	assert.Equal(t, "pain", graphs[0].Label)
	assert.Equal(t, []model.GraphPoint{{Date: "2030-05-01", Value: 6}, {Date: "2030-05-08", Value: 4}}, graphs[0].Points)
	assert.Equal(t, "Squat", graphs[1].Label)
	assert.Equal(t, []model.GraphPoint{{Date: "2030-05-01", Value: 30}, {Date: "2030-05-08", Value: 0}}, graphs[1].Points)
}

func TestTrainingValidation(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	_, err := e.api.CreateTrainingSession(ctx, 1, api.SessionRequest{Date: "2030-05-01", PainLevel: 11})
	var ve *api.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = e.api.AddCardExercise(ctx, 1, api.CardExerciseRequest{ExerciseID: 1})
	assert.ErrorAs(t, err, &ve)

	_, err = e.api.GetTrainingCard(ctx, 12345)
	assert.True(t, api.IsNotFound(err))
}

func TestStatusErrorPlainText(t *testing.T) {
	se := &api.StatusError{StatusCode: 502}
	assert.Equal(t, "api: status 502", se.Error())
	assert.Equal(t, 502, api.StatusOf(se))
	assert.Equal(t, 0, api.StatusOf(errors.New("other")))
}
