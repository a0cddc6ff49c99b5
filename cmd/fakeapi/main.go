// Command fakeapi serves the in-memory FlexiFisio api for local runs of the
// client against a throwaway backend.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"flexifisio-client/internal/apitest"
	"flexifisio-client/internal/logging"
	"flexifisio-client/internal/model"
)

func main() {
	_ = godotenv.Load()
	log, err := logging.New(env("LOG_LEVEL", "debug"), env("APP_ENV", "development"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	ttl, err := time.ParseDuration(env("TOKEN_TTL", "15m"))
	if err != nil {
		log.Fatal("TOKEN_TTL", zap.Error(err))
	}
	port := env("PORT", "8080")

	srv := apitest.New(secret, apitest.WithTTL(ttl), apitest.WithLogger(log))

	// optional demo account
	if email := os.Getenv("DEMO_EMAIL"); email != "" {
		uid, err := srv.AddUser(model.Registration{
			FirstName: "Demo",
			LastName:  "Fisioterapista",
			Email:     email,
			Password:  env("DEMO_PASSWORD", "demopassword"),
			Clinic:    "FlexiFisio",
		})
		if err != nil {
			log.Fatal("demo user", zap.Error(err))
		}
		seedDemo(srv, uid)
		log.Info("demo account ready", zap.String("email", email))
	}

	httpSrv := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("fake api listening", zap.String("port", port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http", zap.Error(err))
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
}

// seedDemo fills today's agenda with a couple of bookings.
func seedDemo(srv *apitest.Server, uid string) {
	today := time.Now().Format(model.DateLayout)
	luca := srv.AddPatient(uid, model.Patient{FirstName: "Luca", LastName: "Verdi", Phone: "+39 333 0000001"})
	giulia := srv.AddPatient(uid, model.Patient{FirstName: "Giulia", LastName: "Neri", Email: "giulia@example.com"})
	srv.AddAppointment(uid, model.Appointment{Date: today, Time: "09:00:00", Confirmation: model.Confirmed, Patient: luca.Ref()})
	srv.AddAppointment(uid, model.Appointment{Date: today, Time: "16:00:00", Patient: giulia.Ref()})

	squat := srv.AddExercise(uid, model.Exercise{Name: "Squat", BodyArea: "legs"})
	srv.AddExercise(uid, model.Exercise{Name: "Bridge", BodyArea: "back"})
	card := srv.AddCard(uid, luca.ID)
	srv.AddCardExercise(uid, card.ID, model.CardExercise{Exercise: squat, Sets: 3, Reps: 12})
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
