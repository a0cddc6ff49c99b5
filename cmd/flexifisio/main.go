package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"flexifisio-client/internal/api"
	"flexifisio-client/internal/config"
	"flexifisio-client/internal/gateway"
	"flexifisio-client/internal/logging"
	"flexifisio-client/internal/metrics"
	"flexifisio-client/internal/middleware"
	"flexifisio-client/internal/session"
	"flexifisio-client/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()
	log, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	if len(os.Args) < 2 {
		usage(os.Stderr)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("credential store", zap.String("backend", cfg.Store), zap.Error(err))
		return 1
	}
	defer closeStore()

	a := newApp(cfg, log, st, os.Stdout, os.Stderr)
	defer a.dumpMetrics()
	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		if errors.Is(err, errUsage) {
			usage(os.Stderr)
			return 2
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// openStore picks the credential backend named by the config.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.CredentialStore, func(), error) {
	switch cfg.Store {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("db: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("db ping: %w", err)
		}
		pg := store.NewPGStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Debug("credential store: postgres")
		return pg, pool.Close, nil

	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPass})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		log.Debug("credential store: redis", zap.String("addr", cfg.RedisAddr))
		return store.NewRedisStore(rdb, "flexifisio:"), func() { rdb.Close() }, nil

	case "file", "":
		fs, err := store.NewFileStore(cfg.StoreDir)
		if err != nil {
			return nil, nil, err
		}
		log.Debug("credential store: file", zap.String("dir", cfg.StoreDir))
		return fs, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
}

type app struct {
	log  *zap.Logger
	sess *session.Session
	api  *api.Client
	reg  *prometheus.Registry
	out  io.Writer
	errw io.Writer

	// set while the user logs out on purpose
	leaving bool
}

func newApp(cfg *config.Config, log *zap.Logger, st store.CredentialStore, out, errw io.Writer) *app {
	rl := middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst)
	hc := &http.Client{
		Timeout:   cfg.HTTPTimeout,
		Transport: middleware.Logging(log, middleware.RateLimit(rl, http.DefaultTransport)),
	}

	reg := prometheus.NewRegistry()
	sess := session.New(api.NewAuthClient(cfg.APIURL, hc), st, log)
	gw := gateway.New(cfg.APIURL, sess,
		gateway.WithHTTPClient(hc),
		gateway.WithLogger(log),
		gateway.WithMetrics(metrics.NewGatewayMetrics(reg)),
	)

	a := &app{log: log, sess: sess, api: api.New(gw), reg: reg, out: out, errw: errw}
	sess.OnLogout(func() {
		if !a.leaving {
			fmt.Fprintln(a.errw, "session expired, please log in again")
		}
	})
	return a
}

// dumpMetrics logs the gateway counters of this run at debug level.
func (a *app) dumpMetrics() {
	if !a.log.Core().Enabled(zap.DebugLevel) {
		return
	}
	mfs, err := a.reg.Gather()
	if err != nil {
		return
	}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			c := m.GetCounter()
			if c == nil {
				continue
			}
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			a.log.Debug("metric",
				zap.String("name", mf.GetName()),
				zap.String("labels", strings.Join(labels, ",")),
				zap.Float64("value", c.GetValue()))
		}
	}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `usage: flexifisio <command> [flags]

account:
  login -email E -password P
  register -first F -last L -email E -password P [-clinic C]
  logout
  whoami

agenda:
  slots [-date YYYY-MM-DD]
  appointments
  book -patient ID -date YYYY-MM-DD -time HH
  confirm ID
  move ID -date YYYY-MM-DD -time HH
  cancel ID

patients and therapy:
  patients [-terminated]
  patient ID
  exercises
  card ID
  sessions CARD_ID
  progress CARD_ID
`)
}
