package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/batuta/dashboard/internal/api"
	"github.com/batuta/dashboard/internal/api/handler"
	"github.com/batuta/dashboard/internal/core/ports"
	"github.com/batuta/dashboard/internal/infrastructure/apiclient"
	"github.com/batuta/dashboard/internal/infrastructure/config"
	"github.com/batuta/dashboard/internal/infrastructure/db/file"
	"github.com/batuta/dashboard/internal/infrastructure/db/memory"
	"github.com/batuta/dashboard/internal/infrastructure/db/mongo"
	"github.com/batuta/dashboard/internal/infrastructure/db/redis"
	"github.com/batuta/dashboard/internal/infrastructure/queue"
	"github.com/batuta/dashboard/pkg/logger"
)

// @title        BATUTA Dashboard API
// @version      1.0
// @description  Session-backed gateway for the BATUTA CRM dashboard.
// @host         localhost:8080
// @BasePath     /
// @schemes      http
func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		panic(err)
	}

	log := logger.Init(logger.ForEnv(cfg.Env, cfg.LogLevel))

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Session.Store).Msg("failed to open session store")
	}
	defer st.close()

	client := apiclient.New(apiclient.Options{
		BaseURL:       cfg.API.BaseURL,
		Timeout:       cfg.API.Timeout,
		OnAuthFailure: api.AuthFailureHook(logger.Component("auth_failure")),
		Logger:        logger.Component("apiclient"),
	})
	messages := apiclient.NewMessageAPI(client)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	reads := queue.NewDispatcher(cfg.Messaging.ReadWorkers, queue.ReadSinkFunc(func(ctx context.Context, id string) error {
		_, err := messages.MarkAsRead(ctx, id)
		return err
	}), log)
	reads.Start(workerCtx)

	e := api.NewRouter(api.Deps{
		Log:      log,
		Auth:     apiclient.NewAuthAPI(client),
		Messages: messages,
		Resources: api.Resources{
			Equipment:  apiclient.Equipments(client),
			Products:   apiclient.Products(client),
			Orders:     apiclient.Orders(client),
			Deliveries: apiclient.Deliveries(client),
			Users:      apiclient.Users(client),
		},
		Sessions:     st.sessions,
		Flash:        st.flash,
		Submit:       st.submit,
		Reads:        reads,
		CookieName:   cfg.Session.Cookie,
		CookieSecure: cfg.Session.CookieSecure || cfg.IsProduction(),
		SessionTTL:   cfg.Session.TTL,
		GuardTimeout: cfg.Session.GuardTimeout,
		PollInterval: cfg.Messaging.PollInterval,
		Pingers:      st.pingers,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Str("session_store", cfg.Session.Store).Msg("dashboard listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	cancelWorkers()
	reads.Wait()
	log.Info().Msg("server exited cleanly")
}

type stores struct {
	sessions ports.SessionStore
	flash    ports.FlashStore
	submit   ports.SubmissionGuard
	pingers  map[string]handler.Pinger
	closers  []func(context.Context) error
}

func (s *stores) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, c := range s.closers {
		_ = c(ctx)
	}
}

// openStores picks the session backend. Flash banners and the submission
// guard live in Redis when it is the session backend and in memory otherwise.
func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	st := &stores{
		flash:   memory.NewFlashStore(cfg.Session.FlashTTL),
		submit:  memory.NewSubmissionGuard(cfg.Session.SubmitTTL),
		pingers: map[string]handler.Pinger{},
	}

	switch cfg.Session.Store {
	case config.StoreRedis:
		rdb, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		sessions := redis.NewSessionStore(rdb, cfg.Session.TTL)
		st.sessions = sessions
		st.flash = redis.NewFlashStore(rdb, cfg.Session.FlashTTL)
		st.submit = redis.NewSubmissionGuard(rdb, cfg.Session.SubmitTTL)
		st.pingers["redis"] = sessions
		st.closers = append(st.closers, func(context.Context) error { return rdb.Close() })

	case config.StoreMongo:
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		sessions := mongo.NewSessionStore(db, cfg.Session.TTL)
		if err := sessions.EnsureIndexes(ctx); err != nil {
			log.Warn().Err(err).Msg("ensure session indexes failed")
		}
		st.sessions = sessions
		st.pingers["mongo"] = sessions
		st.closers = append(st.closers, client.Disconnect)

	case config.StoreMemory:
		sessions := memory.NewSessionStore(cfg.Session.TTL)
		st.sessions = sessions
		st.pingers["sessions"] = sessions

	default:
		sessions, err := file.NewSessionStore(cfg.Session.Dir, cfg.Session.TTL)
		if err != nil {
			return nil, err
		}
		st.sessions = sessions
		st.pingers["sessions"] = sessions
	}
	return st, nil
}
