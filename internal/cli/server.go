package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"quiz-webapp/internal/app"
	"quiz-webapp/internal/auth"
	"quiz-webapp/internal/config"
	"quiz-webapp/internal/domain"
	"quiz-webapp/internal/infra/feed"
	"quiz-webapp/internal/infra/memory"
	"quiz-webapp/internal/infra/postgres"
	infraredis "quiz-webapp/internal/infra/redis"
	"quiz-webapp/internal/logger"
	transport "quiz-webapp/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	store, closeStore, err := openStore(ctx, cfg, redisClient, log)
	if err != nil {
		return err
	}
	defer closeStore()

	var tokens auth.TokenStore = memory.NewTokenStore()
	if redisClient != nil {
		tokens = infraredis.NewTokenStore(redisClient)
	}
	authSvc := auth.NewService(auth.Config{
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		RedirectURL:  cfg.Auth.RedirectURL,
		UserInfoURL:  cfg.Auth.UserInfoURL,
		JWTSecret:    cfg.Auth.JWTSecret,
		SessionTTL:   config.TTLDuration(cfg.Auth.SessionTTL, 24*time.Hour),
		PopupTimeout: config.TTLDuration(cfg.Auth.PopupTimeout, 5*time.Minute),
	}, tokens, log)
	if !authSvc.Configured() {
		log.Warn("google sign-in not configured; sign-in requests will fail")
	}

	deps := app.Deps{
		Store:         feed.Share(store),
		Dwell:         config.TTLDuration(cfg.Quiz.Dwell, app.DefaultDwell),
		AdminPassword: cfg.Admin.Password,
		CatalogQuery:  cfg.CatalogQuery(),
	}
	wsHandler := transport.NewWSHandler(deps, authSvc, log)
	authHandler := transport.NewAuthHandler(authSvc, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/auth/google/callback", authHandler.Callback)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting quiz webapp", zap.String("addr", server.Addr), zap.String("store", cfg.StoreDriver()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openStore builds the document store selected by store.driver.
func openStore(ctx context.Context, cfg config.Config, redisClient *redis.Client, log *zap.Logger) (app.Store, func(), error) {
	switch driver := cfg.StoreDriver(); driver {
	case config.DriverPostgres:
		if err := runMigrations(ctx, cfg, log); err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		pool, err := postgres.NewPool(ctx, cfg.Postgres.URL, postgres.PoolConfig{
			MaxConns:        cfg.Postgres.MaxConns,
			MaxConnLifetime: config.TTLDuration(cfg.Postgres.MaxConnLifetime, 0),
		})
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewStore(pool, log), pool.Close, nil
	case config.DriverRedis:
		if redisClient == nil {
			return nil, nil, fmt.Errorf("store driver redis needs redis.addr")
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return infraredis.NewStore(redisClient), func() {}, nil
	case config.DriverMemory:
		store := memory.NewStore()
		if err := seedSample(ctx, store); err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// seedSample gives the in-memory store something to play with.
func seedSample(ctx context.Context, store app.Store) error {
	quiz, err := store.CreateQuiz(ctx, domain.QuizSummary{Title: "Algebra I", Subject: "Math"})
	if err != nil {
		return err
	}
	samples := []struct {
		text    string
		options []string
		correct int
	}{
		{"What is 2 + 2?", []string{"2", "3", "4", "5"}, 2},
		{"Solve for x: x + 3 = 5", []string{"1", "2", "3", "8"}, 1},
		{"What is 3 x 3?", []string{"6", "9", "12", "33"}, 1},
	}
	for _, s := range samples {
		q, err := domain.NewQuestion(s.text, s.options, s.correct)
		if err != nil {
			return err
		}
		if _, err := store.AddQuestion(ctx, quiz.ID, q); err != nil {
			return err
		}
	}
	_, err = store.CreateQuiz(ctx, domain.QuizSummary{Title: "Cells", Subject: "Science"})
	return err
}
