package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quizdesk/internal/app"
	"quizdesk/internal/config"
	"quizdesk/internal/infra/memory"
	"quizdesk/internal/infra/postgres"
	redisinfra "quizdesk/internal/infra/redis"
	transport "quizdesk/internal/transport/http"
)

// devSecret signs tokens when no secret is configured; only suitable for
// local in-memory runs.
const devSecret = "quizdesk-dev-secret"

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz service",
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

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var quizRepo app.QuizRepository
	var attemptRepo app.AttemptRepository
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		quizRepo = postgres.NewQuizRepository(pool)
		attemptRepo = postgres.NewAttemptRepository(pool)
	} else {
		log.Printf("no postgres url configured, using in-memory stores")
		quizRepo = memory.NewQuizRepository()
		attemptRepo = memory.NewAttemptRepository()
	}

	var sessions app.AttemptSessionStore
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		grace := config.GraceDuration(cfg.Session.Grace, 5*time.Minute)
		sessions = redisinfra.NewSessionStore(client, grace)
	} else {
		sessions = memory.NewSessionStore()
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		log.Printf("no jwt secret configured, using the development secret")
		secret = devSecret
	}

	quizService := app.NewQuizService(quizRepo, attemptRepo)
	attemptService := app.NewAttemptService(quizRepo, attemptRepo, sessions)
	reportService := app.NewReportService(quizRepo, attemptRepo)

	auth := transport.NewAuthService(secret)
	handlers := transport.NewHandlers(quizService, attemptService, reportService)
	ws := transport.NewAttemptWSHandler(attemptService)
	router := transport.NewRouter(auth, handlers, ws, cfg.Server.AllowedOrigins)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quizdesk on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
