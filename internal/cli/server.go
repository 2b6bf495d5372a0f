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

	"classquest/internal/app"
	"classquest/internal/config"
	"classquest/internal/generator"
	"classquest/internal/infra/memory"
	pgstore "classquest/internal/infra/postgres"
	redisstore "classquest/internal/infra/redis"
	transport "classquest/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the classquest server",
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

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	// Concurrency-sensitive repos go to redis when configured; the memory
	// implementations carry the same conditional-write semantics for
	// single-process deployments.
	var (
		counters app.CounterRepository
		attempts app.AttemptRepository
		scores   app.ScoreRepository
		history  app.HistoryRepository
	)
	if redisClient != nil {
		counters = redisstore.NewCounterStore(redisClient)
		attempts = redisstore.NewAttemptStore(redisClient)
		scores = redisstore.NewScoreStore(redisClient)
		history = redisstore.NewHistoryStore(redisClient)
	} else {
		counters = memory.NewCounterStore()
		attempts = memory.NewAttemptStore()
		scores = memory.NewScoreStore()
		history = memory.NewHistoryStore()
	}

	var catalog app.QuizCatalog = memory.NewCatalog()
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		catalog = pgstore.NewCatalog(pool)
	}
	cacheTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)
	catalog = memory.NewCatalogCache(catalog, cacheTTL)

	students := memory.NewStudentStore()
	classes := memory.NewClassStore()
	scenarios := memory.NewScenarioStore()

	var questionSource generator.Source
	if cfg.OpenAI.APIKey != "" {
		questionSource = generator.NewOpenAI(cfg.OpenAI.APIKey)
	}
	questions := generator.NewFallback(questionSource)

	events := app.NewBroadcaster()
	attemptService := app.NewAttemptService(catalog, attempts, scores, history, events)
	quizService := app.NewQuizService(counters, catalog, students, scores, questions)
	rankingService := app.NewRankingService(students, classes, scores, history)
	rosterService := app.NewRosterService(counters, classes, students)
	scenarioService := app.NewScenarioService(counters, scenarios, students, scores, history, events)

	api := transport.NewAPI(attemptService, quizService, rankingService, rosterService, scenarioService)
	wsHandler := transport.NewWSHandler(rankingService, events)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	api.Register(mux)
	mux.HandleFunc("GET /ws/classes/{id}/ranking", wsHandler.ServeRanking)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting classquest on :%s", finalPort)
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
