package cli

import (
	"context"
	_ "embed"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"case-trainer-service/internal/app"
	"case-trainer-service/internal/config"
	"case-trainer-service/internal/domain"
	"case-trainer-service/internal/infra/advisory"
	"case-trainer-service/internal/infra/memory"
	pgstore "case-trainer-service/internal/infra/postgres"
	redisstore "case-trainer-service/internal/infra/redis"
	"case-trainer-service/internal/scoring"
	transport "case-trainer-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

//go:embed sample_cases.json
var sampleCasesJSON []byte

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the case trainer server",
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
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	bundle, err := loadBundle(cfg.Cases.File)
	if err != nil {
		return err
	}

	var loader memory.CaseLoader = memory.NewStaticCaseLoaderFromData(bundle)
	if pool != nil {
		pgLoader := pgstore.NewCaseLoader(pool)
		if cfg.Cases.File != "" {
			if err := pgLoader.UpsertCases(ctx, bundle.Cases); err != nil {
				return err
			}
			log.Printf("seeded %d cases from %s", len(bundle.Cases), cfg.Cases.File)
		}
		loader = pgLoader
	}

	caseTTL := config.TTLDuration(cfg.Cases.TTL, 10*time.Minute)
	var caseRepo app.CaseRepository
	if redisClient != nil {
		caseRepo = redisstore.NewCaseRepository(redisClient, loader, caseTTL)
	} else {
		caseRepo = memory.NewCaseRepository(loader, caseTTL)
	}

	timer := config.TTLDuration(cfg.Session.TimerDuration, app.DefaultTimerDuration)
	var store app.SessionRepository
	if redisClient != nil {
		store = redisstore.NewSessionStore(redisClient, redisTTL, timer)
	} else {
		store = memory.NewSessionStore(timer)
	}

	var scores scoring.BestScoreStore
	switch {
	case pool != nil:
		scores = pgstore.NewBestScoreStore(pool)
	case redisClient != nil:
		scores = redisstore.NewBestScoreStore(redisClient)
	default:
		scores = memory.NewBestScoreStore()
	}

	opts := []app.Option{app.WithDefaultCase(bundle.FeaturedID())}
	var leaderboard transport.Leaderboard
	if redisClient != nil {
		sink := redisstore.NewScoreboardSink(redisClient, config.TTLDuration(cfg.Session.ScoreboardTTL, 6*time.Hour))
		opts = append(opts, app.WithScoreSink(sink))
		leaderboard = sink
	}
	if cfg.Advisory.Enabled && cfg.Advisory.Endpoint != "" {
		timeout := config.TTLDuration(cfg.Advisory.Timeout, 5*time.Second)
		opts = append(opts, app.WithAdvisor(advisory.NewClient(cfg.Advisory.Endpoint, timeout)))
		log.Printf("advisory text enabled via %s", cfg.Advisory.Endpoint)
	}

	service := app.NewTrainerService(store, caseRepo, scores, opts...)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	transport.NewRESTHandler(service, leaderboard).Register(mux)
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting case trainer on :%s", finalPort)
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

// loadBundle reads the configured cases file, or the built-in sample cases when none is set.
func loadBundle(path string) (domain.CasesData, error) {
	if path != "" {
		return memory.LoadCasesFile(path)
	}
	return sampleCases()
}

// sampleCases provides the two demo cases; point cases.file at a real bundle in production.
func sampleCases() (domain.CasesData, error) {
	return memory.ParseCases(sampleCasesJSON)
}
