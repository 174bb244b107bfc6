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

	"moneyrank-service/internal/app"
	"moneyrank-service/internal/config"
	"moneyrank-service/internal/domain"
	"moneyrank-service/internal/infra/memory"
	pginfra "moneyrank-service/internal/infra/postgres"
	redisinfra "moneyrank-service/internal/infra/redis"
	transport "moneyrank-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the ranking-quiz server",
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
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.ChallengeLoader = memory.NewStaticChallengeLoader(sampleChallenges())
	if pool != nil {
		loader = pginfra.NewChallengeStore(pool)
	}

	challengeTTL := config.TTLDuration(cfg.Challenge.TTL, 10*time.Minute)
	var challenges app.ChallengeRepository
	if redisClient != nil {
		challenges = redisinfra.NewChallengeRepository(redisClient, loader, challengeTTL)
	} else {
		challenges = memory.NewChallengeRepository(loader, challengeTTL)
	}

	symmetric := cfg.Aggregation.SymmetricReplacement
	var attempts app.AttemptRepository = memory.NewAttemptRepository()
	var aggregates app.AggregateStore = memory.NewAggregateStore(symmetric)
	if pool != nil {
		attempts = pginfra.NewAttemptRepository(pool)
		aggregates = pginfra.NewAggregateStore(pool, symmetric)
	} else if redisClient != nil {
		aggregates = redisinfra.NewAggregateStore(redisClient, symmetric)
	}

	var streaks app.StreakTracker = memory.NewStreakTracker()
	var feeds app.FeedRepository = memory.NewFeedStore()
	if redisClient != nil {
		streaks = redisinfra.NewStreakTracker(redisClient)
		feeds = redisinfra.NewFeedStore(redisClient, redisTTL)
	}

	service := app.NewAttemptService(challenges, attempts, aggregates, streaks, feeds, cfg.Thresholds())

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	transport.NewAPIHandler(service).Register(mux)
	mux.HandleFunc("/ws", transport.NewWSHandler(service).ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting moneyrank service on :%s", finalPort)
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

// sampleChallenges provides a minimal challenge set; swap the loader for the
// Postgres-backed one in production.
func sampleChallenges() map[string]domain.Challenge {
	return map[string]domain.Challenge{
		"day-1": {
			ID:     "day-1",
			Prompt: "You get a surprise $1,000 bonus. Rank what to do first.",
			Options: []domain.ChallengeOption{
				{ID: "o1", Text: "Pay down the credit card balance", Tier: domain.TierOptimal, Rationale: "Highest guaranteed return", OrderingIndex: 1},
				{ID: "o2", Text: "Top up the emergency fund", Tier: domain.TierReasonable, Rationale: "Buffer before investing", OrderingIndex: 2},
				{ID: "o3", Text: "Buy index funds", Tier: domain.TierReasonable, Rationale: "Good, but after the debt", OrderingIndex: 3},
				{ID: "o4", Text: "Put it on a meme stock", Tier: domain.TierRisky, Rationale: "Pure speculation", OrderingIndex: 4},
			},
		},
	}
}
