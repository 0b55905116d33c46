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

	"trivia-bingo-service/internal/app"
	"trivia-bingo-service/internal/config"
	"trivia-bingo-service/internal/domain"
	"trivia-bingo-service/internal/infra/memory"
	pgstore "trivia-bingo-service/internal/infra/postgres"
	rediscache "trivia-bingo-service/internal/infra/redis"
	transport "trivia-bingo-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the contest server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		// no config file: run the in-memory demo room
		log.Printf("config %s not found, using defaults", configPath)
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

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)

	var service *app.GameService
	if pool != nil {
		loader := pgstore.NewQuestionLoader(pool)
		var questions app.QuestionRepository
		if redisClient != nil {
			questions = rediscache.NewQuestionCache(redisClient, loader, questionTTL)
		} else {
			questions = memory.NewQuestionCache(loader, questionTTL)
		}
		service = app.NewGameService(
			pgstore.NewRoomRepository(pool),
			questions,
			pgstore.NewTeamRepository(pool),
			pgstore.NewProgressStore(pool),
			pgstore.NewAttemptLog(pool),
			pgstore.NewAssignmentRepository(pool),
		)
	} else {
		// No database configured: run the demo room fully in memory.
		store := memory.NewGameStore()
		store.AddRoom(demoRoom())
		questions := memory.NewQuestionCache(memory.NewStaticQuestionLoader(demoQuestions()), questionTTL)
		service = app.NewGameService(store, questions, store, store, store, store)
	}

	handler := transport.NewHandler(service)
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting trivia bingo service on :%s", finalPort)
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

// demoRoom and demoQuestions provide a small playable room for local runs
// without Postgres; real rooms come from the admin panel.
func demoRoom() domain.Room {
	return domain.Room{Code: "DEMO", Title: "Demo Trivia Night"}
}

func demoQuestions() map[string][]domain.Question {
	return map[string][]domain.Question{
		"DEMO": {
			{ID: 1, RoomCode: "DEMO", Text: "What is 2 + 2?", Answer: "4", IsReal: true},
			{ID: 2, RoomCode: "DEMO", Text: "Capital of France?", Answer: "Paris", IsReal: true},
			{ID: 3, RoomCode: "DEMO", Text: "Largest planet in the solar system?", Answer: "Jupiter", IsReal: true},
			{ID: 4, RoomCode: "DEMO", Text: "HTTP status for Not Found?", Answer: "404", IsReal: true},
			{ID: 5, RoomCode: "DEMO", Text: "How many sides does a heptagon have?", Answer: "7", IsReal: false},
		},
	}
}
