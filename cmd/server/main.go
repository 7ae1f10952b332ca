package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"prediagnosis/internal/core"
	"prediagnosis/internal/db"
	"prediagnosis/internal/guidance"
	httpserver "prediagnosis/internal/http"
	"prediagnosis/internal/llm"
	"prediagnosis/pkg"
)

func main() {
	logger, err := buildLogger(os.Getenv("LOG_MODE"))
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL must be set")
	}

	dbConn, err := sql.Open("postgres", dbURL)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbConn.PingContext(ctx); err != nil {
		logger.Fatal("failed to ping database", zap.Error(err))
	}
	if err := db.Migrate(context.Background(), dbConn); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	repo := db.NewRepository(dbConn)

	notifyChannel := os.Getenv("POSTGRES_NOTIFY_CHANNEL")
	if notifyChannel == "" {
		notifyChannel = "dialogue_updates"
	}
	notifier := db.NewNotifier(dbConn, dbURL, notifyChannel, logger)

	// LLM collaborators (env: OPENAI_API_KEY, OPENAI_MODEL)
	llmClient := llm.NewClient(os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENAI_MODEL"), logger)

	guidanceDir := os.Getenv("GUIDANCE_DIR")
	if guidanceDir == "" {
		guidanceDir = "guidance"
	}
	loader := guidance.NewLoader(guidanceDir, logger)

	cfg := core.Config{
		MaxSteps:            envInt("MAX_STEPS", core.DefaultMaxSteps),
		CompletionThreshold: envFloat("COMPLETION_THRESHOLD", core.DefaultCompletionThreshold),
		Policy:              core.ParseSelectorPolicy(os.Getenv("SELECTOR_POLICY")),
	}
	catalog := core.DefaultCatalog()

	registry := core.NewRegistry(func(sessionID string) *core.Workflow {
		sessionGuidance := guidance.NewSessionGuidance(loader, llmClient)
		return core.NewWorkflow(sessionID, catalog, core.Deps{
			Assessor:  llmClient,
			Updater:   llmClient,
			Questions: llmClient,
			Guidance:  sessionGuidance,
			Triager:   llmClient,
			OnTriage: func(t pkg.TriageResult) {
				sessionGuidance.SetTriage(t)
				pctx, pcancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer pcancel()
				if err := repo.SaveTriageRecord(pctx, sessionID, t); err != nil {
					logger.Warn("failed to persist triage record",
						zap.String("session_id", sessionID), zap.Error(err))
				}
			},
		}, cfg, logger)
	})

	metrics := httpserver.NewMetrics()
	turnTimeout := time.Duration(envInt("TURN_TIMEOUT_SECONDS", 120)) * time.Second
	srv := httpserver.NewServer(registry, repo, notifier, metrics, logger, turnTimeout)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	addr := ":" + port
	logger.Info("listening", zap.String("addr", addr),
		zap.String("policy", string(cfg.Policy)), zap.Int("max_steps", cfg.MaxSteps))
	if err := http.ListenAndServe(addr, srv.Router()); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func buildLogger(mode string) (*zap.Logger, error) {
	if mode == "prod" || mode == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func envInt(name string, fallback int) int {
	if s := os.Getenv(name); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			return v
		}
	}
	return fallback
}

func envFloat(name string, fallback float64) float64 {
	if s := os.Getenv(name); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
	}
	return fallback
}
