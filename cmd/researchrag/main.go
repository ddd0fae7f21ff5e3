package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/researchrag/internal/config"
	"github.com/kailas-cloud/researchrag/internal/domain"
	logpkg "github.com/kailas-cloud/researchrag/internal/logger"
	"github.com/kailas-cloud/researchrag/internal/metrics"
	chiTransport "github.com/kailas-cloud/researchrag/internal/transport/chi"
	openaiLLM "github.com/kailas-cloud/researchrag/internal/transport/openai"
	"github.com/kailas-cloud/researchrag/internal/transport/websearch"
	chatuc "github.com/kailas-cloud/researchrag/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/researchrag/internal/usecase/health"
	llmuc "github.com/kailas-cloud/researchrag/internal/usecase/llm"
	raguc "github.com/kailas-cloud/researchrag/internal/usecase/rag"
	usageuc "github.com/kailas-cloud/researchrag/internal/usecase/usage"
	"github.com/kailas-cloud/researchrag/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting researchrag API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	ctx := context.Background()
	st, err := openBackend(ctx, &cfg)
	if err != nil {
		logger.Fatal("Failed to open content store", zap.Error(err))
	}
	defer st.close()
	logger.Info("Connected to content store", zap.String("driver", cfg.Database.Driver))

	// Register metrics explicitly (no init())
	metrics.RegisterLLMMetrics()
	metrics.RegisterRAGMetrics()

	// Single BudgetTracker shared by the completer and the usage service.
	var budget *llmuc.BudgetTracker
	budgetCfg := cfg.LLM.Budget
	if budgetCfg.DailyTokenLimit > 0 || budgetCfg.MonthlyTokenLimit > 0 {
		budget = llmuc.NewBudgetTracker(
			cfg.Storage.KeyPrefix, cfg.LLM.Provider,
			budgetCfg.DailyTokenLimit, budgetCfg.MonthlyTokenLimit,
			llmuc.ParseBudgetAction(budgetCfg.Action), logger,
		)
		budget.WithStore(ctx, st.budget)
	}

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	// Go gotcha: (*BudgetTracker)(nil) wrapped in BudgetChecker != nil.
	var budgetChecker llmuc.BudgetChecker
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetChecker = budget
		budgetReader = budget
	}

	models, err := tierModels(cfg.LLM.Models)
	if err != nil {
		logger.Fatal("Invalid model configuration", zap.Error(err))
	}
	base, err := openaiLLM.NewCompleter(&openaiLLM.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Models:  models,
		User:    version.UserAgent(),
		Timeout: time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal("Failed to create completer", zap.Error(err))
	}
	completer := llmuc.NewInstrumentedCompleter(base, budgetChecker, logger)
	logger.Info("Completer created",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("cheap", models[domain.Cheap]),
		zap.String("mid", models[domain.Mid]),
		zap.String("deep", models[domain.Deep]),
	)

	web, err := websearch.New(websearch.Config{
		Provider: websearch.Provider(cfg.WebSearch.Provider),
		APIKey:   cfg.WebSearch.APIKey,
		BaseURL:  cfg.WebSearch.BaseURL,
		Results:  cfg.WebSearch.Results,
		Timeout:  time.Duration(cfg.WebSearch.TimeoutSec) * time.Second,
	})
	if err != nil {
		logger.Fatal("Failed to create web searcher", zap.Error(err))
	}

	pipeline := raguc.New(st.blocks, completer, web, raguc.Config{
		SearchLimit: cfg.RAG.SearchLimit,
		CallTimeout: cfg.RAG.CallTimeout(),
		Topics:      cfg.RAG.Topics,
		MaxTokens: raguc.MaxTokens{
			Intent:         cfg.RAG.MaxTokens.Intent,
			Relevance:      cfg.RAG.MaxTokens.Relevance,
			Synthesis:      cfg.RAG.MaxTokens.Synthesis,
			Deep:           cfg.RAG.MaxTokens.Deep,
			Conversational: cfg.RAG.MaxTokens.Conversational,
		},
	}, logger)

	chatSvc := chatuc.New(st.sessions, pipeline)
	usageSvc := usageuc.New(budgetReader)
	healthSvc := healthuc.New(st.pinger, base)

	server := chiTransport.NewServer(pipeline, chatSvc, usageSvc, healthSvc, logger)
	router := chiTransport.NewRouter(server, logger, cfg.Auth.APIKeys)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func tierModels(in map[string]string) (map[domain.Tier]string, error) {
	out := make(map[domain.Tier]string, len(in))
	for name, model := range in {
		tier, err := domain.ParseTier(name)
		if err != nil {
			return nil, err
		}
		out[tier] = model
	}
	return out, nil
}
