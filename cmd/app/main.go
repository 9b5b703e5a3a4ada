package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"student-writer-backend/internal/config"
	"student-writer-backend/internal/domain/ports/adapter"
	aiAdapters "student-writer-backend/internal/infra/adapters/ai"
	payAdapters "student-writer-backend/internal/infra/adapters/payment"
	pg "student-writer-backend/internal/infra/db/postgres"
	"student-writer-backend/internal/infra/logging"
	"student-writer-backend/internal/infra/metrics"
	red "student-writer-backend/internal/infra/redis"
	"student-writer-backend/internal/infra/web"
	"student-writer-backend/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop payment gateway allowed)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("dev mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	codeRepo := pg.NewCodeRepo(pool)
	orderRepo := pg.NewOrderRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- Payment gateway ----
	var gateway adapter.PaymentGateway
	if cfg.Payment.KakaoPay.AdminKey != "" {
		gateway, err = payAdapters.NewKakaoPayGateway(
			cfg.Payment.KakaoPay.AdminKey,
			cfg.Payment.KakaoPay.CID,
			cfg.Payment.KakaoPay.ReadyURL,
			cfg.Payment.KakaoPay.ApproveURL,
		)
		if err != nil {
			logger.Fatal().Err(err).Msg("kakaopay gateway")
		}
	} else if cfg.Runtime.Dev {
		gateway = payAdapters.NewNoopGateway()
		logger.Warn().Msg("payment gateway: noop (dev)")
	} else {
		logger.Fatal().Msg("no payment gateway configured")
	}

	// ---- AI adapter (optional; prompt-only mode without one) ----
	var ai adapter.AIServiceAdapter
	switch {
	case cfg.AI.OpenAIKey != "":
		ai, err = aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.DefaultModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai adapter")
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("AI adapter: OpenAI")
	case cfg.AI.GeminiKey != "":
		ai, err = aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.DefaultModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini adapter")
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("AI adapter: Gemini")
	default:
		logger.Info().Msg("no AI provider configured; serving prompts only")
	}

	// ---- Use cases ----
	codeUC := usecase.NewCodeUseCase(codeRepo, cfg.Code.DefaultQuota, logger)
	paymentUC := usecase.NewPaymentUseCase(orderRepo, codeRepo, codeUC, gateway, tm, locker, cfg.Server.HostURL, cfg.Code.DefaultQuota, logger)
	promptUC := usecase.NewPromptUseCase(codeUC, rateLimiter, cfg.Prompt.FreeDailyLimit, ai, cfg.AI.DefaultModel, logger)

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Admin.APISecret, !cfg.Runtime.Dev, cfg.Admin.SessionTTL)
	srv := web.NewServer(paymentUC, codeUC, promptUC, auth, cfg.Admin.APISecret, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}
