package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"lingotutor.io/smart-tutor/internal/api"
	"lingotutor.io/smart-tutor/internal/auth"
	"lingotutor.io/smart-tutor/internal/config"
	"lingotutor.io/smart-tutor/internal/core"
	"lingotutor.io/smart-tutor/internal/llm"
	"lingotutor.io/smart-tutor/internal/logging"
	"lingotutor.io/smart-tutor/internal/store"
	"lingotutor.io/smart-tutor/internal/tutor"
)

func main() {
	// Command line flag for minting a development token
	issueToken := flag.String("issue-token", "", "Print a signed JWT for the given user id and exit")
	flag.Parse()

	if err := config.LoadConfig(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if *issueToken != "" {
		token, err := auth.GenerateJWT(*issueToken)
		if err != nil {
			log.Fatalf("Failed to sign token: %v", err)
		}
		fmt.Println(token)
		os.Exit(0)
	}

	logger, err := logging.New(config.AppConfig.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg := config.AppConfig

	dbStore, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbStore.Close()

	generator, closeGenerator, err := newGenerator(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer closeGenerator()

	prompts, err := tutor.LoadPrompts()
	if err != nil {
		return err
	}
	smartTutor, err := tutor.New(generator, prompts, dbStore, logger)
	if err != nil {
		return err
	}

	profileService := core.NewProfileService(dbStore, logger)
	vocabularyService := core.NewVocabularyService(dbStore, logger)
	chatService := core.NewChatService(dbStore, smartTutor, profileService, vocabularyService, generator, prompts, cfg.HistoryLimit, logger)
	defer chatService.Close()

	apiHandler := api.NewAPIHandler(api.Services{
		Chats:         chatService,
		Vocabulary:    vocabularyService,
		Profiles:      profileService,
		Phrases:       core.NewPhraseService(generator, prompts, profileService, logger),
		Pronunciation: core.NewPronunciationService(dbStore, generator, prompts, profileService, logger),
		Health:        dbStore,
	}, logger)
	router := api.NewRouter(apiHandler, cfg.AllowedOrigins, logger)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3*cfg.LLMTimeout + 15*time.Second, // a turn makes up to two LLM calls
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", serverAddr), zap.String("llm_provider", cfg.LLMProvider))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("could not listen on %s: %w", serverAddr, err)
	case sig := <-quit:
		logger.Info("shutting down server", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exiting gracefully")
	return nil
}

func newGenerator(ctx context.Context, cfg config.Config, logger *zap.Logger) (tutor.Generator, func(), error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		gen, err := llm.NewOpenAI(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.LLMTimeout, logger)
		if err != nil {
			return nil, nil, err
		}
		return gen, func() {}, nil
	default:
		gen, err := llm.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.LLMTimeout, logger)
		if err != nil {
			return nil, nil, err
		}
		return gen, func() {
			if err := gen.Close(); err != nil {
				logger.Warn("failed to close Gemini client", zap.Error(err))
			}
		}, nil
	}
}
