package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"analysis-gateway/internal/app"
	"analysis-gateway/internal/config"
	"analysis-gateway/internal/logging"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env é opcional; variáveis já definidas no ambiente têm prioridade
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.App.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if cfg.Upstream.GroqAPIKey == "" {
		log.Warn("GROQ_API_KEY is empty; chat and transcription calls will fail")
	}
	if cfg.Upstream.HuggingFaceAPIKey == "" {
		log.Warn("HUGGINGFACE_API_KEY is empty; caption calls will fail")
	}

	a, err := app.New(cfg, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Run(ctx); err != nil {
		log.Error("server error", zap.Error(err))
		return
	}
	log.Info("gateway stopped")
}
