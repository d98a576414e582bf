// Package main is the relay Lambda: one HTTP surface serving the
// provider-normalizing generation endpoint and the CDN signature endpoint.
//
// Endpoints:
//
//	POST /api/generate             normalized LLM generation (Gemini or OpenAI)
//	GET  /api/cloudinary-signature signed-upload grant (503 when no CDN configured)
//	GET  /api/health               health check
//
// Runs under AWS Lambda behind API Gateway when AWS_LAMBDA_FUNCTION_NAME is
// set, otherwise as a plain local HTTP server for development.
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/magify/flame-enhancer/internal/boot"
	"github.com/magify/flame-enhancer/internal/config"
	"github.com/magify/flame-enhancer/internal/gateway"
	"github.com/magify/flame-enhancer/internal/logging"
)

var (
	cfg config.Config
	svc *gateway.Service
)

func init() {
	initStart := time.Now()
	logging.Init()

	inLambda := os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
	cfg = config.Load()

	// Under Lambda the API keys live in SSM Parameter Store; locally they
	// come from the environment or .env.
	if inLambda {
		clients := boot.InitAWS()
		boot.LoadAPIKey(clients.SSM, "GEMINI_API_KEY", "SSM_GEMINI_KEY_PARAM", "/flame-enhancer/prod/gemini-api-key", cfg.Provider == gateway.ProviderGemini)
		boot.LoadAPIKey(clients.SSM, "OPENAI_API_KEY", "SSM_OPENAI_KEY_PARAM", "/flame-enhancer/prod/openai-api-key", cfg.Provider == gateway.ProviderOpenAI)
		cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
		cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}

	var providers []gateway.Provider
	if cfg.GeminiAPIKey != "" {
		gem, err := gateway.NewGeminiProvider(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Gemini provider")
		}
		providers = append(providers, gem)
	}
	if cfg.OpenAIAPIKey != "" {
		providers = append(providers, gateway.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel))
	}
	if len(providers) == 0 {
		log.Fatal().Msg("No provider API keys configured")
	}

	var err error
	svc, err = gateway.NewService(cfg.Provider, gateway.NewImageFetcher(nil), providers...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build gateway service")
	}

	boot.StartupLog("gateway-lambda", initStart).
		Config("defaultProvider", cfg.Provider).
		Feature("gemini", cfg.GeminiAPIKey != "").
		Feature("openai", cfg.OpenAIAPIKey != "").
		Feature("cloudinary", cfg.Cloudinary.Signable()).
		Log()
}

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", handleGenerate)
	mux.HandleFunc("/api/cloudinary-signature", handleSignature)
	mux.HandleFunc("/api/health", handleHealth)

	handler := withCORS(mux)

	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		adapter := httpadapter.NewV2(handler)
		lambda.Start(adapter.ProxyWithContext)
		return
	}

	addr := ":" + envOr("PORT", "8080")
	log.Info().Str("addr", addr).Msg("Starting local gateway server")
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
