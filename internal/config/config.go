// Package config loads service configuration from the environment. In local
// development a .env file is read first via godotenv; under Lambda the
// environment is populated by the deployment and API keys may instead be
// resolved from SSM Parameter Store at cold start (see internal/boot).
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config is the full service configuration for both binaries.
type Config struct {
	// Provider selects the default LLM vendor when a request does not name
	// one: "gemini" or "openai".
	Provider string

	// GeminiAPIKey and OpenAIAPIKey authenticate the vendor adapters. Only
	// the key for the active provider is required.
	GeminiAPIKey string
	OpenAIAPIKey string

	// GeminiModel and OpenAIModel are the default model identifiers.
	GeminiModel string
	OpenAIModel string

	// Cloudinary holds the CDN credentials. Absence is a valid state that
	// routes photo submission to the inline pipeline.
	Cloudinary CloudinaryConfig

	// ExportBucket, when set, enables S3 export of generated profile
	// archives with a presigned download link.
	ExportBucket string

	// GatewayURL is the relay endpoint the CLI talks to. Empty means the
	// CLI calls the vendors directly with local keys.
	GatewayURL string
}

// CloudinaryConfig carries the CDN account credentials. All four fields are
// required for the signed-upload path; CloudName plus UploadPreset alone are
// enough for unsigned uploads.
type CloudinaryConfig struct {
	CloudName    string
	APIKey       string
	APISecret    string
	UploadPreset string
}

// Configured reports whether enough credentials exist to upload at all.
// Callers treat false as a routing signal, not an error.
func (c CloudinaryConfig) Configured() bool {
	return c.CloudName != "" && c.UploadPreset != ""
}

// Signable reports whether signed uploads and signature issuing are possible.
func (c CloudinaryConfig) Signable() bool {
	return c.Configured() && c.APIKey != "" && c.APISecret != ""
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first when present; missing .env is not an error.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded .env file")
	}

	cfg := Config{
		Provider:     envOr("LLM_PROVIDER", "gemini"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		GeminiModel:  envOr("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIModel:  envOr("OPENAI_MODEL", "gpt-5-mini"),
		Cloudinary: CloudinaryConfig{
			CloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
			APIKey:       os.Getenv("CLOUDINARY_API_KEY"),
			APISecret:    os.Getenv("CLOUDINARY_API_SECRET"),
			UploadPreset: envOr("CLOUDINARY_UPLOAD_PRESET", "magify"),
		},
		ExportBucket: os.Getenv("EXPORT_BUCKET"),
		GatewayURL:   os.Getenv("GATEWAY_URL"),
	}
	return cfg
}

// IntOr reads an integer environment variable with a default. Malformed
// values fall back to the default and are logged once.
func IntOr(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Warn().Str("var", key).Str("value", raw).Msg("Ignoring non-integer environment value")
		return def
	}
	return n
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
