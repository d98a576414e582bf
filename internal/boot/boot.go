// Package boot holds cold-start bootstrap helpers shared by both binaries:
// AWS config, SSM-backed API keys, and the optional S3 export client. Each
// main's init path is a short composition of these.
package boot

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/magify/flame-enhancer/internal/export"
	"github.com/magify/flame-enhancer/internal/logging"
)

// AWSClients holds the core AWS SDK clients.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// InitAWS loads the default AWS config and the SSM client.
func InitAWS() AWSClients {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{Config: cfg, SSM: ssm.NewFromConfig(cfg)}
}

// LoadAPIKey resolves one API key: the env var wins, then the SSM parameter
// named by paramEnvVar, then defaultParam. Missing everywhere is fatal only
// when required; optional keys return quietly.
func LoadAPIKey(ssmClient *ssm.Client, envVar, paramEnvVar, defaultParam string, required bool) {
	if os.Getenv(envVar) != "" {
		return
	}
	paramName := os.Getenv(paramEnvVar)
	if paramName == "" {
		paramName = defaultParam
	}

	start := time.Now()
	result, err := ssmClient.GetParameter(context.Background(), &ssm.GetParameterInput{
		Name:           &paramName,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		if required {
			log.Fatal().Err(err).Str("param", paramName).Msg("Failed to read API key from SSM")
		}
		log.Warn().Err(err).Str("param", paramName).Str("key", envVar).Msg("API key not found in SSM, provider disabled")
		return
	}
	os.Setenv(envVar, *result.Parameter.Value)
	log.Debug().Str("param", paramName).Dur("elapsed", time.Since(start)).Msgf("%s loaded from SSM", envVar)
}

// InitExporter builds the optional S3 exporter; nil when no bucket is set.
func InitExporter(cfg aws.Config, bucket string) *export.Exporter {
	if bucket == "" {
		log.Debug().Msg("Export bucket not set, S3 export disabled")
		return nil
	}
	return export.New(s3.NewFromConfig(cfg), bucket)
}

// StartupLog starts a startup logger stamped with the elapsed init time.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
