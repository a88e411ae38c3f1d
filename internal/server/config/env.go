package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/hiinen/internal/timex"
)

// envFile is loaded before the environment is read. Variables already set
// in the process environment take precedence over the file.
var envFile = ".env"

// parseEnv overlays environment variables onto config. Unset or empty
// variables leave the current value alone.
func parseEnv(config *Config) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: load %s: %w", envFile, err)
	}

	envString(&config.EndpointAddrHTTP, "HTTP_ADDR")
	envString(&config.EndpointAddrGRPC, "GRPC_ADDR")
	envString(&config.DatabaseDSN, "MONGODB_URI")
	envString(&config.DatabaseDSN, "DATABASE_DSN")
	envString(&config.DatabaseName, "DATABASE_NAME")
	envString(&config.SecretKey, "JWT_SECRET")
	envString(&config.AuthMode, "AUTH_MODE")
	envString(&config.SupabaseURL, "SUPABASE_URL")
	envString(&config.SupabaseAnonKey, "SUPABASE_ANON_KEY")
	envString(&config.FrontendURL, "FRONTEND_URL")
	envString(&config.LLMBaseURL, "AI_ENDPOINT")
	envString(&config.LLMModel, "AI_MODEL")
	envString(&config.LLMAPIKey, "GITHUB_TOKEN")
	envString(&config.LLMAPIKey, "AI_API_KEY")
	envString(&config.RedisAddr, "REDIS_ADDR")
	envString(&config.RedisPassword, "REDIS_PASSWORD")
	envString(&config.S3RootUser, "S3_ROOT_USER")
	envString(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	envString(&config.S3Bucket, "S3_BUCKET")
	envString(&config.S3Region, "S3_REGION")
	envString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	envString(&config.LogFormat, "LOG_FORMAT")
	envString(&config.LogLevel, "LOG_LEVEL")

	return errors.Join(
		envDuration(&config.AccessTokenValidityDuration, "ACCESS_TOKEN_TTL"),
		envDuration(&config.RefreshTokenValidityDuration, "REFRESH_TOKEN_TTL"),
		envDuration(&config.LLMTimeout, "AI_TIMEOUT"),
		envDuration(&config.RequestTimeout, "REQUEST_TIMEOUT"),
		envInt(&config.BcryptCost, "BCRYPT_COST"),
		envInt(&config.RateLimitPerMinute, "RATE_LIMIT_PER_MINUTE"),
		envBool(&config.RequireAuthForAI, "REQUIRE_AUTH_FOR_AI"),
	)
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := timex.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = d
	return nil
}

func envInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = n
	return nil
}

func envBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = b
	return nil
}
