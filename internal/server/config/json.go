package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/hiinen/internal/flagx"
	"github.com/dmitrijs2005/hiinen/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations use
// timex.Duration so both "15m" strings and integer nanoseconds are accepted.
// Only fields present (non-zero) in the file override the current values.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                  string         `json:"database_dsn"`
	DatabaseName                 string         `json:"database_name"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	BcryptCost                   int            `json:"bcrypt_cost"`
	AuthMode                     string         `json:"auth_mode"`
	SupabaseURL                  string         `json:"supabase_url"`
	SupabaseAnonKey              string         `json:"supabase_anon_key"`
	FrontendURL                  string         `json:"frontend_url"`
	LLMBaseURL                   string         `json:"ai_endpoint"`
	LLMModel                     string         `json:"ai_model"`
	LLMAPIKey                    string         `json:"ai_api_key"`
	LLMTimeout                   timex.Duration `json:"ai_timeout"`
	RedisAddr                    string         `json:"redis_addr"`
	RedisPassword                string         `json:"redis_password"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	RateLimitPerMinute           int            `json:"rate_limit_per_minute"`
	RequestTimeout               timex.Duration `json:"request_timeout"`
	RequireAuthForAI             *bool          `json:"require_auth_for_ai"`
	LogFormat                    string         `json:"log_format"`
	LogLevel                     string         `json:"log_level"`
}

// parseJson overlays the JSON file named by -c/-config (or $CONFIG) onto
// config. No path means nothing to load.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	c.apply(config)
	return nil
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.DatabaseName, c.DatabaseName)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setInt(&config.BcryptCost, c.BcryptCost)
	setString(&config.AuthMode, c.AuthMode)
	setString(&config.SupabaseURL, c.SupabaseURL)
	setString(&config.SupabaseAnonKey, c.SupabaseAnonKey)
	setString(&config.FrontendURL, c.FrontendURL)
	setString(&config.LLMBaseURL, c.LLMBaseURL)
	setString(&config.LLMModel, c.LLMModel)
	setString(&config.LLMAPIKey, c.LLMAPIKey)
	setDuration(&config.LLMTimeout, c.LLMTimeout)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setInt(&config.RateLimitPerMinute, c.RateLimitPerMinute)
	setDuration(&config.RequestTimeout, c.RequestTimeout)
	if c.RequireAuthForAI != nil {
		config.RequireAuthForAI = *c.RequireAuthForAI
	}
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
