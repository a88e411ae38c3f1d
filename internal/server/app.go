// Package server wires the HiiNen backend together: it opens the identity
// store, builds the authentication backend and the AI co-founder, and runs
// the HTTP API next to the gRPC health service until a shutdown signal.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/hiinen/internal/logging"
	"github.com/dmitrijs2005/hiinen/internal/server/auth"
	"github.com/dmitrijs2005/hiinen/internal/server/cofounder"
	"github.com/dmitrijs2005/hiinen/internal/server/config"
	"github.com/dmitrijs2005/hiinen/internal/server/http/middleware"
	"github.com/dmitrijs2005/hiinen/internal/server/llm"
	"github.com/dmitrijs2005/hiinen/internal/server/metrics"
	"github.com/dmitrijs2005/hiinen/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/hiinen/internal/server/services"
	"github.com/dmitrijs2005/hiinen/internal/server/sessions"
	"github.com/dmitrijs2005/hiinen/internal/server/supabase"

	gs "github.com/dmitrijs2005/hiinen/internal/server/grpc"
	hs "github.com/dmitrijs2005/hiinen/internal/server/http"
)

type App struct {
	config *config.Config
	logger logging.Logger
	repos  repomanager.RepositoryManager
	redis  *redis.Client
	http   *hs.Server
	grpc   *gs.HealthServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogFormat, c.LogLevel, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	repos, err := repomanager.Open(ctx, c.DatabaseDSN, c.DatabaseName)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := repos.RunMigrations(ctx); err != nil {
		_ = repos.Close(ctx)
		return nil, fmt.Errorf("migration error: %w", err)
	}

	app := &App{config: c, logger: logger, repos: repos}

	denylist, err := app.newDenylist(ctx)
	if err != nil {
		_ = repos.Close(ctx)
		return nil, err
	}

	hasher := auth.NewPasswordHasher(c.BcryptCost)
	authenticator := app.newAuthenticator(hasher, denylist)
	accounts := services.NewUserService(repos.Users(), authenticator, hasher,
		services.NewS3AvatarStorage(c), c.FrontendURL, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	client := llm.NewClient(c.LLMBaseURL, c.LLMModel, c.LLMAPIKey, c.LLMTimeout, llm.WithRecorder(m))
	if c.LLMAPIKey == "" {
		logger.Warn(ctx, "no model API key configured; AI co-founder calls will fail")
	}

	router := hs.NewRouter(hs.RouterConfig{
		Accounts:         accounts,
		Authenticator:    accounts,
		CoFounder:        cofounder.NewService(client, c.LLMModel, logger),
		Metrics:          m,
		Logger:           logger,
		RateLimiter:      middleware.NewRateLimiter(c.RateLimitPerMinute),
		RequestTimeout:   c.RequestTimeout,
		RequireAuthForAI: c.RequireAuthForAI,
	})

	app.http = hs.NewServer(c.EndpointAddrHTTP, router, logger)
	app.grpc = gs.NewHealthServer(c.EndpointAddrGRPC, logger, repos)
	return app, nil
}

// newDenylist keeps revoked tokens in Redis when REDIS_ADDR is set, in
// process memory otherwise.
func (app *App) newDenylist(ctx context.Context) (sessions.Denylist, error) {
	if app.config.RedisAddr == "" {
		return sessions.NewMemoryDenylist(), nil
	}
	client, err := sessions.ConnectRedis(ctx, app.config.RedisAddr, app.config.RedisPassword)
	if err != nil {
		return nil, fmt.Errorf("redis init error: %w", err)
	}
	app.redis = client
	return sessions.NewRedisDenylist(client), nil
}

func (app *App) newAuthenticator(hasher *auth.PasswordHasher, denylist sessions.Denylist) services.Authenticator {
	c := app.config
	if c.AuthMode == config.AuthModeSupabase {
		provider := supabase.NewClient(c.SupabaseURL, c.SupabaseAnonKey, nil)
		return services.NewSupabaseAuthenticator(provider, app.repos.Users(), app.logger)
	}
	tokens := auth.NewTokenIssuer([]byte(c.SecretKey), c.AccessTokenValidityDuration)
	return services.NewLocalAuthenticator(app.repos, hasher, tokens, denylist, c.RefreshTokenValidityDuration)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// run starts a server and cancels the whole app if it fails.
func (app *App) run(ctx context.Context, cancelFunc context.CancelFunc, name string, start func(context.Context) error) {
	if err := start(ctx); err != nil {
		app.logger.Error(ctx, "server failed", "server", name, "error", err)
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "auth_mode", app.config.AuthMode)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.run(ctx, cancelFunc, "http", app.http.Run)
	}()
	go func() {
		defer wg.Done()
		app.run(ctx, cancelFunc, "grpc", app.grpc.Run)
	}()

	wg.Wait()

	app.close()
	app.logger.Info(context.Background(), "App stopped")
}

func (app *App) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.repos.Close(ctx); err != nil {
		app.logger.Error(ctx, "error closing store", "error", err)
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(ctx, "error closing redis", "error", err)
		}
	}
	if s, ok := app.logger.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}
}
