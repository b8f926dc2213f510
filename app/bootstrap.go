package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/ittebagilani/harada/app/config"
	"github.com/ittebagilani/harada/app/llm"
	"github.com/ittebagilani/harada/auth"
	"go.uber.org/zap"
)

// Runtime is a fully wired server plus the resources it holds open.
type Runtime struct {
	Server *Server
	Router *gin.Engine
	DB     *sql.DB

	limiter *RedisLimiter
}

// Bootstrap connects every backing service named in cfg and builds the router.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Server.GinMode != "" {
		gin.SetMode(cfg.Server.GinMode)
	}

	db, err := OpenPostgres(ctx, cfg.DB.ConnString())
	if err != nil {
		return nil, err
	}
	rt := &Runtime{DB: db}

	opts := Options{
		Store:  NewPostgresStore(db),
		Logger: logger,
		Config: cfg,
	}

	completer := llm.NewAnthropicClient(llm.Config{
		APIKey:  cfg.AI.APIKey,
		BaseURL: cfg.AI.BaseURL,
		Model:   cfg.AI.Model,
		Timeout: cfg.AI.Timeout,
	}, logger.Named("llm"))
	opts.AI = llm.NewGenerator(completer, cfg.AI.PillarMaxTokens, cfg.AI.TaskMaxTokens, logger.Named("llm"))
	if cfg.AI.APIKey == "" {
		logger.Warn("ANTHROPIC_API_KEY not set, generation endpoints will fail")
	}

	if cfg.Stripe.SecretKey != "" {
		opts.Billing = NewStripeBilling(cfg.Stripe)
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, billing endpoints disabled")
	}

	if cfg.Redis.Addr != "" {
		limiter, err := NewRedisLimiter(ctx, RedisLimiterConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Limit:    cfg.Redis.GenerationLimit,
			Window:   cfg.Redis.GenerationWindow,
		})
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.limiter = limiter
		opts.Limiter = limiter
	}

	if !cfg.Auth.Disabled {
		verifier, err := auth.NewVerifier(cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.JWKSURL)
		if err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("auth verifier: %w", err)
		}
		opts.Verifier = verifier
	}

	srv, err := NewServer(opts)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Server = srv
	rt.Router = NewRouter(srv)
	return rt, nil
}

// Close releases the database pool and the Redis client.
func (r *Runtime) Close() error {
	if r.limiter != nil {
		_ = r.limiter.Close()
	}
	if r.DB != nil {
		return r.DB.Close()
	}
	return nil
}
