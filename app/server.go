package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/ittebagilani/harada/app/config"
	"github.com/ittebagilani/harada/auth"
	svix "github.com/svix/svix-webhooks/go"
	"go.uber.org/zap"
)

// Options carries everything the HTTP server depends on. Billing, Limiter
// and Verifier are optional.
type Options struct {
	Store    Store
	AI       AIGenerator
	Billing  BillingProvider
	Limiter  GenerationLimiter
	Verifier *auth.Verifier
	Logger   *zap.Logger
	Config   *config.Config
	Now      func() time.Time
	Intn     func(int) int
}

// Server holds the services behind the HTTP handlers.
type Server struct {
	store     Store
	logger    *zap.Logger
	lifecycle *PlanLifecycle
	daily     *DailySelector
	progress  *Progress
	generator *PlanGenerator
	billing   BillingProvider
	verifier  *auth.Verifier
	cfg       *config.Config

	stripeWebhookSecret string
	clerkWebhook        *svix.Webhook
}

func NewServer(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("store is required")
	}
	if opts.AI == nil {
		return nil, errors.New("AI generator is required")
	}
	if opts.Config == nil {
		opts.Config = &config.Config{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	clerkWebhook, err := newClerkWebhook(opts.Config.Auth.ClerkWebhookSecret)
	if err != nil {
		return nil, fmt.Errorf("clerk webhook secret: %w", err)
	}

	lifecycle := NewPlanLifecycle(opts.Store, opts.Now)
	return &Server{
		store:               opts.Store,
		logger:              opts.Logger,
		lifecycle:           lifecycle,
		daily:               NewDailySelector(opts.Store, opts.Logger, opts.Now, opts.Intn),
		progress:            NewProgress(opts.Store, opts.Now),
		generator:           NewPlanGenerator(opts.Store, opts.AI, lifecycle, opts.Limiter, opts.Logger, opts.Now),
		billing:             opts.Billing,
		verifier:            opts.Verifier,
		cfg:                 opts.Config,
		stripeWebhookSecret: opts.Config.Stripe.WebhookSecret,
		clerkWebhook:        clerkWebhook,
	}, nil
}
