package app

import (
	"context"
	"errors"
	"strings"

	"github.com/ittebagilani/harada/app/config"
	"github.com/ittebagilani/harada/app/models"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// BillingProvider creates hosted Stripe sessions.
type BillingProvider interface {
	CreateCustomer(ctx context.Context, user models.User) (string, error)
	CreateCheckoutSession(ctx context.Context, customerID, clientReferenceID string) (string, error)
	CreatePortalSession(ctx context.Context, customerID string) (string, error)
}

var errBillingNotConfigured = errors.New("billing not configured")

// StripeBilling implements BillingProvider with a per-instance API client
// rather than the package-level stripe.Key.
type StripeBilling struct {
	api          *client.API
	priceID      string
	frontendURL  string
	checkoutPath string
	portalPath   string
}

func NewStripeBilling(cfg config.StripeConfig) *StripeBilling {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &StripeBilling{
		api:          api,
		priceID:      cfg.PriceIDPremium,
		frontendURL:  strings.TrimRight(cfg.FrontendURL, "/"),
		checkoutPath: cfg.CheckoutReturnTo,
		portalPath:   cfg.PortalReturnTo,
	}
}

func (b *StripeBilling) CreateCustomer(ctx context.Context, user models.User) (string, error) {
	params := &stripe.CustomerParams{
		Metadata: map[string]string{
			"clerk_id": user.ClerkID,
			"user_id":  user.ID,
		},
	}
	if user.Email != "" {
		params.Email = stripe.String(user.Email)
	}
	if user.Name != "" {
		params.Name = stripe.String(user.Name)
	}
	params.Context = ctx

	cust, err := b.api.Customers.New(params)
	if err != nil {
		return "", err
	}
	return cust.ID, nil
}

func (b *StripeBilling) CreateCheckoutSession(ctx context.Context, customerID, clientReferenceID string) (string, error) {
	if b.priceID == "" || b.frontendURL == "" {
		return "", errBillingNotConfigured
	}
	returnURL := b.frontendURL + b.checkoutPath

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          stripe.String(customerID),
		ClientReferenceID: stripe.String(clientReferenceID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(b.priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(returnURL + "?checkout=success"),
		CancelURL:  stripe.String(returnURL + "?checkout=cancelled"),
	}
	params.Context = ctx

	sess, err := b.api.CheckoutSessions.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

func (b *StripeBilling) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	if b.frontendURL == "" {
		return "", errBillingNotConfigured
	}
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(b.frontendURL + b.portalPath),
	}
	params.Context = ctx

	sess, err := b.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

// ensureStripeCustomer returns the user's Stripe customer id, creating and
// storing one on first use.
func ensureStripeCustomer(ctx context.Context, store Store, billing BillingProvider, user models.User) (string, error) {
	if user.StripeCustomerID != "" {
		return user.StripeCustomerID, nil
	}
	customerID, err := billing.CreateCustomer(ctx, user)
	if err != nil {
		return "", upstream("create stripe customer", err)
	}
	if err := store.SetStripeCustomer(ctx, user.ID, customerID); err != nil {
		return "", err
	}
	return customerID, nil
}

// premiumStatus reports whether a subscription status grants premium.
func premiumStatus(status stripe.SubscriptionStatus) bool {
	return status == stripe.SubscriptionStatusActive || status == stripe.SubscriptionStatusTrialing
}
