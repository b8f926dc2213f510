package app

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"
)

const maxWebhookBody = int64(65536)

// CreateCheckoutSession starts a subscription checkout for the current user.
func (s *Server) CreateCheckoutSession(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	if s.billing == nil {
		respondError(c, s.logger, upstream("checkout", errBillingNotConfigured))
		return
	}

	customerID, err := ensureStripeCustomer(c.Request.Context(), s.store, s.billing, user)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	url, err := s.billing.CreateCheckoutSession(c.Request.Context(), customerID, user.ClerkID)
	if err != nil {
		respondError(c, s.logger, upstream("create checkout session", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// CreatePortalSession opens the billing portal for the stored customer.
func (s *Server) CreatePortalSession(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	if user.StripeCustomerID == "" {
		respondError(c, s.logger, notFound("no billing account found"))
		return
	}
	if s.billing == nil {
		respondError(c, s.logger, upstream("portal", errBillingNotConfigured))
		return
	}

	url, err := s.billing.CreatePortalSession(c.Request.Context(), user.StripeCustomerID)
	if err != nil {
		respondError(c, s.logger, upstream("create portal session", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// SubscriptionStatus reports the premium flag and whether a subscription exists.
func (s *Server) SubscriptionStatus(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"isPremium":       user.IsPremium,
		"hasSubscription": user.HasSubscription(),
	})
}

// StripeWebhook verifies the signature and applies subscription events.
// Store failures answer 500 so Stripe redelivers.
func (s *Server) StripeWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if s.stripeWebhookSecret == "" {
		s.logger.Error("stripe webhook secret missing")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook not configured"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		body,
		c.GetHeader("Stripe-Signature"),
		s.stripeWebhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		s.logger.Warn("stripe webhook signature failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		return
	}

	ctx := c.Request.Context()
	log := s.logger.With(zap.String("event_id", event.ID), zap.String("event_type", string(event.Type)))

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			log.Warn("stripe session unmarshal failed", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session payload"})
			return
		}
		customerID := ""
		if sess.Customer != nil {
			customerID = sess.Customer.ID
		}
		if sess.ClientReferenceID == "" || customerID == "" {
			log.Warn("stripe session missing client reference or customer")
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing client reference or customer id"})
			return
		}
		subscriptionID := ""
		if sess.Subscription != nil {
			subscriptionID = sess.Subscription.ID
		}

		matched, err := s.store.MarkPremiumFromCheckout(ctx, sess.ClientReferenceID, customerID, subscriptionID)
		if err != nil {
			log.Error("stripe premium upgrade failed", zap.String("customer", customerID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
			return
		}
		if !matched {
			log.Warn("stripe checkout for unknown user", zap.String("clerk_id", sess.ClientReferenceID))
		}

	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			log.Warn("stripe subscription unmarshal failed", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription payload"})
			return
		}
		customerID := ""
		if sub.Customer != nil {
			customerID = sub.Customer.ID
		}
		if customerID == "" {
			log.Warn("stripe subscription missing customer id")
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing customer id"})
			return
		}

		if event.Type == stripe.EventTypeCustomerSubscriptionCreated {
			err = s.store.BackfillSubscription(ctx, customerID, sub.ID)
		} else {
			err = s.store.SetPremiumByCustomer(ctx, customerID, premiumStatus(sub.Status))
		}
		if err != nil {
			log.Error("stripe subscription update failed", zap.String("customer", customerID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
			return
		}

	default:
		log.Debug("stripe event ignored")
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
