package app

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ittebagilani/harada/app/models"
	svix "github.com/svix/svix-webhooks/go"
	"go.uber.org/zap"
)

type clerkEvent struct {
	Type string        `json:"type"`
	Data clerkUserData `json:"data"`
}

type clerkUserData struct {
	ID                    string `json:"id"`
	FirstName             string `json:"first_name"`
	LastName              string `json:"last_name"`
	PrimaryEmailAddressID string `json:"primary_email_address_id"`
	EmailAddresses        []struct {
		ID           string `json:"id"`
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

// email prefers the primary address and falls back to the first one.
func (d clerkUserData) email() string {
	for _, e := range d.EmailAddresses {
		if e.ID == d.PrimaryEmailAddressID {
			return e.EmailAddress
		}
	}
	if len(d.EmailAddresses) > 0 {
		return d.EmailAddresses[0].EmailAddress
	}
	return ""
}

func (d clerkUserData) name() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

// ClerkWebhook provisions users from Svix-signed Clerk events.
func (s *Server) ClerkWebhook(c *gin.Context) {
	if s.clerkWebhook == nil {
		s.logger.Error("clerk webhook secret missing")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook not configured"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := s.clerkWebhook.Verify(body, c.Request.Header); err != nil {
		s.logger.Warn("clerk webhook signature failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		return
	}

	var event clerkEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	switch event.Type {
	case "user.created", "user.updated":
		if event.Data.ID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing user id"})
			return
		}
		_, err := s.store.UpsertUser(c.Request.Context(), models.User{
			ClerkID: event.Data.ID,
			Email:   event.Data.email(),
			Name:    event.Data.name(),
		})
		if err != nil {
			s.logger.Error("clerk user upsert failed", zap.String("clerk_id", event.Data.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save user"})
			return
		}
		s.logger.Info("clerk user synced", zap.String("clerk_id", event.Data.ID), zap.String("event_type", event.Type))
	default:
		s.logger.Debug("clerk event ignored", zap.String("event_type", event.Type))
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func newClerkWebhook(secret string) (*svix.Webhook, error) {
	if secret == "" {
		return nil, nil
	}
	return svix.NewWebhook(secret)
}
