package app

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ittebagilani/harada/app/models"
	"github.com/ittebagilani/harada/auth"
)

const userCtxKey = "grid64.user"

// ensureUser loads the user for the verified subject, creating the row on
// first contact.
func ensureUser(ctx context.Context, store Store, claims *auth.Claims) (models.User, error) {
	if claims == nil || claims.Subject == "" {
		return models.User{}, ErrUnauthorized
	}

	u, err := store.GetUserByClerkID(ctx, claims.Subject)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return models.User{}, err
	}

	return store.UpsertUser(ctx, models.User{
		ClerkID: claims.Subject,
		Email:   readStringClaim(claims.Raw, "email"),
		Name:    readStringClaim(claims.Raw, "name"),
	})
}

// provisionUser is the auth middleware hook that attaches the user row.
// Unauthorized subjects are answered here with 401.
func (s *Server) provisionUser(c *gin.Context, claims *auth.Claims) error {
	u, err := ensureUser(c.Request.Context(), s.store, claims)
	if errors.Is(err, ErrUnauthorized) {
		respondError(c, s.logger, err)
		return err
	}
	if err != nil {
		return err
	}
	c.Set(userCtxKey, u)
	return nil
}

// currentUser returns the user attached by provisionUser.
func currentUser(c *gin.Context) (models.User, error) {
	if v, ok := c.Get(userCtxKey); ok {
		if u, ok := v.(models.User); ok && u.ID != "" {
			return u, nil
		}
	}
	return models.User{}, ErrUnauthorized
}

func readStringClaim(raw map[string]any, key string) string {
	if raw == nil {
		return ""
	}
	val, ok := raw[key]
	if !ok {
		return ""
	}
	if s, ok := val.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
