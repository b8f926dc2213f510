package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health is a public health check endpoint.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Me returns the profile and billing flags of the authenticated user.
func (s *Server) Me(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"isPremium":       user.IsPremium,
		"email":           user.Email,
		"name":            user.Name,
		"hasSubscription": user.HasSubscription(),
		"isFirstUser":     user.IsFirstUser,
	})
}

// CompleteOnboarding clears the first-run flag.
func (s *Server) CompleteOnboarding(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	if err := s.store.CompleteOnboarding(c.Request.Context(), user.ID); err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
