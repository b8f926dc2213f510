package app

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ittebagilani/harada/app/llm"
	"go.uber.org/zap"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUpstream     = errors.New("upstream error")
	ErrRateLimited  = errors.New("rate limited")
)

// appError attaches a client-facing message to one of the sentinels above.
type appError struct {
	kind error
	msg  string
}

func (e *appError) Error() string { return e.msg }
func (e *appError) Unwrap() error { return e.kind }

func notFound(format string, args ...any) error {
	return &appError{kind: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}

func invalidInput(format string, args ...any) error {
	return &appError{kind: ErrInvalidInput, msg: fmt.Sprintf(format, args...)}
}

func upstream(msg string, err error) error {
	return &appError{kind: ErrUpstream, msg: fmt.Sprintf("%s: %v", msg, err)}
}

// UpgradeRequiredError is returned when a free user hits the plan limit.
type UpgradeRequiredError struct {
	Limit int
}

func (e UpgradeRequiredError) Error() string {
	return "Free users can only create one plan. Upgrade to premium for unlimited plans."
}

// respondError maps service errors onto HTTP responses. Server-side failures
// are logged and answered with a generic message.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var (
		upgrade    UpgradeRequiredError
		invalidAI  *llm.InvalidResponseError
		providerEr *llm.APIError
		ae         *appError
	)

	switch {
	case errors.As(err, &upgrade):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": upgrade.Error(), "requiresUpgrade": true})
	case errors.Is(err, ErrUnauthorized):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidInput):
		status := http.StatusNotFound
		if errors.Is(err, ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		msg := err.Error()
		if errors.As(err, &ae) {
			msg = ae.msg
		}
		c.AbortWithStatusJSON(status, gin.H{"error": msg})
	case errors.Is(err, ErrRateLimited):
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many generation requests, try again later"})
	case errors.As(err, &invalidAI):
		logger.Warn("invalid AI response", zap.String("path", c.FullPath()), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "AI returned an invalid response, please try again"})
	case errors.As(err, &providerEr), errors.Is(err, ErrUpstream), errors.Is(err, llm.ErrNotConfigured):
		logger.Error("upstream failure", zap.String("path", c.FullPath()), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "upstream service failed"})
	default:
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
