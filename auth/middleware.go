package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DevSubject is the subject injected when auth is disabled.
const DevSubject = "local-dev"

// MiddlewareConfig controls auth enforcement behavior.
type MiddlewareConfig struct {
	// AuthorizedParties restricts the azp claim when non-empty.
	AuthorizedParties []string
	DisableAuth       bool
	// OnAuthenticated runs after verification, e.g. to provision the user row.
	// A non-nil error aborts the request with 500 unless the hook already
	// wrote its own response.
	OnAuthenticated func(c *gin.Context, claims *Claims) error
	Logger          *zap.Logger
}

// Middleware enforces bearer token auth and injects claims into the request context.
func Middleware(verifier *Verifier, cfg MiddlewareConfig) gin.HandlerFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DisableAuth {
		logger.Warn("auth disabled, all requests run as " + DevSubject)
	}

	return func(c *gin.Context) {
		if cfg.DisableAuth {
			claims := &Claims{
				Subject: DevSubject,
				Issuer:  "local",
				Raw:     map[string]any{"sub": DevSubject},
			}
			authenticate(c, claims, cfg, logger)
			return
		}

		if verifier == nil {
			respondUnauthorized(c, "auth verifier not configured")
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Info("auth failure: missing Authorization header", zap.String("path", c.Request.URL.Path))
			respondUnauthorized(c, "missing authorization header")
			return
		}

		token, ok := extractBearerToken(authHeader)
		if !ok {
			logger.Info("auth failure: malformed Authorization header", zap.String("path", c.Request.URL.Path))
			respondUnauthorized(c, "invalid authorization header")
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			logger.Info("auth failure: token invalid", zap.String("path", c.Request.URL.Path), zap.Error(err))
			respondUnauthorized(c, "invalid token")
			return
		}

		if !authorizedParty(claims.AuthorizedParty, cfg.AuthorizedParties) {
			logger.Info("auth failure: unexpected azp",
				zap.String("path", c.Request.URL.Path),
				zap.String("azp", claims.AuthorizedParty),
			)
			respondUnauthorized(c, "invalid token")
			return
		}

		authenticate(c, claims, cfg, logger)
	}
}

func authenticate(c *gin.Context, claims *Claims, cfg MiddlewareConfig, logger *zap.Logger) {
	ctx := WithClaims(c.Request.Context(), claims)
	c.Request = c.Request.WithContext(ctx)

	if cfg.OnAuthenticated != nil {
		if err := cfg.OnAuthenticated(c, claims); err != nil {
			if c.IsAborted() {
				logger.Info("post-auth hook rejected request", zap.String("sub", claims.Subject), zap.Error(err))
				return
			}
			logger.Error("post-auth hook failed", zap.String("sub", claims.Subject), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
			return
		}
	}
	c.Next()
}

func extractBearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

func authorizedParty(azp string, allowed []string) bool {
	if len(allowed) == 0 || azp == "" {
		return true
	}
	for _, party := range allowed {
		if party == "*" || strings.EqualFold(strings.TrimRight(party, "/"), strings.TrimRight(azp, "/")) {
			return true
		}
	}
	return false
}

func respondUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": message,
	})
}
