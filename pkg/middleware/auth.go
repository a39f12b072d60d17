package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"clinic-console-server/internal/config"
	"clinic-console-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ActorContextKey is the gin context key holding the resolved models.Actor
const ActorContextKey = "actor"

// Claims represents the JWT claims issued by the identity provider
type Claims struct {
	ActorID string `json:"actor_id"`
	jwt.RegisteredClaims
}

// ProfileResolver resolves a token's actor id to its profile row.
// The role on the profile is authoritative; the token only carries identity.
type ProfileResolver interface {
	GetByID(id string) (*models.Profile, error)
}

// ActorMiddleware authenticates the request and stores the resolved Actor in
// the context. Requests without a valid session are rejected here; core
// operations downstream can assume a non-zero actor.
func ActorMiddleware(cfg *config.Config, profiles ProfileResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(cfg.JWT.Secret), nil
		})
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Token has expired"})
				c.Abort()
				return
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(*Claims)
		if !ok || claims.ActorID == "" || claims.ExpiresAt == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		profile, err := profiles.GetByID(claims.ActorID)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Profile lookup failed"})
			c.Abort()
			return
		}
		if profile == nil || !profile.IsActive {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unknown or inactive actor"})
			c.Abort()
			return
		}

		c.Set(ActorContextKey, profile.Actor())
		c.Next()
	}
}

// ActorFromContext retrieves the authenticated actor set by ActorMiddleware.
// The zero Actor means the request never passed authentication.
func ActorFromContext(c *gin.Context) models.Actor {
	value, exists := c.Get(ActorContextKey)
	if !exists {
		return models.Actor{}
	}
	actor, ok := value.(models.Actor)
	if !ok {
		return models.Actor{}
	}
	return actor
}

// GenerateToken generates a session token for an actor id. Exists for
// provisioning and tests; production tokens come from the identity provider.
func GenerateToken(actorID string, cfg *config.Config) (string, error) {
	if actorID == "" {
		return "", errors.New("actor ID is required")
	}
	if cfg == nil {
		return "", errors.New("config is required")
	}
	if cfg.JWT.Secret == "" {
		return "", errors.New("JWT secret is required")
	}

	claims := &Claims{
		ActorID: actorID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(cfg.JWT.TokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.JWT.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return tokenString, nil
}
