package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/modular-ai/core/internal/models"
	"github.com/modular-ai/core/internal/pkg/jwt"
	"github.com/modular-ai/core/internal/pkg/response"
	"gorm.io/gorm"
)

const ContextKeyUserID = "user_id"

// Auth returns a middleware that enforces admin JWT authentication.
func Auth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := validateAdminToken(db, extractToken(c))
		if err != nil {
			response.Unauthorized(c, "unauthorized", "Authentication required")
			return
		}
		c.Set(ContextKeyUserID, userID)
		c.Next()
	}
}

// OptionalAuth sets the admin user ID if a valid token is present, but does
// not block the request.
func OptionalAuth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, err := validateAdminToken(db, extractToken(c)); err == nil {
			c.Set(ContextKeyUserID, userID)
		}
		c.Next()
	}
}

func validateAdminToken(db *gorm.DB, rawToken string) (int64, error) {
	claims, err := jwt.Parse(rawToken)
	if err != nil {
		return 0, err
	}
	// The token must still map to an existing account.
	var user models.UserModel
	if err := db.Select("id").First(&user, "id = ?", claims.UserID).Error; err != nil {
		return 0, err
	}
	return user.ID, nil
}

// CurrentUserID extracts the authenticated admin user ID from context.
func CurrentUserID(c *gin.Context) int64 {
	v, _ := c.Get(ContextKeyUserID)
	id, _ := v.(int64)
	return id
}

// IsAuthenticated reports whether the request carries a valid admin token.
func IsAuthenticated(c *gin.Context) bool {
	return CurrentUserID(c) != 0
}

func extractToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		return NormalizeToken(auth)
	}
	return NormalizeToken(c.Query("token"))
}

// NormalizeToken trims spaces and strips an optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
