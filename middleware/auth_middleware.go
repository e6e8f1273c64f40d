package middleware

import (
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"devfolio/api/utils"
)

// AuthRequired gates the dashboard routes. It accepts either the JWT
// cookie set at login, a Bearer token, or (for scripted operator access) a
// non-empty X-API-KEY matching the configured key.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != "" && apiKey == os.Getenv("DASHBOARD_API_KEY") {
			c.Next()
			return
		}

		tokenString, err := c.Cookie("jwt_token")
		if err != nil {
			tokenString = c.GetHeader("Authorization")
			if tokenString == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: No token provided"})
				return
			}
			if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
				tokenString = tokenString[7:]
			}
		}

		claims, err := utils.ValidateJWT(tokenString)
		if err != nil {
			log.Printf("AuthRequired: Invalid JWT token: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid or expired token"})
			return
		}

		c.Set("operator_id", claims.OperatorID)
		c.Set("operator_username", claims.Username)

		c.Next()
	}
}
