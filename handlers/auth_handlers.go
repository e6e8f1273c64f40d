package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"devfolio/api/models"
	"devfolio/api/store"
	"devfolio/api/utils"
)

type AuthHandlers struct {
	UserStore *store.UserStore
}

func NewAuthHandlers(userStore *store.UserStore) *AuthHandlers {
	return &AuthHandlers{UserStore: userStore}
}

// Login validates dashboard credentials and issues a JWT cookie. Failures
// never say which of username or password was wrong.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}

	operator, err := h.UserStore.GetOperatorByUsername(c.Request.Context(), req.Username)
	if err != nil {
		if !errors.Is(err, store.ErrOperatorNotFound) {
			log.Printf("ERROR: Database error during login for %s: %v", req.Username, err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword(operator.HashedPassword, []byte(req.Password)); err != nil {
		log.Printf("Login failed for %s: password mismatch", req.Username)
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid credentials"})
		return
	}

	tokenString, err := utils.GenerateJWT(operator.ID, operator.Username)
	if err != nil {
		log.Printf("ERROR: Failed to generate JWT for operator %d: %v", operator.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to generate authentication token"})
		return
	}

	c.SetCookie(
		"jwt_token",
		tokenString,
		int(24*time.Hour/time.Second),
		"/",
		"",
		false,
		true,
	)

	log.Printf("Operator logged in: %s", operator.Username)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AuthHandlers) Logout(c *gin.Context) {
	c.SetCookie(
		"jwt_token",
		"",
		-1,
		"/",
		"",
		false,
		true,
	)

	c.JSON(http.StatusOK, gin.H{"success": true})
}
