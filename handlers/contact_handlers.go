package handlers

import (
	"context"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"devfolio/api/models"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// CaptchaVerifier checks a captcha token against the provider.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// ContactMailer dispatches a contact-form submission to the site owner.
type ContactMailer interface {
	Send(ctx context.Context, req models.ContactRequest) error
}

type ContactHandlers struct {
	Captcha CaptchaVerifier
	Mailer  ContactMailer
}

func NewContactHandlers(captcha CaptchaVerifier, mailer ContactMailer) *ContactHandlers {
	return &ContactHandlers{
		Captcha: captcha,
		Mailer:  mailer,
	}
}

// SubmitContact validates and dispatches a contact-form message. All
// validation runs before the captcha or mail dependencies are touched, so a
// malformed submission costs no external calls.
func (h *ContactHandlers) SubmitContact(c *gin.Context) {
	var req models.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Subject = strings.TrimSpace(req.Subject)
	req.Message = strings.TrimSpace(req.Message)

	for field, value := range map[string]string{
		"name":    req.Name,
		"email":   req.Email,
		"subject": req.Subject,
		"message": req.Message,
	} {
		if value == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required field: " + field})
			return
		}
	}

	if !emailPattern.MatchString(req.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email address"})
		return
	}

	if req.RecaptchaToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing captcha token"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	ok, err := h.Captcha.Verify(ctx, req.RecaptchaToken, c.ClientIP())
	if err != nil {
		log.Printf("Error verifying captcha token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify captcha"})
		return
	}
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Captcha verification failed"})
		return
	}

	if err := h.Mailer.Send(ctx, req); err != nil {
		log.Printf("Error sending contact email from %s: %v", req.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
