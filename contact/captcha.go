package contact

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const defaultVerifyEndpoint = "https://www.google.com/recaptcha/api/siteverify"

// RecaptchaVerifier checks submission tokens against the reCAPTCHA
// siteverify endpoint. With no secret configured (local development) every
// token is accepted.
type RecaptchaVerifier struct {
	secret   string
	endpoint string
	client   *http.Client
}

func NewRecaptchaVerifierFromEnv() *RecaptchaVerifier {
	endpoint := os.Getenv("RECAPTCHA_VERIFY_URL")
	if endpoint == "" {
		endpoint = defaultVerifyEndpoint
	}
	secret := os.Getenv("RECAPTCHA_SECRET_KEY")
	if secret == "" {
		log.Println("RECAPTCHA_SECRET_KEY not set; captcha verification is disabled")
	}
	return &RecaptchaVerifier{
		secret:   secret,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *RecaptchaVerifier) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	if v.secret == "" {
		return true, nil
	}

	form := url.Values{
		"secret":   {v.secret},
		"response": {token},
		"remoteip": {remoteIP},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("building captcha verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("captcha verification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("captcha verification returned status %d", resp.StatusCode)
	}

	var result struct {
		Success    bool     `json:"success"`
		ErrorCodes []string `json:"error-codes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("decoding captcha verification response: %w", err)
	}

	if !result.Success && len(result.ErrorCodes) > 0 {
		log.Printf("Captcha verification rejected token: %v", result.ErrorCodes)
	}
	return result.Success, nil
}
