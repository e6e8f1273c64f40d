package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"time"
)

// GenerateSessionToken creates an opaque per-browser session token. If the
// system randomness source fails, a time-derived fallback token is returned
// so tracking degrades to fragmented sessions instead of failing.
func GenerateSessionToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		log.Printf("ERROR: Failed to generate random bytes for session token: %v", err)
		return fmt.Sprintf("fallback_%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(b)
}
