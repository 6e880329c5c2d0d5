package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	flashCookie = "flash"
	flashTTL    = 5 * time.Minute

	FlashSuccess = "success"
	FlashDanger  = "danger"
)

// Flash is a transient notification shown once on the next rendered page.
type Flash struct {
	Category string
	Message  string
}

// SetFlash stores a signed flash cookie on the response.
func SetFlash(c *gin.Context, secret, category, message string) {
	token, err := SignFlash(secret, category, message, flashTTL)
	if err != nil {
		Sugar.Errorf("sign flash failed: %v", err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, token, int(flashTTL.Seconds()), "/", "", false, true)
}

// PopFlash returns the pending flash, if any, and clears the cookie.
// Tampered or expired cookies are dropped silently.
func PopFlash(c *gin.Context, secret string) *Flash {
	raw, err := c.Cookie(flashCookie)
	if err != nil || raw == "" {
		return nil
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, "", -1, "/", "", false, true)

	claims, err := ParseFlash(secret, raw)
	if err != nil {
		Sugar.Debugf("discarding flash cookie: %v", err)
		return nil
	}
	return &Flash{Category: claims.Category, Message: claims.Message}
}
