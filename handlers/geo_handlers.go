package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"devfolio/api/geo"
)

type GeoHandlers struct {
	Geo geo.Resolver
}

func NewGeoHandlers(resolver geo.Resolver) *GeoHandlers {
	return &GeoHandlers{Geo: resolver}
}

// GetGeolocation echoes the caller's approximate location. Failed or local
// lookups come back as "Unknown" rather than an error.
func (h *GeoHandlers) GetGeolocation(c *gin.Context) {
	ip := c.ClientIP()
	location := h.Geo.Resolve(ip)

	country := location.Country
	if country == "" {
		country = "Unknown"
	}
	city := location.City
	if city == "" {
		city = "Unknown"
	}

	c.JSON(http.StatusOK, gin.H{
		"country": country,
		"city":    city,
		"ip":      ip,
	})
}
