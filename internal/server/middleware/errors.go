package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/parley-llm/parley/pkg/api"
)

// RenderError maps a canonical error to the downstream status the proxy
// answers with. Upstream auth and rate-limit conditions pass through;
// provider and decode faults become bad-gateway; our own network faults
// become gateway-timeout.
func RenderError(c *gin.Context, err error) {
	var canonical *api.Error
	if !errors.As(err, &canonical) {
		var encodeErr *api.EncodeError
		if errors.As(err, &encodeErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": encodeErr.Error()}})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": err.Error()}})
		return
	}

	status := http.StatusInternalServerError
	switch canonical.Kind {
	case api.KindBadRequest:
		status = http.StatusBadRequest
	case api.KindAuth:
		status = http.StatusUnauthorized
	case api.KindRateLimited:
		status = http.StatusTooManyRequests
		if canonical.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(int(canonical.RetryAfter.Seconds())))
		}
	case api.KindProviderFault, api.KindDecodeFault:
		status = http.StatusBadGateway
	case api.KindNetworkFault:
		status = http.StatusGatewayTimeout
	}

	c.JSON(status, gin.H{"error": gin.H{
		"message":  canonical.Message,
		"kind":     string(canonical.Kind),
		"provider": canonical.Provider,
	}})
}
