package server

import (
	"context"
	"errors"
	"net/http"

	"spotserv/src/places"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	statusInvalidRequest = "INVALID_REQUEST"
	statusConfigError    = "CONFIG_ERROR"
	statusTimeout        = "TIMEOUT"
	statusUnknownError   = "UNKNOWN_ERROR"

	formatLite = "lite"
)

type LiteResponse struct {
	Status        string             `json:"status"`
	Results       []places.PlaceLite `json:"results"`
	NextPageToken string             `json:"next_page_token,omitempty"`
}

// GetPlaces proxies a Nearby Search. Errors use the {"error","status"}
// shape the map page reads.
func (a *AppHandler) GetPlaces(c *gin.Context) {
	args, err := places.ParseNearbyQuery(c.Request.URL.Query())
	if err != nil {
		placesError(c, http.StatusBadRequest, err.Error(), statusInvalidRequest)
		return
	}
	if a.places == nil {
		placesError(c, http.StatusInternalServerError, places.ErrMissingAPIKey.Error(), statusConfigError)
		return
	}

	resp, err := a.places.Nearby(c.Request.Context(), args)
	if err != nil {
		a.placesFailure(c, err)
		return
	}

	if c.Query("format") == formatLite {
		c.JSON(http.StatusOK, LiteResponse{
			Status:        resp.Status,
			Results:       places.ToLite(resp.Results),
			NextPageToken: resp.NextPageToken,
		})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a *AppHandler) placesFailure(c *gin.Context, err error) {
	var upstream *places.UpstreamError
	switch {
	case errors.Is(err, places.ErrMissingAPIKey):
		a.logger.Error("places key is not configured")
		placesError(c, http.StatusInternalServerError, err.Error(), statusConfigError)
	case errors.As(err, &upstream):
		message := upstream.Message
		if message == "" {
			message = "Places request failed: " + upstream.Status
		}
		placesError(c, http.StatusBadGateway, message, upstream.Status)
	case errors.Is(err, context.DeadlineExceeded):
		placesError(c, http.StatusGatewayTimeout, "Places request timed out", statusTimeout)
	default:
		a.logger.Error("places request failed", zap.Error(err))
		placesError(c, http.StatusBadGateway, "Places request failed", statusUnknownError)
	}
}

func placesError(c *gin.Context, code int, message, status string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message, "status": status})
}
