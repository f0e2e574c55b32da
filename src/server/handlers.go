package server

import (
	"net/http"

	app "spotserv/src/app"
	"spotserv/src/places"

	"github.com/gin-gonic/gin"
)

// London until the browser reports a position.
const (
	defaultCenterLat = 51.5074
	defaultCenterLng = -0.1278
)

type (
	ClientConfig struct {
		MapsAPIKey    string        `json:"maps_api_key"`
		DefaultCenter places.LatLng `json:"default_center"`
		DefaultRadius int           `json:"default_radius"`
		DefaultType   string        `json:"default_type"`
		MinRadius     int           `json:"min_radius"`
		MaxRadius     int           `json:"max_radius"`
		PlaceTypes    []string      `json:"place_types"`
		Categories    []string      `json:"categories"`
		MaxImages     int           `json:"max_images"`
	}
)

// GetConfig hands the browser what it needs to draw the map. The places key
// is never part of it.
func (a *AppHandler) GetConfig(c *gin.Context) {
	respondOK(c, http.StatusOK, ClientConfig{
		MapsAPIKey:    a.config.Google.MapsAPIKey,
		DefaultCenter: places.LatLng{Lat: defaultCenterLat, Lng: defaultCenterLng},
		DefaultRadius: places.DefaultRadius,
		DefaultType:   places.DefaultType,
		MinRadius:     places.MinRadius,
		MaxRadius:     places.MaxRadius,
		PlaceTypes:    places.AllowedTypes(),
		Categories:    app.Categories,
		MaxImages:     app.MaxImagesPerPost,
	})
}

func (a *AppHandler) GetCategories(c *gin.Context) {
	respondOK(c, http.StatusOK, app.Categories)
}
