package server

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	app "spotserv/src/app"
	"spotserv/src/places"
	db "spotserv/src/repository"

	"github.com/gin-gonic/gin"
)

type NearbyPost struct {
	app.Post
	DistanceMeters float64 `json:"distance_m"`
}

// postFilterFromQuery reads category, author, hashtag, before and limit.
func postFilterFromQuery(c *gin.Context) (db.PostFilter, error) {
	filter := db.PostFilter{
		Category: c.Query("category"),
		Hashtag:  strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Query("hashtag")), "#")),
	}
	if filter.Category != "" && !app.IsCategory(filter.Category) {
		return filter, &app.ValidationError{Field: "category", Message: "Please choose a valid category."}
	}
	if author := c.Query("author"); author != "" {
		filter.AuthorIDs = []string{author}
	}
	if raw := c.Query("before"); raw != "" {
		before, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, &app.ValidationError{Field: "before", Message: "before must be an RFC 3339 timestamp."}
		}
		filter.Before = before
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return filter, &app.ValidationError{Field: "limit", Message: "limit must be a positive integer."}
		}
		filter.Limit = limit
	}
	return filter, nil
}

func (a *AppHandler) ListPosts(c *gin.Context) {
	filter, err := postFilterFromQuery(c)
	if err != nil {
		a.respondError(c, err)
		return
	}
	a.listPosts(c, filter)
}

func (a *AppHandler) listPosts(c *gin.Context, filter db.PostFilter) {
	posts, err := a.posts.List(c.Request.Context(), filter)
	if err != nil {
		a.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, posts)
}

func (a *AppHandler) GetPost(c *gin.Context) {
	post, err := a.posts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, post)
}

func (a *AppHandler) GetProfilePosts(c *gin.Context) {
	filter, err := postFilterFromQuery(c)
	if err != nil {
		a.respondError(c, err)
		return
	}
	filter.AuthorIDs = []string{c.Param("id")}
	a.listPosts(c, filter)
}

// NearbyPosts returns geotagged posts within radius meters, nearest first.
func (a *AppHandler) NearbyPosts(c *gin.Context) {
	query := c.Request.URL.Query()
	lat, lng, err := places.ParseCenter(query)
	if err != nil {
		a.respondError(c, err)
		return
	}
	radius, err := places.ParseRadius(query)
	if err != nil {
		a.respondError(c, err)
		return
	}
	filter, err := postFilterFromQuery(c)
	if err != nil {
		a.respondError(c, err)
		return
	}

	minLat, maxLat, minLng, maxLng := app.BoundingBox(lat, lng, float64(radius))
	// boxes crossing a pole or the antimeridian fall back to every longitude
	if minLat < -90 || maxLat > 90 || minLng < -180 || maxLng > 180 {
		minLng, maxLng = -180, 180
	}
	candidates, err := a.posts.Within(c.Request.Context(), minLat, maxLat, minLng, maxLng)
	if err != nil {
		a.respondError(c, err)
		return
	}

	result := make([]NearbyPost, 0, len(candidates))
	for _, post := range candidates {
		if !filter.Matches(post) {
			continue
		}
		distance := app.DistanceMeters(lat, lng, *post.Lat, *post.Lng)
		if distance > float64(radius) {
			continue
		}
		result = append(result, NearbyPost{Post: post, DistanceMeters: distance})
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].DistanceMeters == result[j].DistanceMeters {
			return result[i].ID < result[j].ID
		}
		return result[i].DistanceMeters < result[j].DistanceMeters
	})
	if limit := filter.NormalizedLimit(); len(result) > limit {
		result = result[:limit]
	}
	respondOK(c, http.StatusOK, result)
}
