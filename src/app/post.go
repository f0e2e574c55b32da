package app

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MinImagesPerPost = 1
	MaxImagesPerPost = 4
	MinRating        = 1
	MaxRating        = 5
	DefaultRating    = 5

	maxPlaceNameLength = 120
	maxCaptionLength   = 2000
)

// Categories are the explore tabs a post can be filed under.
var Categories = []string{"Cafe", "Restaurant", "Bar", "Exhibition", "Weekend trip", "Bakery", "Museum", "Brunch"}

type (
	// Post is a photo review of a place.
	Post struct {
		ID        string    `json:"id"`
		AuthorID  string    `json:"author_id"`
		PlaceName string    `json:"place_name"`
		PlaceID   string    `json:"place_id,omitempty"`
		Category  string    `json:"category"`
		Caption   string    `json:"caption"`
		Rating    int       `json:"rating"`
		Hashtags  []string  `json:"hashtags"`
		ImageURL  string    `json:"image_url"`
		ImageURLs []string  `json:"image_urls"`
		Lat       *float64  `json:"lat,omitempty"`
		Lng       *float64  `json:"lng,omitempty"`
		CreatedAt time.Time `json:"created_at"`
	}

	// NewPostInput is the validated form of a create-post request, before
	// the photos are stored.
	NewPostInput struct {
		PlaceName  string
		PlaceID    string
		Category   string
		Caption    string
		Rating     int
		Hashtags   []string
		Lat        *float64
		Lng        *float64
		ImageCount int
	}

	ValidationError struct {
		Field   string
		Message string
	}
)

func (e *ValidationError) Error() string {
	return e.Message
}

// IsCategory reports whether c is one of the known categories.
func IsCategory(c string) bool {
	return checkIn(c, Categories)
}

func (in NewPostInput) Validate() error {
	name := strings.TrimSpace(in.PlaceName)
	if name == "" {
		return &ValidationError{Field: "place_name", Message: "Please enter a place name."}
	}
	if utf8.RuneCountInString(name) > maxPlaceNameLength {
		return &ValidationError{Field: "place_name", Message: "Place name is too long."}
	}
	if utf8.RuneCountInString(in.Caption) > maxCaptionLength {
		return &ValidationError{Field: "caption", Message: "Caption is too long."}
	}
	if !IsCategory(in.Category) {
		return &ValidationError{Field: "category", Message: "Please choose a valid category."}
	}
	if in.Rating < MinRating || in.Rating > MaxRating {
		return &ValidationError{Field: "rating", Message: "Rating must be between 1 and 5."}
	}
	if in.ImageCount < MinImagesPerPost {
		return &ValidationError{Field: "images", Message: "Please upload at least 1 photo."}
	}
	if in.ImageCount > MaxImagesPerPost {
		return &ValidationError{Field: "images", Message: "At most 4 photos per post."}
	}
	if (in.Lat == nil) != (in.Lng == nil) {
		return &ValidationError{Field: "lat", Message: "lat and lng must be provided together."}
	}
	if in.Lat != nil && (*in.Lat < -90 || *in.Lat > 90 || *in.Lng < -180 || *in.Lng > 180) {
		return &ValidationError{Field: "lat", Message: "lat and lng are out of range."}
	}
	return nil
}

// Build assembles the post once the photos have public URLs.
func (in NewPostInput) Build(id, authorID string, imageURLs []string, now time.Time) Post {
	post := Post{
		ID:        id,
		AuthorID:  authorID,
		PlaceName: strings.TrimSpace(in.PlaceName),
		PlaceID:   strings.TrimSpace(in.PlaceID),
		Category:  in.Category,
		Caption:   ComposeCaption(in.PlaceName, in.Caption),
		Rating:    in.Rating,
		Hashtags:  in.Hashtags,
		ImageURLs: imageURLs,
		Lat:       in.Lat,
		Lng:       in.Lng,
		CreatedAt: now.UTC(),
	}
	if post.Hashtags == nil {
		post.Hashtags = []string{}
	}
	if len(imageURLs) > 0 {
		post.ImageURL = imageURLs[0]
	}
	return post
}

// ComposeCaption prefixes the caption with the place name.
func ComposeCaption(placeName, caption string) string {
	placeName = strings.TrimSpace(placeName)
	caption = strings.TrimSpace(caption)
	if caption == "" {
		return placeName
	}
	return placeName + " — " + caption
}

// ParseHashtags turns "#cozy #StudySpot matcha" into ["cozy" "studyspot" "matcha"].
func ParseHashtags(text string) []string {
	seen := make(map[string]struct{})
	tags := make([]string, 0)
	for _, field := range strings.Fields(text) {
		tag := strings.ToLower(strings.TrimPrefix(field, "#"))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// HasCoordinates reports whether the post can appear in nearby results.
func (p Post) HasCoordinates() bool {
	return p.Lat != nil && p.Lng != nil
}
