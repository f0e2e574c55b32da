package places

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	MinRadius     = 100
	MaxRadius     = 50000
	DefaultRadius = 2000
	DefaultType   = "restaurant"

	maxKeywordLength = 100
)

// ErrMissingAPIKey is returned when the server-side Places key is not configured.
var ErrMissingAPIKey = errors.New("Missing GOOGLE_PLACES_API_KEY")

var allowedTypes = map[string]struct{}{
	"art_gallery":        {},
	"bakery":             {},
	"bar":                {},
	"book_store":         {},
	"cafe":               {},
	"library":            {},
	"lodging":            {},
	"meal_takeaway":      {},
	"museum":             {},
	"night_club":         {},
	"park":               {},
	"restaurant":         {},
	"shopping_mall":      {},
	"tourist_attraction": {},
}

type (
	// NearbyArgs is a validated Nearby Search request.
	NearbyArgs struct {
		Lat       float64
		Lng       float64
		Radius    int
		Type      string
		Keyword   string
		MinRating float64
		OpenNow   bool
	}

	// ValidationError reports a rejected query parameter.
	ValidationError struct {
		Field   string
		Message string
	}
)

func (e *ValidationError) Error() string {
	return e.Message
}

// AllowedTypes returns the accepted place types in sorted order.
func AllowedTypes() []string {
	types := make([]string, 0, len(allowedTypes))
	for t := range allowedTypes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// IsAllowedType reports whether t may be forwarded upstream.
func IsAllowedType(t string) bool {
	_, ok := allowedTypes[t]
	return ok
}

// ParseCenter reads the lat/lng pair shared by every geo endpoint.
func ParseCenter(values url.Values) (float64, float64, error) {
	lat, latErr := parseFinite(values.Get("lat"))
	lng, lngErr := parseFinite(values.Get("lng"))
	if latErr != nil || lngErr != nil {
		return 0, 0, &ValidationError{Field: "lat", Message: "lat and lng are required numbers"}
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, &ValidationError{Field: "lat", Message: "lat must be within [-90, 90] and lng within [-180, 180]"}
	}
	return lat, lng, nil
}

// ParseRadius reads radius in meters, defaulting when absent.
func ParseRadius(values url.Values) (int, error) {
	raw := strings.TrimSpace(values.Get("radius"))
	if raw == "" {
		return DefaultRadius, nil
	}
	radius, err := strconv.Atoi(raw)
	if err != nil || radius < MinRadius || radius > MaxRadius {
		return 0, &ValidationError{
			Field:   "radius",
			Message: fmt.Sprintf("radius must be an integer between %d and %d meters", MinRadius, MaxRadius),
		}
	}
	return radius, nil
}

// ParseNearbyQuery validates the query string of GET /api/places.
func ParseNearbyQuery(values url.Values) (NearbyArgs, error) {
	lat, lng, err := ParseCenter(values)
	if err != nil {
		return NearbyArgs{}, err
	}
	radius, err := ParseRadius(values)
	if err != nil {
		return NearbyArgs{}, err
	}

	placeType := strings.ToLower(strings.TrimSpace(values.Get("type")))
	if placeType == "" {
		placeType = DefaultType
	}
	if !IsAllowedType(placeType) {
		return NearbyArgs{}, &ValidationError{
			Field:   "type",
			Message: fmt.Sprintf("type %q is not supported", placeType),
		}
	}

	keyword := strings.TrimPrefix(strings.TrimSpace(values.Get("keyword")), "#")
	if utf8.RuneCountInString(keyword) > maxKeywordLength {
		return NearbyArgs{}, &ValidationError{Field: "keyword", Message: "keyword is too long"}
	}

	var minRating float64
	if raw := strings.TrimSpace(values.Get("minRating")); raw != "" {
		minRating, err = parseFinite(raw)
		if err != nil || minRating < 0 || minRating > 5 {
			return NearbyArgs{}, &ValidationError{Field: "minRating", Message: "minRating must be between 0 and 5"}
		}
	}

	var openNow bool
	if raw := strings.TrimSpace(values.Get("openNow")); raw != "" {
		openNow, err = strconv.ParseBool(raw)
		if err != nil {
			return NearbyArgs{}, &ValidationError{Field: "openNow", Message: "openNow must be a boolean"}
		}
	}

	return NearbyArgs{
		Lat:       lat,
		Lng:       lng,
		Radius:    radius,
		Type:      placeType,
		Keyword:   keyword,
		MinRating: minRating,
		OpenNow:   openNow,
	}, nil
}

// BuildNearbySearchURL renders the upstream request URL for args.
func BuildNearbySearchURL(base, key string, args NearbyArgs) (string, error) {
	if key == "" {
		return "", ErrMissingAPIKey
	}
	endpoint, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid places url %q: %w", base, err)
	}
	endpoint.RawQuery = searchParams(args, key).Encode()
	return endpoint.String(), nil
}

func searchParams(args NearbyArgs, key string) url.Values {
	sp := url.Values{}
	sp.Set("location", formatCoordinate(args.Lat)+","+formatCoordinate(args.Lng))
	sp.Set("radius", strconv.Itoa(args.Radius))
	sp.Set("type", args.Type)
	if args.Keyword != "" {
		sp.Set("keyword", args.Keyword)
	}
	if args.OpenNow {
		sp.Set("opennow", "true")
	}
	if key != "" {
		sp.Set("key", key)
	}
	return sp
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFinite(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %q", raw)
	}
	return v, nil
}
