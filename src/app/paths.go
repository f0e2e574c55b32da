package app

import (
	"fmt"
	"math"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultImageExt = "jpg"
	earthRadiusM    = 6371000.0
)

// ImageObjectPath names a new post photo: posts/<uuid>.<ext>.
func ImageObjectPath(filename string) string {
	return fmt.Sprintf("posts/%s.%s", uuid.NewString(), fileExt(filename))
}

// AvatarObjectPath names an avatar: <user>/<user>-<unix ms>.<ext>.
func AvatarObjectPath(userID, filename string, now time.Time) string {
	return fmt.Sprintf("%s/%s-%d.%s", userID, userID, now.UnixMilli(), fileExt(filename))
}

func fileExt(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if ext == "" || strings.ContainsAny(ext, "/\\ ") {
		return defaultImageExt
	}
	return ext
}

// DistanceMeters is the great-circle distance between two coordinates.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusM * math.Asin(math.Min(1, math.Sqrt(a)))
}

// BoundingBox returns the lat/lng rectangle enclosing a circle, used to
// narrow candidate rows before the exact distance check.
func BoundingBox(lat, lng float64, radiusM float64) (minLat, maxLat, minLng, maxLng float64) {
	dLat := radiusM / earthRadiusM * 180 / math.Pi
	cos := math.Cos(lat * math.Pi / 180)
	dLng := 180.0
	if cos > 1e-9 {
		dLng = math.Min(180, dLat/cos)
	}
	return lat - dLat, lat + dLat, lng - dLng, lng + dLng
}

func checkIn(value string, list []string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
