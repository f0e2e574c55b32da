package places

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNearbyQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    NearbyArgs
		wantErr string
	}{
		{
			name:  "defaults",
			query: "lat=51.5074&lng=-0.1278",
			want:  NearbyArgs{Lat: 51.5074, Lng: -0.1278, Radius: DefaultRadius, Type: DefaultType},
		},
		{
			name:  "all filters",
			query: "lat=1.5&lng=2&radius=500&type=CAFE&keyword=%23brunch&minRating=4.2&openNow=true",
			want:  NearbyArgs{Lat: 1.5, Lng: 2, Radius: 500, Type: "cafe", Keyword: "brunch", MinRating: 4.2, OpenNow: true},
		},
		{name: "missing lat", query: "lng=2", wantErr: "lat and lng are required numbers"},
		{name: "garbage lng", query: "lat=1&lng=east", wantErr: "lat and lng are required numbers"},
		{name: "nan", query: "lat=NaN&lng=2", wantErr: "lat and lng are required numbers"},
		{name: "out of range", query: "lat=91&lng=2", wantErr: "lat must be within"},
		{name: "radius too small", query: "lat=1&lng=2&radius=99", wantErr: "radius must be"},
		{name: "radius too large", query: "lat=1&lng=2&radius=50001", wantErr: "radius must be"},
		{name: "radius not int", query: "lat=1&lng=2&radius=1.5", wantErr: "radius must be"},
		{name: "unknown type", query: "lat=1&lng=2&type=casino", wantErr: `type "casino" is not supported`},
		{name: "rating too high", query: "lat=1&lng=2&minRating=6", wantErr: "minRating"},
		{
			name:  "multibyte keyword",
			query: "lat=1&lng=2&keyword=" + url.QueryEscape(strings.Repeat("é", 60)),
			want:  NearbyArgs{Lat: 1, Lng: 2, Radius: DefaultRadius, Type: DefaultType, Keyword: strings.Repeat("é", 60)},
		},
		{name: "keyword too long", query: "lat=1&lng=2&keyword=" + strings.Repeat("ç", 101), wantErr: "keyword is too long"},
		{name: "bad openNow", query: "lat=1&lng=2&openNow=maybe", wantErr: "openNow"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			got, err := ParseNearbyQuery(values)
			if tt.wantErr != "" {
				var vErr *ValidationError
				require.True(t, errors.As(err, &vErr), "expected ValidationError, got %v", err)
				assert.Contains(t, vErr.Message, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRadiusBoundsInclusive(t *testing.T) {
	for _, radius := range []string{"100", "50000"} {
		_, err := ParseRadius(url.Values{"radius": {radius}})
		assert.NoError(t, err, radius)
	}
}

func TestBuildNearbySearchURL(t *testing.T) {
	raw, err := BuildNearbySearchURL(
		"https://maps.googleapis.com/maps/api/place/nearbysearch/json",
		"secret",
		NearbyArgs{Lat: 51.5074, Lng: -0.1278, Radius: 2000, Type: "cafe"},
	)
	require.NoError(t, err)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "maps.googleapis.com", parsed.Host)
	assert.Equal(t, "/maps/api/place/nearbysearch/json", parsed.Path)

	q := parsed.Query()
	assert.Equal(t, "51.5074,-0.1278", q.Get("location"))
	assert.Equal(t, "2000", q.Get("radius"))
	assert.Equal(t, "cafe", q.Get("type"))
	assert.Equal(t, "secret", q.Get("key"))
	assert.False(t, q.Has("keyword"))
	assert.False(t, q.Has("opennow"))
}

func TestBuildNearbySearchURLOptionalParams(t *testing.T) {
	raw, err := BuildNearbySearchURL("https://example.test/json", "k",
		NearbyArgs{Lat: 1, Lng: 2, Radius: 100, Type: "bar", Keyword: "rooftop", OpenNow: true})
	require.NoError(t, err)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "rooftop", parsed.Query().Get("keyword"))
	assert.Equal(t, "true", parsed.Query().Get("opennow"))
}

func TestBuildNearbySearchURLMissingKey(t *testing.T) {
	_, err := BuildNearbySearchURL("https://example.test/json", "", NearbyArgs{Lat: 1, Lng: 2, Radius: 100, Type: "bar"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Equal(t, "Missing GOOGLE_PLACES_API_KEY", err.Error())
}

func TestAllowedTypesSorted(t *testing.T) {
	types := AllowedTypes()
	assert.Contains(t, types, "cafe")
	assert.IsIncreasing(t, types)
}
