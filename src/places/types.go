package places

import (
	"encoding/json"
	"fmt"
)

const (
	StatusOK          = "OK"
	StatusZeroResults = "ZERO_RESULTS"
)

type (
	LatLng struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}

	Geometry struct {
		Location LatLng `json:"location"`
	}

	OpeningHours struct {
		OpenNow bool `json:"open_now"`
	}

	// PlaceResult is the typed view of a Nearby Search result. A value decoded
	// from upstream JSON re-encodes to the original bytes, so fields this
	// struct does not name (photos, icon, plus_code) survive the relay.
	PlaceResult struct {
		PlaceID          string        `json:"place_id"`
		Name             string        `json:"name,omitempty"`
		Vicinity         string        `json:"vicinity,omitempty"`
		FormattedAddress string        `json:"formatted_address,omitempty"`
		Rating           *float64      `json:"rating,omitempty"`
		UserRatingsTotal *int          `json:"user_ratings_total,omitempty"`
		Types            []string      `json:"types,omitempty"`
		Geometry         *Geometry     `json:"geometry,omitempty"`
		BusinessStatus   string        `json:"business_status,omitempty"`
		PriceLevel       *int          `json:"price_level,omitempty"`
		OpeningHours     *OpeningHours `json:"opening_hours,omitempty"`

		raw json.RawMessage
	}

	// NearbyResponse is the upstream envelope relayed to the browser.
	NearbyResponse struct {
		Results       []PlaceResult `json:"results"`
		Status        string        `json:"status"`
		ErrorMessage  string        `json:"error_message,omitempty"`
		NextPageToken string        `json:"next_page_token,omitempty"`

		// extra holds top-level upstream fields such as html_attributions.
		extra map[string]json.RawMessage
	}

	// PlaceLite is the camelCase shape the map view renders.
	PlaceLite struct {
		PlaceID          string   `json:"placeId"`
		Name             string   `json:"name"`
		Lat              float64  `json:"lat"`
		Lng              float64  `json:"lng"`
		Rating           *float64 `json:"rating,omitempty"`
		UserRatingsTotal *int     `json:"userRatingsTotal,omitempty"`
		Address          string   `json:"address,omitempty"`
		Types            []string `json:"types,omitempty"`
	}

	// UpstreamError is a failed exchange with the Places API, either at the
	// HTTP level or through a non-OK "status" in the body.
	UpstreamError struct {
		HTTPStatus int
		Status     string
		Message    string
	}
)

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("places upstream %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("places upstream %s (http %d)", e.Status, e.HTTPStatus)
}

func (p *PlaceResult) UnmarshalJSON(data []byte) error {
	type plain PlaceResult
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = PlaceResult(v)
	p.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (p PlaceResult) MarshalJSON() ([]byte, error) {
	if len(p.raw) > 0 {
		return p.raw, nil
	}
	type plain PlaceResult
	return json.Marshal(plain(p))
}

var envelopeFields = []string{"results", "status", "error_message", "next_page_token"}

func (r *NearbyResponse) UnmarshalJSON(data []byte) error {
	type plain NearbyResponse
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for _, name := range envelopeFields {
		delete(fields, name)
	}
	*r = NearbyResponse(v)
	if len(fields) > 0 {
		r.extra = fields
	}
	return nil
}

// MarshalJSON writes the typed envelope merged over the upstream fields it
// does not name. Results keep whatever filtering was applied to r.Results.
func (r NearbyResponse) MarshalJSON() ([]byte, error) {
	type plain NearbyResponse
	out, err := json.Marshal(plain(r))
	if err != nil || len(r.extra) == 0 {
		return out, err
	}
	var own map[string]json.RawMessage
	if err := json.Unmarshal(out, &own); err != nil {
		return nil, err
	}
	merged := make(map[string]json.RawMessage, len(r.extra)+len(own))
	for k, v := range r.extra {
		merged[k] = v
	}
	for k, v := range own {
		merged[k] = v
	}
	return json.Marshal(merged)
}

func (p PlaceResult) rating() float64 {
	if p.Rating == nil {
		return 0
	}
	return *p.Rating
}

// ToLite reshapes upstream results, dropping entries that cannot be placed
// on a map.
func ToLite(results []PlaceResult) []PlaceLite {
	lite := make([]PlaceLite, 0, len(results))
	for _, p := range results {
		if p.PlaceID == "" || p.Geometry == nil {
			continue
		}
		loc := p.Geometry.Location
		if loc.Lat == 0 || loc.Lng == 0 {
			continue
		}
		name := p.Name
		if name == "" {
			name = "Unknown"
		}
		address := p.Vicinity
		if address == "" {
			address = p.FormattedAddress
		}
		lite = append(lite, PlaceLite{
			PlaceID:          p.PlaceID,
			Name:             name,
			Lat:              loc.Lat,
			Lng:              loc.Lng,
			Rating:           p.Rating,
			UserRatingsTotal: p.UserRatingsTotal,
			Address:          address,
			Types:            p.Types,
		})
	}
	return lite
}

// FilterMinRating keeps results rated at least min; unrated places count as 0.
func FilterMinRating(results []PlaceResult, min float64) []PlaceResult {
	if min <= 0 {
		return results
	}
	kept := make([]PlaceResult, 0, len(results))
	for _, p := range results {
		if p.rating() >= min {
			kept = append(kept, p)
		}
	}
	return kept
}
