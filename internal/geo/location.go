package geo

import "math"

// Location is the coarse, city-level position of a client. All fields are
// optional: a lookup that fails or is skipped yields a nil *Location, and a
// partial answer may carry names without coordinates.
type Location struct {
	Country   string   `json:"country,omitempty"`
	Region    string   `json:"region,omitempty"`
	City      string   `json:"city,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// HasCoordinates reports whether the location carries a usable lat/long pair.
func (l *Location) HasCoordinates() bool {
	return l != nil && l.Latitude != nil && l.Longitude != nil
}

// Mean Earth radius in kilometers.
const earthRadiusKm = 6371.0

// DistanceKm computes the great-circle distance between two locations using
// the haversine formula, rounded to the nearest whole kilometer. It returns
// nil if either side lacks coordinates.
func DistanceKm(a, b *Location) *int {
	if !a.HasCoordinates() || !b.HasCoordinates() {
		return nil
	}

	lat1 := *a.Latitude * math.Pi / 180
	lat2 := *b.Latitude * math.Pi / 180
	dLat := (*b.Latitude - *a.Latitude) * math.Pi / 180
	dLon := (*b.Longitude - *a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	d := 2 * earthRadiusKm * math.Asin(math.Sqrt(h))

	km := int(math.Round(d))
	return &km
}
