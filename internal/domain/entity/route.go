package entity

import (
	"math"
	"sort"
	"time"
)

// UnselectedLocation is stored for legs whose location was left blank
const UnselectedLocation = "unselected"

// EpochSentinel is stored for legs whose dates were left blank
var EpochSentinel = time.Unix(0, 0).UTC()

// Route represents one origin to destination leg of a trip
type Route struct {
	ID                   int64     `json:"id"`
	Sequence             int       `json:"sequence"`
	OriginCountryID      int64     `json:"origin_country_id"`
	OriginCityID         int64     `json:"origin_city_id"`
	DestinationCountryID int64     `json:"destination_country_id"`
	DestinationCityID    int64     `json:"destination_city_id"`
	StartsAt             time.Time `json:"starts_at"`
	EndsAt               time.Time `json:"ends_at"`
	NeedsFlight          bool      `json:"needs_flight"`
	NeedsHotel           bool      `json:"needs_hotel"`

	// Names are filled on read
	OriginCountry      string `json:"origin_country,omitempty"`
	OriginCity         string `json:"origin_city,omitempty"`
	DestinationCountry string `json:"destination_country,omitempty"`
	DestinationCity    string `json:"destination_city,omitempty"`
}

// NeedsBooking reports whether the leg requires the travel agency
func (r *Route) NeedsBooking() bool {
	return r.NeedsFlight || r.NeedsHotel
}

// AnyNeedsBooking reports whether any leg requires the travel agency
func AnyNeedsBooking(routes []*Route) bool {
	for _, r := range routes {
		if r.NeedsBooking() {
			return true
		}
	}
	return false
}

// TripDays returns the whole days, rounded up, between the start of the
// lowest-sequence leg and the end of the highest-sequence leg. No legs, or a
// span that ends before it starts, yields 0.
func TripDays(routes []*Route) int {
	if len(routes) == 0 {
		return 0
	}

	ordered := make([]*Route, len(routes))
	copy(ordered, routes)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Sequence < ordered[j].Sequence
	})

	span := ordered[len(ordered)-1].EndsAt.Sub(ordered[0].StartsAt)
	if span <= 0 {
		return 0
	}

	return int(math.Ceil(span.Hours() / 24))
}
