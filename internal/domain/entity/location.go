package entity

// LocationKind selects the reference table a location name belongs to
type LocationKind string

const (
	LocationCountry LocationKind = "country"
	LocationCity    LocationKind = "city"
)

// IsValid returns true for country and city
func (k LocationKind) IsValid() bool {
	return k == LocationCountry || k == LocationCity
}

// Location is a country or city reference row
type Location struct {
	ID   int64        `json:"id"`
	Kind LocationKind `json:"kind"`
	Name string       `json:"name"`
}
