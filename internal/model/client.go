package model

// Client is a customer that owns water-treatment equipment.
type Client struct {
	Base
	Name      string   `json:"name" db:"name"`
	TaxID     *string  `json:"tax_id,omitempty" db:"tax_id"`
	Email     string   `json:"email" db:"email"`
	Phone     string   `json:"phone" db:"phone"`
	Address   string   `json:"address" db:"address"`
	City      string   `json:"city" db:"city"`
	Latitude  *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude *float64 `json:"longitude,omitempty" db:"longitude"`
	Notes     string   `json:"notes" db:"notes"`
}

// Location returns the client coordinates, if geocoded.
func (c Client) Location() (Coordinates, bool) {
	if c.Latitude == nil || c.Longitude == nil {
		return Coordinates{}, false
	}
	return Coordinates{Lat: *c.Latitude, Lng: *c.Longitude}, true
}

// FullAddress is the string sent to the geocoder.
func (c Client) FullAddress() string {
	return joinAddress(c.Address, c.City)
}
