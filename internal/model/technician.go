package model

import "strings"

// Technician is a field worker that visits clients.
type Technician struct {
	Base
	Name      string   `json:"name" db:"name"`
	Email     string   `json:"email" db:"email"`
	Phone     string   `json:"phone" db:"phone"`
	Address   string   `json:"address" db:"address"`
	Latitude  *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude *float64 `json:"longitude,omitempty" db:"longitude"`
	Skills    []string `json:"skills" db:"skills"`
	Active    bool     `json:"active" db:"active"`
}

// Location returns the technician base coordinates, if geocoded.
func (t Technician) Location() (Coordinates, bool) {
	if t.Latitude == nil || t.Longitude == nil {
		return Coordinates{}, false
	}
	return Coordinates{Lat: *t.Latitude, Lng: *t.Longitude}, true
}

// NormalizeSkills trims, lowercases and de-duplicates skill labels,
// keeping first-seen order.
func NormalizeSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func joinAddress(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ", ")
}
