package geo

import (
	"math"
	"sort"
	"strings"

	"github.com/deppfellow/aquaservice/internal/model"
)

// Match is one ranked technician candidate.
type Match struct {
	Technician    model.Technician `json:"technician"`
	DistanceKm    float64          `json:"distance_km"`
	HasAllSkills  bool             `json:"has_all_skills"`
	MissingSkills []string         `json:"missing_skills"`
}

// RankTechnicians orders technicians for a visit at target requiring skills.
//
// Inactive technicians and technicians without coordinates are left out.
// Candidates holding every required skill come first, then nearer ones,
// then by name. limit <= 0 returns every candidate.
func RankTechnicians(target model.Coordinates, required []string, technicians []model.Technician, limit int) []Match {
	required = model.NormalizeSkills(required)

	type candidate struct {
		Match
		km float64
	}

	candidates := make([]candidate, 0, len(technicians))
	for _, t := range technicians {
		if !t.Active {
			continue
		}
		loc, ok := t.Location()
		if !ok {
			continue
		}

		km := HaversineKm(target, loc)
		missing := missingSkills(required, t.Skills)
		candidates = append(candidates, candidate{
			Match: Match{
				Technician:    t,
				DistanceKm:    round2(km),
				HasAllSkills:  len(missing) == 0,
				MissingSkills: missing,
			},
			km: km,
		})
	}

	// Ordering uses the exact distance; only the reported value is rounded.
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.HasAllSkills != b.HasAllSkills {
			return a.HasAllSkills
		}
		if a.km != b.km {
			return a.km < b.km
		}
		return strings.ToLower(a.Technician.Name) < strings.ToLower(b.Technician.Name)
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	matches := make([]Match, len(candidates))
	for i, c := range candidates {
		matches[i] = c.Match
	}
	return matches
}

// missingSkills returns the required skills absent from have, in required order.
func missingSkills(required, have []string) []string {
	owned := make(map[string]struct{}, len(have))
	for _, s := range model.NormalizeSkills(have) {
		owned[s] = struct{}{}
	}

	missing := []string{}
	for _, s := range required {
		if _, ok := owned[s]; !ok {
			missing = append(missing, s)
		}
	}
	return missing
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
