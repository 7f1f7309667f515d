package detect

import "math"

// Statistics summarizes one detection set. It is derived, never
// independently mutated: recompute it whenever a new set is accepted.
type Statistics struct {
	Total         int `json:"total"`
	WithHelmet    int `json:"with_helmet"`
	WithoutHelmet int `json:"without_helmet"`
	HelmetPercent int `json:"helmet_percent"`
}

// Compute derives statistics from a detection set. A nil or empty set
// yields all zeros.
func Compute(dets []Detection) Statistics {
	stats := Statistics{Total: len(dets)}
	for _, d := range dets {
		if d.HasHelmet {
			stats.WithHelmet++
		}
	}
	stats.WithoutHelmet = stats.Total - stats.WithHelmet

	if stats.Total > 0 {
		stats.HelmetPercent = int(math.Round(float64(stats.WithHelmet) / float64(stats.Total) * 100))
	}
	return stats
}
