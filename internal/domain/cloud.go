package domain

// CloudEntry is a word of the word cloud with its relative display weight
type CloudEntry struct {
	Text             string  `json:"text"`
	CumulativePoints int     `json:"cumulativePoints"`
	Weight           float64 `json:"weight"` // 0 smallest, 1 largest
}

// CloudWeights normalizes cumulative points into [0,1] for sizing the word cloud.
// When every word has the same count all weights are 0.5.
func CloudWeights(tallies []WordTally) []CloudEntry {
	if len(tallies) == 0 {
		return []CloudEntry{}
	}

	minPoints, maxPoints := tallies[0].CumulativePoints, tallies[0].CumulativePoints
	for _, t := range tallies[1:] {
		if t.CumulativePoints < minPoints {
			minPoints = t.CumulativePoints
		}
		if t.CumulativePoints > maxPoints {
			maxPoints = t.CumulativePoints
		}
	}

	entries := make([]CloudEntry, 0, len(tallies))
	for _, t := range tallies {
		weight := 0.5
		if maxPoints > minPoints {
			weight = float64(t.CumulativePoints-minPoints) / float64(maxPoints-minPoints)
		}
		entries = append(entries, CloudEntry{
			Text:             t.Text,
			CumulativePoints: t.CumulativePoints,
			Weight:           weight,
		})
	}
	return entries
}
