package domain

// MinCumulativePoints is the floor every persisted word tally starts from
const MinCumulativePoints = 1

// WordTally is the persisted selection count of one word.
// Points is the per-session value and resets every round; CumulativePoints
// accumulates across every player of an event until an administrator resets it.
type WordTally struct {
	Text             string `json:"text"`
	Points           int    `json:"points"`
	CumulativePoints int    `json:"cumulativePoints"`
}

// NewWordTally creates a tally at the default floor
func NewWordTally(text string) WordTally {
	return WordTally{
		Text:             text,
		Points:           1,
		CumulativePoints: MinCumulativePoints,
	}
}

// DefaultTallies builds one default tally per text, preserving order
func DefaultTallies(texts []string) []WordTally {
	tallies := make([]WordTally, 0, len(texts))
	for _, text := range texts {
		tallies = append(tallies, NewWordTally(text))
	}
	return tallies
}

// CopyTallies returns a copy safe to hand outside a lock
func CopyTallies(tallies []WordTally) []WordTally {
	if tallies == nil {
		return nil
	}
	out := make([]WordTally, len(tallies))
	copy(out, tallies)
	return out
}

// SanitizeTallies raises cumulative points below the floor back to it
func SanitizeTallies(tallies []WordTally) []WordTally {
	for i := range tallies {
		if tallies[i].CumulativePoints < MinCumulativePoints {
			tallies[i].CumulativePoints = MinCumulativePoints
		}
	}
	return tallies
}

// FindTally returns the index of the tally for text, or -1
func FindTally(tallies []WordTally, text string) int {
	for i := range tallies {
		if tallies[i].Text == text {
			return i
		}
	}
	return -1
}

// ReconcileTallies aligns stored tallies with the words of a round.
// Stored counts are kept for words that still exist; words missing from storage
// get a default tally; stale entries are dropped. The result follows round order.
func ReconcileTallies(stored []WordTally, texts []string) []WordTally {
	out := make([]WordTally, 0, len(texts))
	for _, text := range texts {
		if idx := FindTally(stored, text); idx >= 0 {
			out = append(out, stored[idx])
			continue
		}
		out = append(out, NewWordTally(text))
	}
	return SanitizeTallies(out)
}
