package domain

import "sort"

// WordScore pairs a word with its score for ranking
type WordScore struct {
	Word  string `json:"word"`
	Score int    `json:"score"`
}

// DefaultTopWords is how many words the result screen lists
const DefaultTopWords = 5

// TopWords returns up to n entries sorted by descending score.
// Equal scores keep their input order. n <= 0 returns an empty list.
func TopWords(scores []WordScore, n int) []WordScore {
	if n <= 0 || len(scores) == 0 {
		return []WordScore{}
	}

	ranked := make([]WordScore, len(scores))
	copy(ranked, scores)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}

// WordBoard accumulates points per word and remembers first-seen order,
// which is the tie-break used by TopWords.
type WordBoard struct {
	order  []string
	scores map[string]int
}

// NewWordBoard creates an empty board
func NewWordBoard() *WordBoard {
	return &WordBoard{scores: make(map[string]int)}
}

// Add credits points to a word. Totals never drop below zero. Empty words are ignored.
func (b *WordBoard) Add(word string, points int) {
	if word == "" {
		return
	}
	current, seen := b.scores[word]
	if !seen {
		b.order = append(b.order, word)
	}
	total := current + points
	if total < 0 {
		total = 0
	}
	b.scores[word] = total
}

// AddAll credits every entry in order
func (b *WordBoard) AddAll(entries []WordScore) {
	for _, e := range entries {
		b.Add(e.Word, e.Score)
	}
}

// Score returns the current total of a word, zero if unknown
func (b *WordBoard) Score(word string) int {
	return b.scores[word]
}

// Len returns the number of tracked words
func (b *WordBoard) Len() int {
	return len(b.order)
}

// Entries returns all words in first-seen order
func (b *WordBoard) Entries() []WordScore {
	out := make([]WordScore, 0, len(b.order))
	for _, w := range b.order {
		out = append(out, WordScore{Word: w, Score: b.scores[w]})
	}
	return out
}

// Top returns the n best words on the board
func (b *WordBoard) Top(n int) []WordScore {
	return TopWords(b.Entries(), n)
}

// Reset forgets every word
func (b *WordBoard) Reset() {
	b.order = nil
	b.scores = make(map[string]int)
}
