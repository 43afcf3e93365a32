package domain

import "math"

const (
	// MaxEmpathyScore is the best total a player can reach over three rounds
	MaxEmpathyScore = 12

	// MaxSkillSegments is the number of segments of each result bar
	MaxSkillSegments = 22

	activeListeningWeight = 0.875
	selfAwarenessWeight   = 0.6875
)

// SkillScores are the three sub-scores shown and submitted at game end
type SkillScores struct {
	Empathy         int `json:"empathy"`
	ActiveListening int `json:"activeListening"`
	SelfAwareness   int `json:"selfAwareness"`
}

// ComputeSkillScores projects a final empathy score onto the three skill bars
// using the default score ceiling and segment count.
func ComputeSkillScores(finalScore int) SkillScores {
	return ComputeSkillScoresWith(finalScore, MaxEmpathyScore, MaxSkillSegments)
}

// ComputeSkillScoresWith projects finalScore onto bars of maxSegments segments.
// A non-positive maxScore yields zero scores.
func ComputeSkillScoresWith(finalScore, maxScore, maxSegments int) SkillScores {
	if maxScore <= 0 || maxSegments <= 0 {
		return SkillScores{}
	}

	ratio := float64(finalScore) / float64(maxScore)
	ratio = math.Max(0, math.Min(1, ratio))
	segments := float64(maxSegments)

	return SkillScores{
		Empathy:         ceilSegments(ratio*segments, maxSegments),
		ActiveListening: ceilSegments(ratio*segments*activeListeningWeight, maxSegments),
		SelfAwareness:   ceilSegments(ratio*segments*selfAwarenessWeight, maxSegments),
	}
}

// ceilSegments rounds up, trimming float noise so that e.g. 11.000000001 stays 11.
func ceilSegments(v float64, maxSegments int) int {
	n := int(math.Ceil(v - 1e-9))
	if n < 0 {
		return 0
	}
	if n > maxSegments {
		return maxSegments
	}
	return n
}

// skillWords maps the word cloud entries credited with each skill at game end
var skillWords = []struct {
	word  string
	skill func(SkillScores) int
}{
	{"Empatia", func(s SkillScores) int { return s.Empathy }},
	{"Respeito ao cliente", func(s SkillScores) int { return s.Empathy }},
	{"Compromisso", func(s SkillScores) int { return s.Empathy }},
	{"Colaboração", func(s SkillScores) int { return s.ActiveListening }},
	{"Parceria", func(s SkillScores) int { return s.ActiveListening }},
	{"Resolução de problemas", func(s SkillScores) int { return s.ActiveListening }},
	{"Adaptação", func(s SkillScores) int { return s.SelfAwareness }},
	{"Resiliência", func(s SkillScores) int { return s.SelfAwareness }},
	{"Estratégia", func(s SkillScores) int { return s.SelfAwareness }},
}

// SkillWordBonuses returns the word credits derived from the final skill scores,
// in a fixed order.
func SkillWordBonuses(scores SkillScores) []WordScore {
	out := make([]WordScore, 0, len(skillWords))
	for _, sw := range skillWords {
		out = append(out, WordScore{Word: sw.word, Score: sw.skill(scores)})
	}
	return out
}
