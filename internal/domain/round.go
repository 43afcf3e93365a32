package domain

const (
	// RoundCount is the number of situations in one playthrough
	RoundCount = 3

	// WordsPerRound is the number of word choices offered per situation
	WordsPerRound = 8
)

// WordChoice is one selectable word of a round
type WordChoice struct {
	Text         string `json:"text"`
	IsEmpathetic bool   `json:"isEmpathetic"`
}

// RoundDefinition is the fixed, ordered list of words shown in a round
type RoundDefinition struct {
	Words []WordChoice `json:"words"`
}

// Texts returns the word texts in display order
func (r RoundDefinition) Texts() []string {
	texts := make([]string, len(r.Words))
	for i, w := range r.Words {
		texts[i] = w.Text
	}
	return texts
}

// EmpatheticCount returns how many words of the round count towards the score
func (r RoundDefinition) EmpatheticCount() int {
	count := 0
	for _, w := range r.Words {
		if w.IsEmpathetic {
			count++
		}
	}
	return count
}

// ValidRound reports whether index addresses one of the configured rounds
func ValidRound(index int) bool {
	return index >= 0 && index < RoundCount
}

// DefaultRounds returns the three situations shipped with the kiosk.
// Each call returns a fresh copy so callers may not mutate shared state.
func DefaultRounds() []RoundDefinition {
	return []RoundDefinition{
		{Words: []WordChoice{
			{Text: "Adaptação", IsEmpathetic: true},
			{Text: "Resolução de problema", IsEmpathetic: true},
			{Text: "Compromisso", IsEmpathetic: true},
			{Text: "Respeito ao cliente", IsEmpathetic: true},
			{Text: "Desengajado", IsEmpathetic: false},
			{Text: "Falta de profissionalismo", IsEmpathetic: false},
			{Text: "Falta de comunicação", IsEmpathetic: false},
			{Text: "Negligente", IsEmpathetic: false},
		}},
		{Words: []WordChoice{
			{Text: "Desleixo", IsEmpathetic: false},
			{Text: "Resiliência", IsEmpathetic: true},
			{Text: "Amadorismo", IsEmpathetic: false},
			{Text: "Prioridade", IsEmpathetic: true},
			{Text: "Adaptação", IsEmpathetic: true},
			{Text: "Falta de respeito", IsEmpathetic: false},
			{Text: "Compromisso", IsEmpathetic: true},
			{Text: "Falta de atenção", IsEmpathetic: false},
		}},
		{Words: []WordChoice{
			{Text: "Improdutividade", IsEmpathetic: false},
			{Text: "Resolução de problemas", IsEmpathetic: true},
			{Text: "Desorganização", IsEmpathetic: false},
			{Text: "Estratégia", IsEmpathetic: true},
			{Text: "Distração", IsEmpathetic: false},
			{Text: "Colaboração", IsEmpathetic: true},
			{Text: "Descomprometimento", IsEmpathetic: false},
			{Text: "Parceria", IsEmpathetic: true},
		}},
	}
}
