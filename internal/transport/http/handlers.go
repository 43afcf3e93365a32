package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"

	"empatia/internal/domain"
	"empatia/internal/i18n"
	"empatia/internal/submit"
)

// Response is a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HealthResponse is the response for health check
type HealthResponse struct {
	Status  string `json:"status"`
	Phase   string `json:"phase"`
	Clients int    `json:"clients"`
}

// ConfirmResponse is the response for confirming a round
type ConfirmResponse struct {
	Outcome *domain.RoundOutcome `json:"outcome"`
	Game    domain.GameSnapshot  `json:"game"`
}

// ResultsResponse is the response for the result screen
type ResultsResponse struct {
	Result  domain.GameResult `json:"result"`
	Pending *submit.Pending   `json:"pending,omitempty"`
}

// CardTapRequest is the body of an NFC tap
type CardTapRequest struct {
	NFCID  string `json:"nfcId"`
	Reader string `json:"reader"`
}

// CardTapResponse reports whether the tap picked up a result
type CardTapResponse struct {
	Submitting bool `json:"submitting"`
}

// LocalizeResponse is the response for a catalog lookup
type LocalizeResponse struct {
	Section  string `json:"section"`
	Key      string `json:"key"`
	Language string `json:"language"`
	Text     string `json:"text"`
}

// handleHealth handles GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, &HealthResponse{
		Status:  "ok",
		Phase:   s.kiosk.Engine().Phase().String(),
		Clients: s.kiosk.ClientCount(),
	})
}

// handleGetGame handles GET /api/game
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, s.kiosk.Snapshot(s.requestLanguage(r)))
}

// handleStartGame handles POST /api/game/start
func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	snap, err := s.kiosk.StartGame(r.Context(), s.requestLanguage(r))
	if err != nil {
		s.sendDomainError(w, err)
		return
	}
	s.sendSuccess(w, snap)
}

// handleToggleWord handles POST /api/game/words/{index}/toggle
func (s *Server) handleToggleWord(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "INVALID_WORD", "Word index must be a number")
		return
	}

	payload, err := s.kiosk.ToggleWord(index)
	if err != nil {
		s.sendDomainError(w, err)
		return
	}
	s.sendSuccess(w, payload)
}

// handleConfirmRound handles POST /api/game/confirm
func (s *Server) handleConfirmRound(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.kiosk.ConfirmRound(r.Context())
	if err != nil {
		s.sendDomainError(w, err)
		return
	}
	s.sendSuccess(w, &ConfirmResponse{
		Outcome: outcome,
		Game:    s.kiosk.Snapshot(s.requestLanguage(r)),
	})
}

// handleContinue handles POST /api/game/continue
func (s *Server) handleContinue(w http.ResponseWriter, r *http.Request) {
	if err := s.kiosk.Continue(r.Context()); err != nil {
		s.sendDomainError(w, err)
		return
	}
	s.sendSuccess(w, s.kiosk.Snapshot(s.requestLanguage(r)))
}

// handleGetResults handles GET /api/results
func (s *Server) handleGetResults(w http.ResponseWriter, r *http.Request) {
	result, ok := s.kiosk.LastResult()
	if !ok {
		s.sendError(w, http.StatusNotFound, "NO_RESULT", "No game has been completed yet")
		return
	}

	resp := &ResultsResponse{Result: result}
	if pending, ok := s.kiosk.PendingSubmission(); ok && pending.GameID == result.GameID {
		resp.Pending = &pending
	}
	s.sendSuccess(w, resp)
}

// handleTopWords handles GET /api/results/top-words?n=
func (s *Server) handleTopWords(w http.ResponseWriter, r *http.Request) {
	n := domain.DefaultTopWords
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.sendError(w, http.StatusBadRequest, "INVALID_REQUEST", "n must be a number")
			return
		}
		n = parsed
	}
	s.sendSuccess(w, s.kiosk.TopWords(n))
}

// handleCardTap handles POST /api/nfc/taps
func (s *Server) handleCardTap(w http.ResponseWriter, r *http.Request) {
	var req CardTapRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid card tap body")
		return
	}

	submitting, err := s.kiosk.TapCard(r.Context(), req.NFCID, req.Reader)
	if err != nil {
		s.sendDomainError(w, err)
		return
	}
	s.sendSuccess(w, &CardTapResponse{Submitting: submitting})
}

// handleRoundTallies handles GET /api/rounds/{round}/tallies. Rounds are
// numbered from 1 in the URL, like the score files.
func (s *Server) handleRoundTallies(w http.ResponseWriter, r *http.Request) {
	round, err := strconv.Atoi(chi.URLParam(r, "round"))
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "INVALID_ROUND", "Round must be a number")
		return
	}

	view, err := s.kiosk.RoundTallies(r.Context(), round-1)
	if err != nil {
		s.sendDomainError(w, err)
		return
	}
	s.sendSuccess(w, view)
}

// handleResetScores handles DELETE /api/admin/scores
func (s *Server) handleResetScores(w http.ResponseWriter, r *http.Request) {
	if err := s.kiosk.ResetScores(r.Context()); err != nil {
		s.logger.Error("score reset failed", "error", err)
		s.sendError(w, http.StatusInternalServerError, "RESET_FAILED", "Failed to reset scores")
		return
	}
	s.sendSuccess(w, map[string]bool{"reset": true})
}

// handleLocalize handles GET /api/i18n/{section}/{key}?lang=
func (s *Server) handleLocalize(w http.ResponseWriter, r *http.Request) {
	section := chi.URLParam(r, "section")
	key := chi.URLParam(r, "key")
	tag := s.requestLanguage(r)

	text, ok := s.kiosk.Localize(tag, section, key)
	if !ok {
		s.sendError(w, http.StatusNotFound, "TEXT_NOT_FOUND", "No text for "+section+"."+key)
		return
	}
	s.sendSuccess(w, &LocalizeResponse{
		Section:  section,
		Key:      key,
		Language: tag.String(),
		Text:     text,
	})
}

// requestLanguage picks the language from ?lang=, then Accept-Language
func (s *Server) requestLanguage(r *http.Request) language.Tag {
	if tag, ok := i18n.ParseTag(r.URL.Query().Get("lang")); ok {
		return tag
	}
	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if tag, ok := i18n.ParseTag(accept); ok {
			return tag
		}
	}
	return s.kiosk.DefaultLanguage()
}

// sendDomainError maps game errors to HTTP statuses
func (s *Server) sendDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidPhase):
		s.sendError(w, http.StatusConflict, "INVALID_ACTION", "Not allowed in the current phase")
	case errors.Is(err, domain.ErrInvalidWordIndex):
		s.sendError(w, http.StatusBadRequest, "INVALID_WORD", "No such word in this round")
	case errors.Is(err, domain.ErrNoSelection):
		s.sendError(w, http.StatusUnprocessableEntity, "NO_SELECTION", "Select at least one word")
	case errors.Is(err, domain.ErrInvalidRound):
		s.sendError(w, http.StatusNotFound, "ROUND_NOT_FOUND", "Round not found")
	case errors.Is(err, domain.ErrEmptyIdentifier):
		s.sendError(w, http.StatusBadRequest, "MISSING_CARD_ID", "Card identifier is required")
	default:
		s.logger.Error("request failed", "error", err)
		s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// sendSuccess sends a successful JSON response
func (s *Server) sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&Response{
		Success: true,
		Data:    data,
	})
}

// sendError sends an error JSON response
func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(&Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	})
}
