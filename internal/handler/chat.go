package handler

import (
	"net/http"

	"github.com/kaibiganhq/kaibigan-api/internal/model"
	"github.com/kaibiganhq/kaibigan-api/internal/usecase"
)

// transcriptMessage is one side of an exchange, shaped for direct rendering.
type transcriptMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	sess := sessionFromContext(r.Context())

	turn, err := h.chatUC.RecordTurn(r.Context(), usecase.RecordTurnParams{
		Email:       sess.Email,
		SessionID:   sess.ConversationID,
		UserMessage: req.Message,
		Topics:      req.Topics,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("email", sess.Email).Msg("failed to record chat turn")
		h.respondError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"reply": turn.BotReply})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	summaries, err := h.chatUC.ListSessionSummaries(r.Context(), sess.Email)
	if err != nil {
		h.logger.Error().Err(err).Str("email", sess.Email).Msg("failed to list session summaries")
		h.respondError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"history": summaries})
}

func (h *Handler) sessionHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		h.respondError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	sess := sessionFromContext(r.Context())

	turns, err := h.chatUC.GetSessionTranscript(r.Context(), sess.Email, sessionID)
	if err != nil {
		h.logger.Error().Err(err).Str("email", sess.Email).Msg("failed to load transcript")
		h.respondError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"messages":   transcript(turns),
	})
}

// transcript flattens turns into alternating user/assistant messages.
func transcript(turns []*model.ChatTurn) []transcriptMessage {
	messages := make([]transcriptMessage, 0, len(turns)*2)
	for _, turn := range turns {
		ts := turn.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00")
		messages = append(messages,
			transcriptMessage{Role: "user", Content: turn.UserMessage, Timestamp: ts},
			transcriptMessage{Role: "assistant", Content: turn.BotReply, Timestamp: ts},
		)
	}
	return messages
}
