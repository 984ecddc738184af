package handler

import (
	"net/http"

	"github.com/kaibiganhq/kaibigan-api/internal/session"
)

func (h *Handler) getSessionData(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	h.respondJSON(w, http.StatusOK, map[string]string{
		"email":         sess.Email,
		"username":      sess.Username,
		"profile_image": sess.ProfileImage,
		"session_id":    sess.ConversationID,
	})
}

// reloadSession starts a new conversation: identity is kept, the
// conversation id is replaced.
func (h *Handler) reloadSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	sess.ConversationID = session.NewConversationID()

	if err := h.sessions.Write(w, sess); err != nil {
		h.logger.Error().Err(err).Msg("failed to write session")
		h.respondError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"session_id": sess.ConversationID})
}

// setSession switches the current conversation to a client-supplied id, e.g.
// to continue a conversation picked from history. The id must be well formed.
func (h *Handler) setSession(w http.ResponseWriter, r *http.Request) {
	var req SetSessionRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if !session.ValidConversationID(req.SessionID) {
		h.respondError(w, http.StatusBadRequest, "malformed session_id")
		return
	}

	sess := sessionFromContext(r.Context())
	sess.ConversationID = req.SessionID

	if err := h.sessions.Write(w, sess); err != nil {
		h.logger.Error().Err(err).Msg("failed to write session")
		h.respondError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"session_id": sess.ConversationID})
}
