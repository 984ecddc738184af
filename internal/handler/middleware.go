package handler

import (
	"context"
	"net/http"

	"github.com/kaibiganhq/kaibigan-api/internal/session"
)

type contextKey struct{}

var sessionKey = contextKey{}

// withSession reads the session cookie into the request context. A missing or
// invalid cookie yields a fresh anonymous session with a new conversation id,
// so every downstream handler can rely on one being present.
func (h *Handler) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := h.sessions.Read(r)
		if err != nil {
			sess = h.sessions.Anonymous()
			if err := h.sessions.Write(w, sess); err != nil {
				h.logger.Error().Err(err).Msg("failed to write anonymous session")
			}
		}

		ctx := context.WithValue(r.Context(), sessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth rejects requests without an established identity.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !sessionFromContext(r.Context()).Authenticated() {
			h.respondError(w, http.StatusUnauthorized, "user not logged in")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func sessionFromContext(ctx context.Context) session.Session {
	sess, _ := ctx.Value(sessionKey).(session.Session)
	return sess
}

// authenticate stamps the identity onto the session, minting a conversation
// id only if none exists yet, and writes the cookie.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request, email, username, profileImage string) session.Session {
	sess := sessionFromContext(r.Context())
	sess.Email = email
	sess.Username = username
	sess.ProfileImage = profileImage
	if sess.ConversationID == "" {
		sess.ConversationID = session.NewConversationID()
	}

	if err := h.sessions.Write(w, sess); err != nil {
		h.logger.Error().Err(err).Msg("failed to write session")
	}

	return sess
}
