package handler

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/kaibiganhq/kaibigan-api/internal/usecase"
)

const oauthStateCookie = "oauth_state"

func (h *Handler) index(w http.ResponseWriter, _ *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{
		"message": "Kumusta! Mag-sign up o mag-sign in para makapag-usap tayo.",
	})
}

// captureEmail takes an email from the landing page and points the client at
// the signup flow.
func (h *Handler) captureEmail(w http.ResponseWriter, r *http.Request) {
	var req CaptureEmailRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{
		"email":    req.Email,
		"redirect": "/signup",
	})
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	err := h.authUC.Signup(r.Context(), usecase.SignupParams{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrUserAlreadyExists):
			h.respondError(w, http.StatusConflict, "an account with this email already exists")
		case errors.Is(err, usecase.ErrOTPThrottled):
			h.respondError(w, http.StatusTooManyRequests, "a code was sent recently, please wait before retrying")
		case errors.Is(err, usecase.ErrMailDelivery):
			h.logger.Error().Err(err).Msg("failed to send verification email")
			h.respondError(w, http.StatusBadGateway, "failed to send verification email")
		default:
			h.logger.Error().Err(err).Msg("signup failed")
			h.respondError(w, http.StatusInternalServerError, "something went wrong")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"status": "otp_sent"})
}

func (h *Handler) signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.authUC.Signin(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidCredentials) {
			h.respondError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}

		h.logger.Error().Err(err).Msg("signin failed")
		h.respondError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	sess := h.authenticate(w, r, user.Email, user.Username, user.ProfileImage)
	h.respondJSON(w, http.StatusOK, map[string]string{
		"email":      sess.Email,
		"session_id": sess.ConversationID,
	})
}

func (h *Handler) sendOTP(w http.ResponseWriter, r *http.Request) {
	var req SendOTPRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	err := h.otpUC.Issue(r.Context(), usecase.IssueOTPParams{Email: req.Email})
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrOTPThrottled):
			h.respondError(w, http.StatusTooManyRequests, "a code was sent recently, please wait before retrying")
		case errors.Is(err, usecase.ErrMailDelivery):
			h.logger.Error().Err(err).Msg("failed to send verification email")
			h.respondError(w, http.StatusBadGateway, "failed to send verification email")
		default:
			h.logger.Error().Err(err).Msg("otp issue failed")
			h.respondError(w, http.StatusInternalServerError, "something went wrong")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"status": "otp_sent"})
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.otpUC.Verify(r.Context(), req.Email, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrOTPInvalid):
			h.respondError(w, http.StatusUnauthorized, "invalid verification code")
		case errors.Is(err, usecase.ErrOTPExpired):
			h.respondError(w, http.StatusUnauthorized, "verification code has expired")
		default:
			h.logger.Error().Err(err).Msg("otp verification failed")
			h.respondError(w, http.StatusInternalServerError, "something went wrong")
		}
		return
	}

	sess := h.authenticate(w, r, user.Email, user.Username, user.ProfileImage)
	h.respondJSON(w, http.StatusOK, map[string]string{
		"email":      sess.Email,
		"session_id": sess.ConversationID,
	})
}

// googleLogin clears any existing identity and redirects to the Google
// consent page. The state value is kept in a short-lived cookie and checked
// on callback.
func (h *Handler) googleLogin(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Write(w, h.sessions.Anonymous()); err != nil {
		h.logger.Error().Err(err).Msg("failed to clear session")
	}

	state, err := generateState()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to generate oauth state")
		h.respondError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthCodeURL(state), http.StatusFound)
}

func (h *Handler) googleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	token, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error().Err(err).Msg("oauth code exchange failed")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	userInfo, err := h.google.FetchUserInfo(r.Context(), token)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to fetch google user info")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	user, err := h.authUC.ResolveExternalIdentity(r.Context(), usecase.ExternalClaims{
		Email:   userInfo.Email,
		Name:    userInfo.Name,
		Picture: userInfo.Picture,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrNoEmailClaim) {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		h.logger.Error().Err(err).Msg("failed to resolve google identity")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	h.authenticate(w, r, user.Email, user.Username, user.ProfileImage)
	http.Redirect(w, r, "/main", http.StatusFound)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	// Logout always mints a fresh conversation id so later anonymous chat
	// activity stays groupable under a new session.
	if err := h.sessions.Write(w, h.sessions.Anonymous()); err != nil {
		h.logger.Error().Err(err).Msg("failed to clear session")
	}

	if r.Method == http.MethodGet {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// mainPage is the authenticated landing surface; browsers without an identity
// are sent back to the public landing page.
func (h *Handler) mainPage(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if !sess.Authenticated() {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{
		"email":         sess.Email,
		"username":      sess.Username,
		"profile_image": sess.ProfileImage,
		"session_id":    sess.ConversationID,
	})
}

func generateState() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
