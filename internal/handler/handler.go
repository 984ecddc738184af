package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/rs/zerolog"

	"github.com/kaibiganhq/kaibigan-api/internal/provider"
	"github.com/kaibiganhq/kaibigan-api/internal/session"
	"github.com/kaibiganhq/kaibigan-api/internal/usecase"
)

// Handler holds the HTTP surface of the application.
type Handler struct {
	logger   *zerolog.Logger
	sessions *session.Manager
	authUC   usecase.AuthUsecase
	otpUC    usecase.OTPUsecase
	chatUC   usecase.ChatUsecase
	google   *provider.GoogleProvider

	validate   *validator.Validate
	translator ut.Translator
}

// New creates the Handler and wires up payload validation with English
// translations.
func New(
	logger *zerolog.Logger,
	sessions *session.Manager,
	authUC usecase.AuthUsecase,
	otpUC usecase.OTPUsecase,
	chatUC usecase.ChatUsecase,
	google *provider.GoogleProvider,
) *Handler {
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := entranslations.RegisterDefaultTranslations(validate, translator); err != nil {
		logger.Fatal().Err(err).Msg("failed to register validator translations")
	}

	return &Handler{
		logger:     logger,
		sessions:   sessions,
		authUC:     authUC,
		otpUC:      otpUC,
		chatUC:     chatUC,
		google:     google,
		validate:   validate,
		translator: translator,
	}
}

// Routes builds the application router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.withSession)

	r.Get("/health", h.health)

	r.Get("/", h.index)
	r.Post("/", h.captureEmail)
	r.Post("/signup", h.signup)
	r.Post("/signin", h.signin)
	r.Post("/send_otp", h.sendOTP)
	r.Post("/verify", h.verify)
	r.Get("/google", h.googleLogin)
	r.Get("/google/callback", h.googleCallback)
	r.Get("/logout", h.logout)
	r.Post("/logout", h.logout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Post("/chat", h.chat)
		r.Get("/history", h.history)
		r.Get("/session_history", h.sessionHistory)
		r.Get("/get_session_data", h.getSessionData)
		r.Post("/reload-session", h.reloadSession)
		r.Post("/set_session", h.setSession)
	})

	r.Get("/main", h.mainPage)

	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// decodeAndValidate decodes a JSON body into v and runs struct validation.
// On failure it writes a 400 with field-keyed translated messages and
// returns false.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}

	if err := h.validate.Struct(v); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			fields := make(map[string]string, len(validationErrors))
			for _, fieldErr := range validationErrors {
				fields[fieldErr.Field()] = fieldErr.Translate(h.translator)
			}
			h.respondJSON(w, http.StatusBadRequest, map[string]any{"errors": fields})
			return false
		}

		h.respondError(w, http.StatusBadRequest, "invalid request")
		return false
	}

	return true
}
