package handler

// Request payloads. Validation tags are enforced by decodeAndValidate before
// any usecase is called.

type CaptureEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type SignupRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=32"`
	Password string `json:"password" validate:"required,min=8"`
}

type SigninRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type SendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code"  validate:"required,len=6,numeric"`
}

type ChatRequest struct {
	Message string   `json:"message" validate:"required,max=2000"`
	Topics  []string `json:"topics"  validate:"omitempty,max=10,dive,max=500"`
}

// SessionID well-formedness is checked against session.ValidConversationID in
// the handler; the tag only requires presence.
type SetSessionRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}
