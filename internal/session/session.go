package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const cookieName = "kaibigan_session"

var ErrNoSession = errors.New("no session")

// Session is the live authentication context carried in a signed cookie.
// ConversationID groups chat turns; it is minted fresh on logout and on an
// explicit reset so anonymous activity stays groupable.
type Session struct {
	Email          string
	Username       string
	ProfileImage   string
	ConversationID string
}

// Authenticated reports whether an identity has been established.
func (s Session) Authenticated() bool {
	return s.Email != ""
}

// Claims is the JWT representation of a Session.
type Claims struct {
	Email          string `json:"email,omitempty"`
	Username       string `json:"username,omitempty"`
	ProfileImage   string `json:"picture,omitempty"`
	ConversationID string `json:"cid"`
	jwt.RegisteredClaims
}

// Manager signs sessions into cookies and reads them back. Tokens are HS256
// with issuer and audience enforced on parse.
type Manager struct {
	secret string
	issuer string
	ttl    time.Duration
	secure bool
}

func NewManager(secret, issuer string, ttl time.Duration, secure bool) *Manager {
	return &Manager{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
		secure: secure,
	}
}

// Write signs the session and sets it as the session cookie.
func (m *Manager) Write(w http.ResponseWriter, sess Session) error {
	now := time.Now()
	claims := Claims{
		Email:          sess.Email,
		Username:       sess.Username,
		ProfileImage:   sess.ProfileImage,
		ConversationID: sess.ConversationID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.issuer},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString([]byte(m.secret))
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    tokenStr,
		Path:     "/",
		Expires:  now.Add(m.ttl),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// Read parses the session cookie. A missing cookie returns ErrNoSession; a
// cookie that fails signature or registered-claim checks returns the parse
// error, and callers are expected to fall back to a fresh anonymous session
// either way.
func (m *Manager) Read(r *http.Request) (Session, error) {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return Session{}, ErrNoSession
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}

		return []byte(m.secret), nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithAudience(m.issuer),
		jwt.WithIssuer(m.issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	)
	if err != nil {
		return Session{}, err
	}

	if !token.Valid {
		return Session{}, errors.New("invalid session token")
	}

	return Session{
		Email:          claims.Email,
		Username:       claims.Username,
		ProfileImage:   claims.ProfileImage,
		ConversationID: claims.ConversationID,
	}, nil
}

// Anonymous returns a session with no identity and a fresh conversation id.
func (m *Manager) Anonymous() Session {
	return Session{ConversationID: NewConversationID()}
}

// NewConversationID mints an opaque conversation-session identifier.
func NewConversationID() string {
	return uuid.NewString()
}

// ValidConversationID reports whether a client-supplied identifier is a
// well-formed conversation id.
func ValidConversationID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
