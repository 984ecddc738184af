package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaibiganhq/kaibigan-api/internal/model"
	"github.com/kaibiganhq/kaibigan-api/internal/provider"
	"github.com/kaibiganhq/kaibigan-api/internal/session"
	"github.com/kaibiganhq/kaibigan-api/internal/usecase"
)

type stubAuthUC struct {
	signinUser *model.User
	signinErr  error
}

func (s *stubAuthUC) Signup(context.Context, usecase.SignupParams) error { return nil }

func (s *stubAuthUC) Signin(context.Context, string, string) (*model.User, error) {
	return s.signinUser, s.signinErr
}

func (s *stubAuthUC) ResolveExternalIdentity(context.Context, usecase.ExternalClaims) (*model.User, error) {
	return nil, nil
}

type stubOtpUC struct{}

func (s *stubOtpUC) Issue(context.Context, usecase.IssueOTPParams) error { return nil }

func (s *stubOtpUC) Verify(context.Context, string, string) (*model.User, error) {
	return nil, usecase.ErrOTPInvalid
}

type stubChatUC struct {
	lastParams usecase.RecordTurnParams
}

func (s *stubChatUC) RecordTurn(_ context.Context, params usecase.RecordTurnParams) (*model.ChatTurn, error) {
	s.lastParams = params
	return &model.ChatTurn{
		Email:       params.Email,
		SessionID:   params.SessionID,
		UserMessage: params.UserMessage,
		BotReply:    "Nandito ako para makinig.",
		Timestamp:   time.Now(),
	}, nil
}

func (s *stubChatUC) ListSessionSummaries(context.Context, string) ([]usecase.SessionSummary, error) {
	return nil, nil
}

func (s *stubChatUC) GetSessionTranscript(context.Context, string, string) ([]*model.ChatTurn, error) {
	return nil, nil
}

type fixture struct {
	handler  http.Handler
	sessions *session.Manager
	chatUC   *stubChatUC
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := zerolog.Nop()
	sessions := session.NewManager("test-secret", "kaibigan-api", time.Hour, false)
	chatUC := &stubChatUC{}
	google := provider.NewGoogleProvider("client-id", "client-secret", "http://localhost/google/callback")

	h := New(&logger, sessions, &stubAuthUC{}, &stubOtpUC{}, chatUC, google)

	return &fixture{
		handler:  h.Routes(),
		sessions: sessions,
		chatUC:   chatUC,
	}
}

func (f *fixture) authCookies(t *testing.T, sess session.Session) []*http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, f.sessions.Write(rec, sess))
	return rec.Result().Cookies()
}

func (f *fixture) do(req *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestChatRequiresAuthentication(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hi"}`))
	rec := f.do(req, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChatUsesSessionIdentity(t *testing.T) {
	f := newFixture(t)

	cid := session.NewConversationID()
	cookies := f.authCookies(t, session.Session{Email: "a@x.com", ConversationID: cid})

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hindi ako okay"}`))
	rec := f.do(req, cookies)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a@x.com", f.chatUC.lastParams.Email)
	assert.Equal(t, cid, f.chatUC.lastParams.SessionID)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Nandito ako para makinig.", body["reply"])
}

func TestSetSessionRejectsMalformedID(t *testing.T) {
	f := newFixture(t)

	cookies := f.authCookies(t, session.Session{Email: "a@x.com", ConversationID: session.NewConversationID()})

	req := httptest.NewRequest(http.MethodPost, "/set_session", strings.NewReader(`{"session_id":"not-a-uuid"}`))
	rec := f.do(req, cookies)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetSessionAcceptsWellFormedID(t *testing.T) {
	f := newFixture(t)

	cookies := f.authCookies(t, session.Session{Email: "a@x.com", ConversationID: session.NewConversationID()})
	target := session.NewConversationID()

	req := httptest.NewRequest(http.MethodPost, "/set_session", strings.NewReader(`{"session_id":"`+target+`"}`))
	rec := f.do(req, cookies)

	require.Equal(t, http.StatusOK, rec.Code)

	readReq := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, cookie := range rec.Result().Cookies() {
		readReq.AddCookie(cookie)
	}
	sess, err := f.sessions.Read(readReq)
	require.NoError(t, err)
	assert.Equal(t, target, sess.ConversationID)
	assert.Equal(t, "a@x.com", sess.Email)
}

func TestSetSessionAcceptsAnyWellFormedUUID(t *testing.T) {
	f := newFixture(t)

	cookies := f.authCookies(t, session.Session{Email: "a@x.com", ConversationID: session.NewConversationID()})

	// Not a v4 UUID, but still a well-formed conversation id.
	const target = "f47ac10b-58cc-1372-8567-0e02b2c3d479"

	req := httptest.NewRequest(http.MethodPost, "/set_session", strings.NewReader(`{"session_id":"`+target+`"}`))
	rec := f.do(req, cookies)

	require.Equal(t, http.StatusOK, rec.Code)

	readReq := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, cookie := range rec.Result().Cookies() {
		readReq.AddCookie(cookie)
	}
	sess, err := f.sessions.Read(readReq)
	require.NoError(t, err)
	assert.Equal(t, target, sess.ConversationID)
}

func TestReloadSessionMintsFreshConversationID(t *testing.T) {
	f := newFixture(t)

	cid := session.NewConversationID()
	cookies := f.authCookies(t, session.Session{Email: "a@x.com", ConversationID: cid})

	req := httptest.NewRequest(http.MethodPost, "/reload-session", nil)
	rec := f.do(req, cookies)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["session_id"])
	assert.NotEqual(t, cid, body["session_id"])
}

func TestLogoutClearsIdentityAndRotatesConversationID(t *testing.T) {
	f := newFixture(t)

	cid := session.NewConversationID()
	cookies := f.authCookies(t, session.Session{Email: "a@x.com", ConversationID: cid})

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	rec := f.do(req, cookies)

	assert.Equal(t, http.StatusFound, rec.Code)

	readReq := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, cookie := range rec.Result().Cookies() {
		readReq.AddCookie(cookie)
	}
	sess, err := f.sessions.Read(readReq)
	require.NoError(t, err)
	assert.False(t, sess.Authenticated())
	assert.NotEqual(t, cid, sess.ConversationID)
	assert.True(t, session.ValidConversationID(sess.ConversationID))
}

func TestMainRedirectsAnonymousUsers(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/main", nil)
	rec := f.do(req, nil)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestGoogleLoginRedirectsWithState(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/google", nil)
	rec := f.do(req, nil)

	require.Equal(t, http.StatusFound, rec.Code)
	location := rec.Header().Get("Location")
	assert.Contains(t, location, "accounts.google.com")
	assert.Contains(t, location, "state=")

	var stateCookie *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "oauth_state" {
			stateCookie = cookie
		}
	}
	require.NotNil(t, stateCookie)
	assert.NotEmpty(t, stateCookie.Value)
}

func TestAnonymousRequestGetsSessionCookie(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := f.do(req, nil)

	require.Equal(t, http.StatusOK, rec.Code)

	readReq := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, cookie := range rec.Result().Cookies() {
		readReq.AddCookie(cookie)
	}
	sess, err := f.sessions.Read(readReq)
	require.NoError(t, err)
	assert.False(t, sess.Authenticated())
	assert.True(t, session.ValidConversationID(sess.ConversationID))
}
