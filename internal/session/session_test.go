package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(secret string) *Manager {
	return NewManager(secret, "kaibigan-api", time.Hour, false)
}

func requestWithCookies(t *testing.T, rec *httptest.ResponseRecorder) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, cookie := range rec.Result().Cookies() {
		req.AddCookie(cookie)
	}
	return req
}

func TestWriteReadRoundtrip(t *testing.T) {
	m := newTestManager("secret")

	want := Session{
		Email:          "a@x.com",
		Username:       "anna",
		ProfileImage:   "https://img.example/a.png",
		ConversationID: NewConversationID(),
	}

	rec := httptest.NewRecorder()
	require.NoError(t, m.Write(rec, want))

	got, err := m.Read(requestWithCookies(t, rec))
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.True(t, got.Authenticated())
}

func TestReadWithoutCookie(t *testing.T) {
	m := newTestManager("secret")

	_, err := m.Read(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestReadRejectsForeignSignature(t *testing.T) {
	signer := newTestManager("secret-a")
	verifier := newTestManager("secret-b")

	rec := httptest.NewRecorder()
	require.NoError(t, signer.Write(rec, Session{ConversationID: NewConversationID()}))

	_, err := verifier.Read(requestWithCookies(t, rec))
	assert.Error(t, err)
}

func TestAnonymousSessionsGetFreshConversationIDs(t *testing.T) {
	m := newTestManager("secret")

	first := m.Anonymous()
	second := m.Anonymous()

	assert.False(t, first.Authenticated())
	assert.True(t, ValidConversationID(first.ConversationID))
	assert.NotEqual(t, first.ConversationID, second.ConversationID)
}

func TestValidConversationID(t *testing.T) {
	assert.True(t, ValidConversationID(NewConversationID()))
	assert.False(t, ValidConversationID(""))
	assert.False(t, ValidConversationID("not-a-uuid"))
	assert.False(t, ValidConversationID("12345"))
}
