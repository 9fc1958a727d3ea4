package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type handlerFixture struct {
	users    *fakeUsers
	sessions *MemorySessionStore
	h        *Handler
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	users := newFakeUsers()
	sessions := NewMemorySessionStore(time.Hour)
	h := NewHandler(newTestService(t, users), sessions, CookieOptions{TTL: time.Hour}, zap.NewNop())
	return &handlerFixture{users: users, sessions: sessions, h: h}
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	return nil
}

func TestHandlerLogin(t *testing.T) {
	f := newHandlerFixture(t)

	rec := httptest.NewRecorder()
	f.h.Login(rec, postJSON("/login", `{"username":"alice","password":"secret1"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	c := sessionCookie(t, rec)
	require.NotNil(t, c)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, 3600, c.MaxAge)

	got, err := f.sessions.Get(context.Background(), c.Value)
	require.NoError(t, err)
	assert.Equal(t, "alice", got)
}

func TestHandlerLogin_WrongPassword(t *testing.T) {
	f := newHandlerFixture(t)
	f.h.Login(httptest.NewRecorder(), postJSON("/login", `{"username":"alice","password":"secret1"}`))

	rec := httptest.NewRecorder()
	f.h.Login(rec, postJSON("/login", `{"username":"alice","password":"nope"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":false}`, rec.Body.String())
	assert.Nil(t, sessionCookie(t, rec))
}

func TestHandlerLogin_BadRequests(t *testing.T) {
	f := newHandlerFixture(t)
	for _, body := range []string{`not json`, `{"username":"","password":"x"}`, `{"username":"x"}`} {
		rec := httptest.NewRecorder()
		f.h.Login(rec, postJSON("/login", body))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Contains(t, rec.Body.String(), `"success":false`)
	}
	assert.Zero(t, f.users.creates)
}

func TestHandlerLogin_StorageFailure(t *testing.T) {
	f := newHandlerFixture(t)
	f.users.getErr = errors.New("db down")

	rec := httptest.NewRecorder()
	f.h.Login(rec, postJSON("/login", `{"username":"alice","password":"secret1"}`))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false}`, rec.Body.String())
}

func TestHandlerLogin_ReplacesExistingSession(t *testing.T) {
	f := newHandlerFixture(t)
	old, err := f.sessions.Create(context.Background(), "someone")
	require.NoError(t, err)

	req := postJSON("/login", `{"username":"alice","password":"secret1"}`)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: old})
	rec := httptest.NewRecorder()
	f.h.Login(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	got, _ := f.sessions.Get(context.Background(), old)
	assert.Empty(t, got)
}

func TestHandlerLogout(t *testing.T) {
	f := newHandlerFixture(t)
	sid, err := f.sessions.Create(context.Background(), "alice")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sid})
	rec := httptest.NewRecorder()
	f.h.Logout(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	c := sessionCookie(t, rec)
	require.NotNil(t, c)
	assert.Equal(t, -1, c.MaxAge)

	got, _ := f.sessions.Get(context.Background(), sid)
	assert.Empty(t, got)

	// Idempotent.
	rec = httptest.NewRecorder()
	f.h.Logout(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerWhoAmI(t *testing.T) {
	f := newHandlerFixture(t)
	f.users.passwords["alice"] = "x"

	rec := httptest.NewRecorder()
	f.h.WhoAmI(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"username":null}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req = req.WithContext(WithUsername(req.Context(), "alice"))
	rec = httptest.NewRecorder()
	f.h.WhoAmI(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"username":"alice"}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req = req.WithContext(WithUsername(req.Context(), "ghost"))
	rec = httptest.NewRecorder()
	f.h.WhoAmI(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerChangePassword(t *testing.T) {
	f := newHandlerFixture(t)
	f.h.Login(httptest.NewRecorder(), postJSON("/login", `{"username":"alice","password":"secret1"}`))
	before := f.users.stored("alice")

	withUser := func(r *http.Request) *http.Request {
		return r.WithContext(WithUsername(r.Context(), "alice"))
	}

	rec := httptest.NewRecorder()
	f.h.ChangePassword(rec, withUser(postJSON("/change-password", `{"password":"short"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at least 6 characters")
	assert.Equal(t, before, f.users.stored("alice"))

	rec = httptest.NewRecorder()
	f.h.ChangePassword(rec, withUser(postJSON("/change-password", `{"password":"longer-secret"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.NotEqual(t, before, f.users.stored("alice"))

	f.users.updateErr = errors.New("db down")
	rec = httptest.NewRecorder()
	f.h.ChangePassword(rec, withUser(postJSON("/change-password", `{"password":"another-secret"}`)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandlerLogin_LongPassword(t *testing.T) {
	f := newHandlerFixture(t)
	long := strings.Repeat("correct horse battery staple ", 4)
	body := `{"username":"alice","password":"` + long + `"}`

	rec := httptest.NewRecorder()
	f.h.Login(rec, postJSON("/login", body))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.NotNil(t, sessionCookie(t, rec))

	rec = httptest.NewRecorder()
	f.h.Login(rec, postJSON("/login", body))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	// same first 72 bytes, different tail
	rec = httptest.NewRecorder()
	f.h.Login(rec, postJSON("/login", `{"username":"alice","password":"`+long[:72]+`"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":false}`, rec.Body.String())
	assert.Nil(t, sessionCookie(t, rec))
}

func TestHandlerChangePassword_LongPassword(t *testing.T) {
	f := newHandlerFixture(t)
	f.h.Login(httptest.NewRecorder(), postJSON("/login", `{"username":"alice","password":"secret1"}`))

	long := strings.Repeat("x", 100)
	req := postJSON("/change-password", `{"password":"`+long+`"}`)
	rec := httptest.NewRecorder()
	f.h.ChangePassword(rec, req.WithContext(WithUsername(req.Context(), "alice")))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = httptest.NewRecorder()
	f.h.Login(rec, postJSON("/login", `{"username":"alice","password":"`+long+`"}`))
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
}
