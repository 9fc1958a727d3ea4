package sheet

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jackknife/charsheet/internal/auth"
)

type memStore struct {
	mu      sync.Mutex
	docs    map[string][]byte
	saveErr error
	loadErr error
}

func newMemStore() *memStore { return &memStore{docs: make(map[string][]byte)} }

func (m *memStore) SaveSheet(_ context.Context, username string, doc []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.docs[username] = append([]byte(nil), doc...)
	return nil
}

func (m *memStore) LoadSheet(_ context.Context, username string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.docs[username], nil
}

func asUser(r *http.Request, username string) *http.Request {
	return r.WithContext(auth.WithUsername(r.Context(), username))
}

func save(h *Handler, username, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/save", strings.NewReader(body))
	h.Save(rec, asUser(req, username))
	return rec
}

func load(h *Handler, username string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.Load(rec, asUser(httptest.NewRequest(http.MethodGet, "/data", nil), username))
	return rec
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	store := newMemStore()
	h := NewHandler(store, 1<<20, zap.NewNop())

	docs := []string{
		`{}`,
		`{"header":{"name":"Vex","level":"3"},"stats":{"ws":"2","extra":"0"}}`,
		`{"customTrackers":[{"name":"Ammo","max":5,"current":3}],"lists":{"notes":[{"text":"a","width":"10px","height":""}]}}`,
		`[1,2,3]`,
		`"just a string"`,
		`{"nested":{"deep":[{"x":null,"y":true,"z":1.5e3}]}}`,
	}

	for _, doc := range docs {
		rec := save(h, "alice", `{"data":`+doc+`}`)
		require.Equal(t, http.StatusOK, rec.Code, doc)
		assert.JSONEq(t, `{"success":true}`, rec.Body.String())

		rec = load(h, "alice")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"data":`+doc+`}`, rec.Body.String())
	}
}

func TestSaveStoresExactBytes(t *testing.T) {
	store := newMemStore()
	h := NewHandler(store, 1<<20, zap.NewNop())

	doc := `{"b":1,  "a":[ 2 ,3]}`
	rec := save(h, "alice", `{"data":`+doc+`}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, doc, string(store.docs["alice"]))
}

func TestSaveIsPerUser(t *testing.T) {
	store := newMemStore()
	h := NewHandler(store, 1<<20, zap.NewNop())

	save(h, "alice", `{"data":{"who":"alice"}}`)
	save(h, "bob", `{"data":{"who":"bob"}}`)

	assert.JSONEq(t, `{"data":{"who":"alice"}}`, load(h, "alice").Body.String())
	assert.JSONEq(t, `{"data":{"who":"bob"}}`, load(h, "bob").Body.String())
}

func TestLoadNeverSaved(t *testing.T) {
	h := NewHandler(newMemStore(), 1<<20, zap.NewNop())

	rec := load(h, "fresh")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{}}`, rec.Body.String())
}

func TestLoadUnusableStoredValues(t *testing.T) {
	store := newMemStore()
	h := NewHandler(store, 1<<20, zap.NewNop())

	for _, stored := range []string{"null", "  ", "{not json", ""} {
		store.docs["alice"] = []byte(stored)
		rec := load(h, "alice")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"data":{}}`, rec.Body.String(), stored)
	}
}

func TestSaveBadRequests(t *testing.T) {
	store := newMemStore()
	h := NewHandler(store, 1<<20, zap.NewNop())

	for _, body := range []string{``, `{`, `{"other":1}`, `[]`} {
		rec := save(h, "alice", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Contains(t, rec.Body.String(), `"success":false`)
	}
	assert.Empty(t, store.docs)
}

func TestSaveTooLarge(t *testing.T) {
	store := newMemStore()
	h := NewHandler(store, 64, zap.NewNop())

	rec := save(h, "alice", `{"data":{"text":"`+strings.Repeat("x", 100)+`"}}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, store.docs)
}

func TestStorageFailures(t *testing.T) {
	store := newMemStore()
	h := NewHandler(store, 1<<20, zap.NewNop())

	store.saveErr = errors.New("db down")
	rec := save(h, "alice", `{"data":{}}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false}`, rec.Body.String())

	store.loadErr = errors.New("db down")
	rec = load(h, "alice")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false}`, rec.Body.String())
}
