package exchttp_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ashleyglee/exceptional/pkg/exceptional"
	"github.com/ashleyglee/exceptional/pkg/exchttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureStore records everything handed to it.
type captureStore struct {
	mu      sync.Mutex
	records []*exceptional.Error
	err     error
}

func (s *captureStore) Log(_ context.Context, e *exceptional.Error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, e)
	return s.err
}

func (s *captureStore) last(t *testing.T) *exceptional.Error {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.records, "expected a captured record")
	return s.records[len(s.records)-1]
}

func newCaptured(store *captureStore, filters *exceptional.FilterRegistry) http.Handler {
	mw := exchttp.Capture(exchttp.CaptureOptions{
		Settings: &exceptional.Settings{DefaultApplicationName: "sample", MachineName: "test01"},
		Filters:  filters,
		Store:    store,
	})
	return mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusNoContent)
		case "/late-panic":
			w.WriteHeader(http.StatusBadGateway)
			panic("write failed halfway")
		case "/panic-error":
			panic(errors.New("backend exploded"))
		default:
			_ = r.ParseForm()
			panic("kaboom")
		}
	}))
}

func TestCapture_PassthroughWithoutPanic(t *testing.T) {
	store := &captureStore{}
	h := newCaptured(store, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/ok", nil))

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, store.records)
}

func TestCapture_RecordsPanicWithRequestContext(t *testing.T) {
	store := &captureStore{}
	reg := exceptional.NewFilterRegistry()
	reg.SetFormFilter("password", "[redacted]")
	h := newCaptured(store, reg)

	body := strings.NewReader("password=secret123&user=alice")
	r := httptest.NewRequest("POST", "/login?attempt=2", body)
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, r)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	e := store.last(t)
	assert.Equal(t, "sample", e.ApplicationName)
	assert.Equal(t, "test01", e.MachineName)
	assert.Equal(t, "panic: kaboom", e.Message)
	require.NotNil(t, e.ErrorHash)
	assert.Contains(t, e.Detail, "goroutine", "panic detail carries the stack")

	assert.Equal(t, "2", e.QueryString.Get("attempt"))
	assert.Equal(t, "[redacted]", e.Form.Get("password"))
	assert.Equal(t, "alice", e.Form.Get("user"))
	assert.Equal(t, "POST", e.HTTPMethod())
	assert.Equal(t, "/login", e.URL())
}

func TestCapture_PanicBeforeWriteHasNoStatus(t *testing.T) {
	store := &captureStore{}
	h := newCaptured(store, nil)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/panic-error", nil))

	e := store.last(t)
	assert.Nil(t, e.StatusCode, "nothing was written before the panic")
}

func TestCapture_PanicAfterWriteKeepsCapturedStatus(t *testing.T) {
	store := &captureStore{}
	h := newCaptured(store, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/late-panic", nil))

	// The already-written status stands; no second WriteHeader.
	assert.Equal(t, http.StatusBadGateway, rr.Code)

	e := store.last(t)
	require.NotNil(t, e.StatusCode)
	assert.Equal(t, http.StatusBadGateway, *e.StatusCode)
}

func TestCapture_PanicValueErrorChain(t *testing.T) {
	store := &captureStore{}
	h := newCaptured(store, nil)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/panic-error", nil))

	e := store.last(t)
	assert.Equal(t, "panic: backend exploded", e.Message)
	assert.Contains(t, e.Detail, "caused by: backend exploded")
}

func TestCapture_StoreFailureStillResponds(t *testing.T) {
	store := &captureStore{err: errors.New("store down")}
	h := newCaptured(store, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/panic-error", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
