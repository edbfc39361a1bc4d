package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huquq-center/insaf/internal/transport"
	"github.com/huquq-center/insaf/model"
)

// portalFixture is a fake portal whose /data endpoint accepts only the
// current access token and whose /auth/refresh rotates it.
type portalFixture struct {
	mu           sync.Mutex
	accessToken  string
	refreshCalls atomic.Int32
	dataCalls    atomic.Int32
	refreshDelay time.Duration
	refreshFails bool
	alwaysReject bool
}

func (p *portalFixture) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		p.refreshCalls.Add(1)
		if p.refreshDelay > 0 {
			time.Sleep(p.refreshDelay)
		}
		if p.refreshFails {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		p.mu.Lock()
		p.accessToken = "rotated-" + p.accessToken
		token := p.accessToken
		p.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": token})
	})
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		p.dataCalls.Add(1)
		p.mu.Lock()
		want := "Bearer " + p.accessToken
		p.mu.Unlock()
		if p.alwaysReject || r.Header.Get("Authorization") != want {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	return mux
}

func newClientFixture(t *testing.T, portal *portalFixture) (*Client, *MemoryStore) {
	t.Helper()
	srv := httptest.NewServer(portal.handler())
	t.Cleanup(srv.Close)

	store := NewMemoryStore()
	tc := transport.New(srv.URL, 10*time.Second, nil, nil)
	session := NewSession(tc, store, "ar", nil)
	return NewClient(tc, session, store, "ar", nil, nil), store
}

func TestGetRefreshesOnceOn401(t *testing.T) {
	portal := &portalFixture{accessToken: "v1"}
	client, store := newClientFixture(t, portal)
	store.SetTokens(Tokens{Access: "stale", Refresh: "refresh-1"})

	var out struct {
		OK bool `json:"ok"`
	}
	err := client.Get(context.Background(), "/data", &out, CallOptions{})
	require.NoError(t, err)
	assert.True(t, out.OK)

	assert.Equal(t, int32(1), portal.refreshCalls.Load())
	assert.Equal(t, int32(2), portal.dataCalls.Load())
	assert.Equal(t, "rotated-v1", store.Tokens().Access)
}

func TestConcurrent401sShareOneRefresh(t *testing.T) {
	const n = 10

	// The refresh delay holds the first cycle open long enough for every
	// rejected request to join it instead of starting its own.
	portal := &portalFixture{accessToken: "v1", refreshDelay: 150 * time.Millisecond}
	client, store := newClientFixture(t, portal)
	store.SetTokens(Tokens{Access: "stale", Refresh: "refresh-1"})

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var out struct {
				OK bool `json:"ok"`
			}
			errs[i] = client.Get(context.Background(), "/data", &out, CallOptions{})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "request %d", i)
	}
	assert.Equal(t, int32(1), portal.refreshCalls.Load(), "exactly one refresh call")
}

func TestConcurrent401sAllRejectWhenRefreshFails(t *testing.T) {
	const n = 8

	portal := &portalFixture{accessToken: "v1", refreshFails: true, refreshDelay: 150 * time.Millisecond}
	client, store := newClientFixture(t, portal)
	store.SetTokens(Tokens{Access: "stale", Refresh: "expired"})

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = client.Get(context.Background(), "/data", nil, CallOptions{})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.Error(t, err, "request %d", i)
		apiErr, ok := err.(*model.APIError)
		require.True(t, ok, "request %d: %T", i, err)
		assert.Equal(t, model.ErrRefreshFailed, apiErr.Code, "request %d", i)
	}
	assert.Equal(t, int32(1), portal.refreshCalls.Load())

	// Teardown: nothing remains in the store after a failed refresh.
	assert.Equal(t, Tokens{}, store.Tokens())
}

func TestSecond401IsHardFailure(t *testing.T) {
	// The portal rejects every data request regardless of token, so the
	// retried request 401s again. That must surface, not loop.
	portal := &portalFixture{accessToken: "v1", alwaysReject: true}
	client, store := newClientFixture(t, portal)
	store.SetTokens(Tokens{Access: "v1", Refresh: "refresh-1"})

	err := client.Get(context.Background(), "/data", nil, CallOptions{})
	require.Error(t, err)
	assert.True(t, model.IsUnauthorized(err))

	assert.Equal(t, int32(1), portal.refreshCalls.Load(), "no second refresh cycle")
	assert.Equal(t, int32(2), portal.dataCalls.Load(), "original plus one retry")
}

func TestRetryOnUnauthorizedDisabled(t *testing.T) {
	portal := &portalFixture{accessToken: "v1"}
	client, store := newClientFixture(t, portal)
	store.SetTokens(Tokens{Access: "stale", Refresh: "refresh-1"})

	noRetry := false
	err := client.Get(context.Background(), "/data", nil, CallOptions{RetryOnUnauthorized: &noRetry})
	require.Error(t, err)
	assert.True(t, model.IsUnauthorized(err))
	assert.Zero(t, portal.refreshCalls.Load())
}

func TestNoTokenOmitsAuthorizationHeader(t *testing.T) {
	var sawAuth atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			sawAuth.Store(true)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := NewMemoryStore()
	tc := transport.New(srv.URL, 5*time.Second, nil, nil)
	session := NewSession(tc, store, "ar", nil)
	client := NewClient(tc, session, store, "ar", nil, nil)

	require.NoError(t, client.Get(context.Background(), "/public", nil, CallOptions{}))
	assert.False(t, sawAuth.Load())
}

func TestNon401ErrorsPropagateUnchanged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"CONFLICT","message":"duplicate case"}`))
	}))
	defer srv.Close()

	store := NewMemoryStore()
	store.SetTokens(Tokens{Access: "v1", Refresh: "r1"})
	tc := transport.New(srv.URL, 5*time.Second, nil, nil)
	client := NewClient(tc, NewSession(tc, store, "ar", nil), store, "ar", nil, nil)

	err := client.Post(context.Background(), "/cases", map[string]string{}, nil, CallOptions{})
	require.Error(t, err)

	apiErr, ok := err.(*model.APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, model.ErrConflict, apiErr.Code)
}

func TestUploadRetriesWithFullContent(t *testing.T) {
	var (
		mu       sync.Mutex
		attempts int
		lastBody string
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh"}`))
	})
	mux.HandleFunc("/cases/documents", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		buf := make([]byte, 32)
		n, _ := file.Read(buf)
		lastBody = string(buf[:n])
		w.WriteHeader(http.StatusCreated)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := NewMemoryStore()
	store.SetTokens(Tokens{Access: "stale", Refresh: "r1"})
	tc := transport.New(srv.URL, 5*time.Second, nil, nil)
	client := NewClient(tc, NewSession(tc, store, "ar", nil), store, "ar", nil, nil)

	err := client.Upload(context.Background(), "/cases/documents",
		map[string]string{"kind": "id_copy"},
		[]UploadFile{{Field: "file", FileName: "id.pdf", Content: []byte("%PDF-1.4")}},
		nil, CallOptions{})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, attempts)
	assert.Equal(t, "%PDF-1.4", lastBody)
}

func TestPerCallLangOverridesDefault(t *testing.T) {
	var gotLang atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLang.Store(r.Header.Get("Accept-Language"))
	}))
	defer srv.Close()

	store := NewMemoryStore()
	tc := transport.New(srv.URL, 5*time.Second, nil, nil)
	client := NewClient(tc, NewSession(tc, store, "ar", nil), store, "ar", nil, nil)

	require.NoError(t, client.Get(context.Background(), "/cases", nil, CallOptions{Lang: "en"}))
	assert.Equal(t, "en", gotLang.Load())

	require.NoError(t, client.Get(context.Background(), "/cases", nil, CallOptions{}))
	assert.Equal(t, "ar", gotLang.Load())
}
