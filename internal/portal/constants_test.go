package portal

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

	"github.com/huquq-center/insaf/internal/auth"
	"github.com/huquq-center/insaf/internal/openapi"
	"github.com/huquq-center/insaf/internal/transport"
)

func newConstantsFixture(t *testing.T, handler http.Handler) (*ConstantsCache, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	store := auth.NewMemoryStore()
	tc := transport.New(srv.URL, 5*time.Second, nil, nil)
	api := auth.NewClient(tc, auth.NewSession(tc, store, "ar", nil), store, "ar", nil, nil)

	idx, err := openapi.NewIndex()
	require.NoError(t, err)
	return NewConstantsCache(api, idx, nil), &calls
}

func localizedConstants() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"locale":       r.Header.Get("Accept-Language"),
			"governorates": []string{"damascus", "aleppo"},
		})
	})
}

func TestEnsureLoadedFetchesOncePerLocale(t *testing.T) {
	cache, calls := newConstantsFixture(t, localizedConstants())

	first, err := cache.EnsureLoaded(context.Background(), "ar")
	require.NoError(t, err)
	assert.Equal(t, "ar", first["locale"])

	// Second call for the same locale is served from the cache.
	_, err = cache.EnsureLoaded(context.Background(), "ar")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	_, locale, ok := cache.Loaded()
	require.True(t, ok)
	assert.Equal(t, "ar", locale)
}

func TestEnsureLoadedRefetchesOnLocaleSwitch(t *testing.T) {
	cache, calls := newConstantsFixture(t, localizedConstants())

	_, err := cache.EnsureLoaded(context.Background(), "ar")
	require.NoError(t, err)

	english, err := cache.EnsureLoaded(context.Background(), "en")
	require.NoError(t, err)
	assert.Equal(t, "en", english["locale"])
	assert.Equal(t, int32(2), calls.Load())
}

func TestEnsureLoadedConcurrentCallsCollapse(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		localizedConstants().ServeHTTP(w, r)
	})
	cache, calls := newConstantsFixture(t, slow)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.EnsureLoaded(context.Background(), "ar")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestEnsureLoadedFailureIsNotCached(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		localizedConstants().ServeHTTP(w, r)
	})
	cache, _ := newConstantsFixture(t, handler)

	_, err := cache.EnsureLoaded(context.Background(), "ar")
	require.Error(t, err)
	assert.Error(t, cache.LastError())
	_, _, ok := cache.Loaded()
	assert.False(t, ok)

	fail.Store(false)
	data, err := cache.EnsureLoaded(context.Background(), "ar")
	require.NoError(t, err)
	assert.NotNil(t, data)
	assert.NoError(t, cache.LastError())
}

func TestInvalidateForcesRefetch(t *testing.T) {
	cache, calls := newConstantsFixture(t, localizedConstants())

	_, err := cache.EnsureLoaded(context.Background(), "ar")
	require.NoError(t, err)

	cache.Invalidate()
	_, err = cache.EnsureLoaded(context.Background(), "ar")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}
