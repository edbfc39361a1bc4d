package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huquq-center/insaf/model"
)

func TestDoDecodesResponse(t *testing.T) {
	var gotLang, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLang = r.Header.Get("Accept-Language")
		gotAccept = r.Header.Get("Accept")
		assert.Equal(t, "5", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"active"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second, nil, nil)

	var out struct {
		Status string `json:"status"`
	}
	err := c.Do(context.Background(), http.MethodGet, "/cases/1", nil, &out, Options{
		Lang:  "ar",
		Query: url.Values{"page": {"5"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "active", out.Status)
	assert.Equal(t, "ar", gotLang)
	assert.Equal(t, "application/json", gotAccept)
}

func TestDoSendsJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Correlation-Id"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second, nil, nil)
	err := c.Do(context.Background(), http.MethodPost, "/cases", map[string]string{"a": "b"}, nil, Options{})
	require.NoError(t, err)
}

func TestDoNon2xxReturnsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{
			"code": "VALIDATION_ERROR",
			"message": "One or more fields are invalid",
			"details": [{"field": "detainee_id", "message": "must be 9 digits"}]
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second, nil, nil)
	err := c.Do(context.Background(), http.MethodPost, "/cases", map[string]string{}, nil, Options{})
	require.Error(t, err)

	apiErr, ok := err.(*model.APIError)
	require.True(t, ok, "expected *model.APIError, got %T", err)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, model.ErrValidationError, apiErr.Code)
	require.Len(t, apiErr.Details, 1)
	assert.Equal(t, "detainee_id", apiErr.Details[0].Field)
	assert.NotNil(t, apiErr.Payload)
}

func TestDoNonJSONErrorBodyTolerated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second, nil, nil)
	err := c.Do(context.Background(), http.MethodGet, "/cases", nil, nil, Options{})
	require.Error(t, err)

	apiErr, ok := err.(*model.APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Nil(t, apiErr.Payload)
}

func TestDoContextTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(srv.URL, 0, nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.Do(ctx, http.MethodGet, "/cases", nil, nil, Options{})
	require.Error(t, err)

	apiErr, ok := err.(*model.APIError)
	require.True(t, ok)
	assert.Equal(t, model.ErrPortalTimeout, apiErr.Code)
}

func TestDoConnectionRefused(t *testing.T) {
	c := New("http://127.0.0.1:1", time.Second, nil, nil)
	err := c.Do(context.Background(), http.MethodGet, "/cases", nil, nil, Options{})
	require.Error(t, err)

	apiErr, ok := err.(*model.APIError)
	require.True(t, ok)
	assert.Equal(t, model.ErrPortalUnavailable, apiErr.Code)
}

func TestDoMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "power_of_attorney", r.FormValue("kind"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "wakala.pdf", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"doc-1"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second, nil, nil)

	var out struct {
		ID string `json:"id"`
	}
	err := c.DoMultipart(context.Background(), "/cases/documents", MultipartForm{
		Fields: map[string]string{"kind": "power_of_attorney"},
		Files: []FilePart{
			{Field: "file", FileName: "wakala.pdf", Content: strings.NewReader("%PDF-1.4")},
		},
	}, &out, Options{})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", out.ID)
}

func TestCallerHeadersOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second, nil, nil)
	err := c.Do(context.Background(), http.MethodGet, "/profile", nil, nil, Options{
		Headers: map[string]string{"Authorization": "Bearer abc"},
	})
	require.NoError(t, err)
}
