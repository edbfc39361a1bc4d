package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/huquq-center/insaf/model"
)

// MockPortal is an in-memory stand-in for the portal backend. It issues
// and rotates tokens, accepts case submissions under idempotency keys,
// and serves the public tracking flow.
type MockPortal struct {
	t *testing.T

	mu           sync.Mutex
	server       *httptest.Server
	email        string
	password     string
	profile      model.Profile
	accessToken  string
	refreshToken string
	tokenSeq     int
	refreshDown  bool

	refreshCalls int
	cases        []submittedCase
	docSeq       int
}

type submittedCase struct {
	id             string
	number         string
	payload        map[string]any
	idempotencyKey string
}

// NewMockPortal starts a mock portal with one known account.
func NewMockPortal(t *testing.T) *MockPortal {
	p := &MockPortal{
		t:        t,
		email:    "layla@example.org",
		password: "hunter2",
		profile:  model.Profile{ID: "u1", Name: "Layla Haddad", Email: "layla@example.org"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", p.handleLogin)
	mux.HandleFunc("/auth/refresh", p.handleRefresh)
	mux.HandleFunc("/auth/logout", p.handleLogout)
	mux.HandleFunc("/cases", p.handleCases)
	mux.HandleFunc("/cases/documents", p.handleUpload)
	mux.HandleFunc("/track", p.handleTrack)

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

// URL returns the mock portal's base URL.
func (p *MockPortal) URL() string { return p.server.URL }

// ExpireAccess invalidates the current access token, as the portal does
// when a token's lifetime runs out.
func (p *MockPortal) ExpireAccess() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accessToken = ""
}

// RevokeRefresh makes all future refresh attempts fail, as after a
// server-side session revocation.
func (p *MockPortal) RevokeRefresh() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshDown = true
}

// RefreshCalls reports how many refresh requests the portal served.
func (p *MockPortal) RefreshCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refreshCalls
}

// Cases returns the accepted submissions.
func (p *MockPortal) Cases() []map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]map[string]any, 0, len(p.cases))
	for _, c := range p.cases {
		out = append(out, c.payload)
	}
	return out
}

func (p *MockPortal) issueTokens() (access, refresh string) {
	p.tokenSeq++
	p.accessToken = fmt.Sprintf("access-%d", p.tokenSeq)
	p.refreshToken = fmt.Sprintf("refresh-%d", p.tokenSeq)
	return p.accessToken, p.refreshToken
}

func (p *MockPortal) authorized(r *http.Request) bool {
	return p.accessToken != "" && r.Header.Get("Authorization") == "Bearer "+p.accessToken
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (p *MockPortal) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)

	p.mu.Lock()
	defer p.mu.Unlock()
	if body["email"] != p.email || body["password"] != p.password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"code": "UNAUTHORIZED", "message": "invalid credentials",
		})
		return
	}

	access, refresh := p.issueTokens()
	writeJSON(w, http.StatusOK, model.LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		Profile:      p.profile,
	})
}

func (p *MockPortal) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshCalls++

	if p.refreshDown || body["refresh_token"] != p.refreshToken {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"code": "UNAUTHORIZED", "message": "refresh token rejected",
		})
		return
	}

	access, refresh := p.issueTokens()
	writeJSON(w, http.StatusOK, model.RefreshResult{AccessToken: access, RefreshToken: refresh})
}

func (p *MockPortal) handleLogout(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accessToken = ""
	p.refreshToken = ""
	w.WriteHeader(http.StatusNoContent)
}

func (p *MockPortal) handleCases(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"code": "UNAUTHORIZED"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		summaries := make([]model.CaseSummary, 0, len(p.cases))
		for _, c := range p.cases {
			name, _ := c.payload["detainee_name"].(string)
			summaries = append(summaries, model.CaseSummary{
				ID: c.id, CaseNumber: c.number, DetaineeName: name, Status: "submitted",
			})
		}
		writeJSON(w, http.StatusOK, summaries)

	case http.MethodPost:
		key := r.Header.Get("X-Idempotency-Key")
		for _, c := range p.cases {
			if key != "" && c.idempotencyKey == key {
				writeJSON(w, http.StatusCreated, model.SubmissionResult{CaseID: c.id, CaseNumber: c.number})
				return
			}
		}

		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		c := submittedCase{
			id:             fmt.Sprintf("c-%d", len(p.cases)+1),
			number:         fmt.Sprintf("HR-2026-%04d", len(p.cases)+1),
			payload:        payload,
			idempotencyKey: key,
		}
		p.cases = append(p.cases, c)
		writeJSON(w, http.StatusCreated, model.SubmissionResult{CaseID: c.id, CaseNumber: c.number})
	}
}

func (p *MockPortal) handleUpload(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"code": "UNAUTHORIZED"})
		return
	}
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"code": "BAD_REQUEST"})
		return
	}
	_, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"code": "BAD_REQUEST", "message": "file part missing"})
		return
	}

	p.docSeq++
	writeJSON(w, http.StatusCreated, model.Document{
		ID:       fmt.Sprintf("doc-%d", p.docSeq),
		Kind:     r.FormValue("kind"),
		FileName: header.Filename,
	})
}

func (p *MockPortal) handleTrack(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.cases {
		phone, _ := c.payload["client_phone"].(string)
		if strings.EqualFold(c.number, body["case_number"]) && phone == body["phone"] {
			writeJSON(w, http.StatusOK, model.TrackResult{CaseNumber: c.number, Status: "submitted"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"code": "NOT_FOUND", "message": "case not found"})
}
