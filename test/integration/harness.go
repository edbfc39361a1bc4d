// Package integration exercises the fully wired client against a mock
// portal: session lifecycle, wizard-to-submission flow, and refresh
// behavior under token expiry.
package integration

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/huquq-center/insaf/internal/auth"
	"github.com/huquq-center/insaf/internal/openapi"
	portalpkg "github.com/huquq-center/insaf/internal/portal"
	"github.com/huquq-center/insaf/internal/transport"
	"github.com/huquq-center/insaf/internal/wizard"
)

// Harness wires every client layer over an in-memory filesystem and a
// mock portal, the way the binary wires them over the real ones.
type Harness struct {
	t  *testing.T
	fs afero.Fs

	Portal  *MockPortal
	Store   *auth.FileStore
	Session *auth.Session
	API     *auth.Client
	Engine  *wizard.Engine
	Service *portalpkg.Service
}

// NewHarness builds a fresh client stack against a new mock portal.
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	h := &Harness{
		t:      t,
		fs:     afero.NewMemMapFs(),
		Portal: NewMockPortal(t),
	}
	h.wire()
	return h
}

func (h *Harness) wire() {
	h.Store = auth.NewFileStore(h.fs, "/state", nil)

	tc := transport.New(h.Portal.URL(), 5*time.Second, nil, nil)
	h.Session = auth.NewSession(tc, h.Store, "ar", nil)
	h.API = auth.NewClient(tc, h.Session, h.Store, "ar", nil, nil)

	idx, err := openapi.NewIndex()
	require.NoError(h.t, err)

	h.Engine = wizard.NewEngine(wizard.NewFileStore(h.fs, "/state/wizard", nil), nil, nil)
	h.Service = portalpkg.NewService(h.API, idx, nil, nil)
}

// Restart rebuilds every component over the same filesystem, emulating a
// process restart that must restore session and draft from disk.
func (h *Harness) Restart() {
	h.wire()
}

// Login authenticates with the mock portal's known account.
func (h *Harness) Login() {
	h.t.Helper()
	_, err := h.Session.Login(h.t.Context(), "layla@example.org", "hunter2")
	require.NoError(h.t, err)
}

// FillDraft drives the wizard through all six steps with a complete,
// valid case.
func (h *Harness) FillDraft() {
	h.t.Helper()

	set := func(section string, data map[string]any) {
		h.t.Helper()
		_, err := h.Engine.UpdateSection(section, data)
		require.NoError(h.t, err)
	}

	set(wizard.SectionDetainee, map[string]any{
		"detainee_name":          "Ahmed Khaled",
		"detainee_id":            "123456789",
		"detainee_date_of_birth": "2000-06-01",
		"health_status":          "stable",
		"marital_status":         "single",
		"governorate":            "damascus",
		"city":                   "damascus-city",
		"district":               "midan",
	})
	set(wizard.SectionDetention, map[string]any{
		"detention_date":      "2025-11-02",
		"detention_place":     "checkpoint",
		"detaining_authority": "unknown",
	})
	set(wizard.SectionClient, map[string]any{
		"client_name":        "Samira Khaled",
		"client_id":          "987654321",
		"client_phone":       "+963911111111",
		"client_relation":    "sister",
		"client_governorate": "homs",
		"client_city":        "homs-city",
	})
	set(wizard.SectionDelegation, map[string]any{
		"power_of_attorney_ref": "doc-poa",
		"client_id_copy_ref":    "doc-idcopy",
	})
	set(wizard.SectionConsent, map[string]any{"consent_given": true})

	for h.Engine.CurrentStep() < wizard.StepCount {
		require.NoError(h.t, h.Engine.GoNext())
	}
}
