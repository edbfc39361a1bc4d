package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huquq-center/insaf/internal/wizard"
	"github.com/huquq-center/insaf/model"
)

func runCommand(t *testing.T, portalHandler http.Handler, args ...string) (string, error) {
	t.Helper()
	srv := httptest.NewServer(portalHandler)
	t.Cleanup(srv.Close)

	t.Setenv("INSAF_PORTAL_BASE_URL", srv.URL)
	t.Setenv("INSAF_STATE_DIR", t.TempDir())

	root := NewRootCmd("test", "none")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "absent.yaml")))

	err := root.Execute()
	return out.String(), err
}

func TestTrackCommand(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/track", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(model.TrackResult{CaseNumber: "HR-2026-0001", Status: "under_review"})
	})

	out, err := runCommand(t, mux, "track", "+963911111111", "HR-2026-0001")
	require.NoError(t, err)
	assert.Contains(t, out, "HR-2026-0001: under_review")
}

func TestDraftSetAndStatus(t *testing.T) {
	srv := httptest.NewServer(http.NewServeMux())
	t.Cleanup(srv.Close)
	t.Setenv("INSAF_PORTAL_BASE_URL", srv.URL)

	stateDir := t.TempDir()
	t.Setenv("INSAF_STATE_DIR", stateDir)
	configArg := filepath.Join(t.TempDir(), "absent.yaml")

	run := func(args ...string) string {
		root := NewRootCmd("test", "none")
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs(append(args, "--config", configArg))
		require.NoError(t, root.Execute())
		return out.String()
	}

	run("draft", "set", wizard.SectionDetainee, "detainee_name=Ahmed Khaled")

	// A second invocation sees the persisted draft.
	out := run("draft", "status")
	assert.Contains(t, out, "step 1 of 6")
	assert.Contains(t, out, "Ahmed Khaled")
}

func TestDraftNextBlockedOnInvalidStep(t *testing.T) {
	out, err := runCommand(t, http.NewServeMux(), "draft", "next")
	require.NoError(t, err)
	assert.Contains(t, out, "current step is not complete")
	assert.Contains(t, out, "detainee_name")
}

func TestParseFields(t *testing.T) {
	partial, err := parseFields([]string{
		"detainee_name=Ahmed Khaled",
		"has_witnesses=true",
		"arrest_photo_ref=-",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ahmed Khaled", partial["detainee_name"])
	assert.Equal(t, true, partial["has_witnesses"])
	assert.Nil(t, partial["arrest_photo_ref"])

	_, err = parseFields([]string{"no-equals-sign"})
	assert.Error(t, err)
}

func TestSectionForDocumentField(t *testing.T) {
	assert.Equal(t, wizard.SectionDelegation, sectionForDocumentField("power_of_attorney_ref"))
	assert.Equal(t, wizard.SectionDocuments, sectionForDocumentField("medical_report_ref"))
}
