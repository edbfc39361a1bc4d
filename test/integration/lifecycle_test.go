package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huquq-center/insaf/internal/auth"
	portalpkg "github.com/huquq-center/insaf/internal/portal"
	"github.com/huquq-center/insaf/internal/wizard"
)

func TestFullSubmissionLifecycle(t *testing.T) {
	h := NewHarness(t)
	h.Login()

	// Upload the delegation documents, record their references, then fill
	// the rest of the draft.
	poa, err := h.Service.UploadDocument(t.Context(), "power_of_attorney", "poa.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	idCopy, err := h.Service.UploadDocument(t.Context(), "client_id_copy", "id.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)

	h.FillDraft()
	_, err = h.Engine.UpdateSection(wizard.SectionDelegation, map[string]any{
		"power_of_attorney_ref": poa.ID,
		"client_id_copy_ref":    idCopy.ID,
	})
	require.NoError(t, err)

	res, err := h.Service.SubmitCase(t.Context(), h.Engine)
	require.NoError(t, err)
	assert.Equal(t, "HR-2026-0001", res.CaseNumber)

	// Submission resets the wizard.
	assert.Equal(t, 1, h.Engine.CurrentStep())
	assert.Empty(t, h.Engine.CompletedSteps())

	// The portal received the flattened draft, with the detainee's and the
	// client's addresses intact side by side.
	cases := h.Portal.Cases()
	require.Len(t, cases, 1)
	assert.Equal(t, "Ahmed Khaled", cases[0]["detainee_name"])
	assert.Equal(t, poa.ID, cases[0]["power_of_attorney_ref"])
	assert.Equal(t, "damascus", cases[0]["governorate"])
	assert.Equal(t, "homs", cases[0]["client_governorate"])

	// The case shows up on the lawyer's list.
	list, err := h.Service.ListCases(t.Context(), portalpkg.CaseFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "HR-2026-0001", list[0].CaseNumber)
}

func TestDraftSurvivesRestart(t *testing.T) {
	h := NewHarness(t)
	h.Login()
	h.FillDraft()

	h.Restart()

	// Session and wizard position come back from disk.
	assert.NotEmpty(t, h.Store.Tokens().Access)
	assert.Equal(t, wizard.StepCount, h.Engine.CurrentStep())
	assert.Equal(t, "Ahmed Khaled", h.Engine.Draft()[wizard.SectionDetainee]["detainee_name"])
}

func TestPublicTrackingAfterSubmission(t *testing.T) {
	h := NewHarness(t)
	h.Login()
	h.FillDraft()
	_, err := h.Service.SubmitCase(t.Context(), h.Engine)
	require.NoError(t, err)

	// Tracking works without any session at all.
	require.NoError(t, h.Session.Logout(t.Context()))

	res, err := h.Service.TrackCase(t.Context(), "+963911111111", "HR-2026-0001")
	require.NoError(t, err)
	assert.Equal(t, "submitted", res.Status)

	_, err = h.Service.TrackCase(t.Context(), "+963900000000", "HR-2026-0001")
	require.Error(t, err, "wrong phone is rejected")
}

func TestLogoutClearsEverything(t *testing.T) {
	h := NewHarness(t)
	h.Login()
	require.NotEmpty(t, h.Store.Tokens().Access)

	require.NoError(t, h.Session.Logout(t.Context()))
	assert.Equal(t, auth.Tokens{}, h.Store.Tokens())

	h.Restart()
	assert.Equal(t, auth.Tokens{}, h.Store.Tokens())
}
