package wizard

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, "/state/wizard", nil)

	_, ok := store.Get("case_draft")
	assert.False(t, ok)

	store.Set("case_draft", []byte(`{"version":1}`))

	got, ok := store.Get("case_draft")
	require.True(t, ok)
	assert.JSONEq(t, `{"version":1}`, string(got))

	store.Remove("case_draft")
	_, ok = store.Get("case_draft")
	assert.False(t, ok)

	// Removing twice is fine.
	store.Remove("case_draft")
}

func TestFileStoreWriteFailureIsSwallowed(t *testing.T) {
	store := NewFileStore(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/state", nil)

	// Best-effort contract: a failed write neither panics nor errors.
	store.Set("case_draft", []byte("{}"))
	_, ok := store.Get("case_draft")
	assert.False(t, ok)
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	fs := afero.NewMemMapFs()
	NewFileStore(fs, "/state/wizard", nil).Set("case_draft", []byte("{}"))

	_, ok := NewFileStore(fs, "/state/wizard", nil).Get("case_draft")
	assert.True(t, ok)
}
