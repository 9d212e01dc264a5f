package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "yerba.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddAndGetWorkflow(t *testing.T) {
	s := openTestStore(t)

	id, err := s.AddWorkflow("w", "", []byte(`[{"cmd":"x"}]`), 0, "Initialized")
	require.NoError(t, err)
	assert.NotZero(t, id)

	row, err := s.GetWorkflow(id)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "w", row.Name)
	assert.Equal(t, []byte(`[{"cmd":"x"}]`), row.JobsBlob)
}

func TestFindWorkflowIsDeduplicationKey(t *testing.T) {
	s := openTestStore(t)
	blob := []byte(`[{"cmd":"x"}]`)

	id, err := s.AddWorkflow("w", "", blob, 0, "Initialized")
	require.NoError(t, err)

	row, err := s.FindWorkflow(blob)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, id, row.ID)

	missing, err := s.FindWorkflow([]byte(`[{"cmd":"other"}]`))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpdateStatusStampsCompletion(t *testing.T) {
	s := openTestStore(t)
	id, err := s.AddWorkflow("w", "", []byte(`[]`), 0, "Running")
	require.NoError(t, err)

	require.NoError(t, s.UpdateStatus(id, "Completed", true))

	row, err := s.GetWorkflow(id)
	require.NoError(t, err)
	assert.Equal(t, "Completed", row.Status)
	assert.NotNil(t, row.Completed)
}

func TestStopWorkflowsFlipsRunningRows(t *testing.T) {
	s := openTestStore(t)
	id, err := s.AddWorkflow("w", "", []byte(`[]`), 0, "Running")
	require.NoError(t, err)

	require.NoError(t, s.StopWorkflows("Stopped"))

	wstatus, err := s.GetStatus(id)
	require.NoError(t, err)
	assert.Equal(t, "Stopped", wstatus)
}

func TestFetchListsAll(t *testing.T) {
	s := openTestStore(t)
	id1, err := s.AddWorkflow("a", "", []byte(`[1]`), 0, "Initialized")
	require.NoError(t, err)
	id2, err := s.AddWorkflow("b", "", []byte(`[2]`), 1, "Initialized")
	require.NoError(t, err)

	all, err := s.Fetch(nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := s.Fetch([]int64{id2})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, id2, filtered[0].ID)
	_ = id1
}
