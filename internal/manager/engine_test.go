package manager

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lngonzalezg/yerba/internal/event"
	"github.com/lngonzalezg/yerba/internal/job"
	"github.com/lngonzalezg/yerba/internal/status"
	"github.com/lngonzalezg/yerba/internal/store"
	"github.com/lngonzalezg/yerba/internal/workflow"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// autoComplete subscribes to ScheduleTask and immediately replies with a
// TaskDone carrying the given return code for every job in the batch, standing in for the
// Scheduler Adapter and an external queue in these tests.
func autoComplete(n *event.Notifier, returned int) {
	n.Register(event.ScheduleTaskKind, func(payload any) {
		evt := payload.(event.ScheduleTask)
		for _, j := range evt.Jobs {
			n.Notify(event.TaskDoneKind, event.TaskDone{
				WorkflowID: evt.WorkflowID,
				Job:        j,
				Info:       &job.Info{Returned: returned, SubmittedAt: time.Now(), EndedAt: time.Now()},
			})
		}
	})
}

func oneJobSpec(name string) workflow.Spec {
	return workflow.Spec{
		Name: name,
		Jobs: []job.Spec{{Command: "true"}},
	}
}

func TestSubmitRunsToCompletion(t *testing.T) {
	s := newTestStore(t)
	n := event.New()
	autoComplete(n, 0)
	eng := New(s, n)

	result, err := eng.Submit(oneJobSpec("wf"))
	require.NoError(t, err)
	require.Empty(t, result.Errors)
	assert.Equal(t, status.Completed, result.Status)

	persisted, err := eng.Status(result.ID)
	require.NoError(t, err)
	assert.Equal(t, status.Completed, persisted.Status)
}

func TestSubmitWithFailingJobFails(t *testing.T) {
	s := newTestStore(t)
	n := event.New()
	autoComplete(n, 1)
	eng := New(s, n)

	spec := oneJobSpec("wf")
	spec.Jobs[0].Options = &job.Options{Retries: 0}
	result, err := eng.Submit(spec)
	require.NoError(t, err)
	assert.Equal(t, status.Failed, result.Status)
}

func TestSubmitValidationErrorReturnsNoID(t *testing.T) {
	s := newTestStore(t)
	n := event.New()
	eng := New(s, n)

	result, err := eng.Submit(workflow.Spec{})
	require.NoError(t, err)
	assert.Equal(t, status.Error, result.Status)
	assert.NotEmpty(t, result.Errors)
	assert.Zero(t, result.ID)
}

func TestSubmitTwiceCoalescesIdenticalWorkflow(t *testing.T) {
	s := newTestStore(t)
	n := event.New()
	eng := New(s, n)

	spec := workflow.Spec{Name: "wf", Jobs: []job.Spec{{Command: "sleep 30"}}}
	first, err := eng.Submit(spec)
	require.NoError(t, err)

	second, err := eng.Submit(spec)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestSubmitDispatchedJobReportsScheduledNotRunning(t *testing.T) {
	s := newTestStore(t)
	n := event.New()
	eng := New(s, n)

	spec := workflow.Spec{Name: "wf", Jobs: []job.Spec{{Command: "sleep 30"}}}
	result, err := eng.Submit(spec)
	require.NoError(t, err)
	assert.Equal(t, status.Scheduled, result.Status)
}

func TestCancelUnknownWorkflowReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	n := event.New()
	eng := New(s, n)

	assert.Equal(t, status.NotFound, eng.Cancel(999))
}

func TestCancelLiveWorkflowFreezesIt(t *testing.T) {
	s := newTestStore(t)
	n := event.New()
	eng := New(s, n)

	spec := workflow.Spec{Name: "wf", Jobs: []job.Spec{{Command: "sleep 30"}}}
	result, err := eng.Submit(spec)
	require.NoError(t, err)

	st := eng.Cancel(result.ID)
	assert.Equal(t, status.Cancelled, st)

	persisted, err := eng.Status(result.ID)
	require.NoError(t, err)
	assert.Equal(t, status.Cancelled, persisted.Status)
}

func TestStatusUnknownIDReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	n := event.New()
	eng := New(s, n)

	result, err := eng.Status(12345)
	require.NoError(t, err)
	assert.Equal(t, status.NotFound, result.Status)
}

func TestWorkflowsListsAllAndFiltersByID(t *testing.T) {
	s := newTestStore(t)
	n := event.New()
	eng := New(s, n)

	a, err := eng.Submit(workflow.Spec{Name: "a", Jobs: []job.Spec{{Command: "sleep 30"}}})
	require.NoError(t, err)
	_, err = eng.Submit(workflow.Spec{Name: "b", Jobs: []job.Spec{{Command: "sleep 31"}}})
	require.NoError(t, err)

	all, err := eng.Workflows(nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := eng.Workflows([]int64{a.ID})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, a.ID, filtered[0].ID)
}

func TestCleanupStopsRunningRows(t *testing.T) {
	s := newTestStore(t)
	n := event.New()
	eng := New(s, n)

	result, err := eng.Submit(workflow.Spec{Name: "wf", Jobs: []job.Spec{{Command: "sleep 30"}}})
	require.NoError(t, err)
	require.NoError(t, s.UpdateStatus(result.ID, string(status.Running), false))

	require.NoError(t, eng.Cleanup())

	row, err := s.GetWorkflow(result.ID)
	require.NoError(t, err)
	assert.Equal(t, string(status.Stopped), row.Status)
}

func TestRestartRehydratesFromStoredBlob(t *testing.T) {
	s := newTestStore(t)
	n := event.New()
	autoComplete(n, 0)
	eng := New(s, n)

	result, err := eng.Submit(oneJobSpec("wf"))
	require.NoError(t, err)
	require.NoError(t, s.UpdateStatus(result.ID, string(status.Running), false))

	restarted, err := eng.Restart(result.ID)
	require.NoError(t, err)
	assert.Equal(t, result.ID, restarted.ID)
	assert.Equal(t, status.Completed, restarted.Status)
}

func TestRestartUnknownIDReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	n := event.New()
	eng := New(s, n)

	result, err := eng.Restart(999)
	require.NoError(t, err)
	assert.Equal(t, status.NotFound, result.Status)
}
