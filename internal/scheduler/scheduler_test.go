package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lngonzalezg/yerba/internal/event"
	"github.com/lngonzalezg/yerba/internal/job"
	"github.com/lngonzalezg/yerba/internal/taskqueue"
)

type fakeQueue struct {
	mu        sync.Mutex
	submitted []taskqueue.Task
	cancelled []string
	pending   []taskqueue.Result
}

func (f *fakeQueue) Submit(t taskqueue.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, t)
	return nil
}

func (f *fakeQueue) Wait() (taskqueue.Result, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		return taskqueue.Result{}, false
	}
	r := f.pending[0]
	f.pending = f.pending[1:]
	return r, true
}

func (f *fakeQueue) Cancel(taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, taskID)
	return nil
}

func (f *fakeQueue) Stats() taskqueue.Stats { return taskqueue.Stats{} }
func (f *fakeQueue) Close() error           { return nil }

func (f *fakeQueue) finish(taskID string, returned int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, taskqueue.Result{TaskID: taskID, Returned: returned, SubmittedAt: time.Now(), EndedAt: time.Now()})
}

func TestScheduleTaskSubmitsReadyJobs(t *testing.T) {
	q := &fakeQueue{}
	n := event.New()
	NewAdapter(q, n)

	j := job.New("/bin/true")
	n.Notify(event.ScheduleTaskKind, event.ScheduleTask{WorkflowID: 1, Jobs: []*job.Job{j}})

	require.Len(t, q.submitted, 1)
}

func TestScheduleTaskCoalescesEqualJobs(t *testing.T) {
	q := &fakeQueue{}
	n := event.New()
	NewAdapter(q, n)

	jA := job.New("/bin/true")
	jB := job.New("/bin/true")
	n.Notify(event.ScheduleTaskKind, event.ScheduleTask{WorkflowID: 1, Jobs: []*job.Job{jA}})
	n.Notify(event.ScheduleTaskKind, event.ScheduleTask{WorkflowID: 2, Jobs: []*job.Job{jB}})

	assert.Len(t, q.submitted, 1, "structurally equal jobs coalesce onto one task")
}

func TestDrainNotifiesAllDependentWorkflows(t *testing.T) {
	q := &fakeQueue{}
	n := event.New()
	a := NewAdapter(q, n)

	var done []event.TaskDone
	n.Register(event.TaskDoneKind, func(p any) { done = append(done, p.(event.TaskDone)) })

	jA := job.New("/bin/true")
	jB := job.New("/bin/true")
	n.Notify(event.ScheduleTaskKind, event.ScheduleTask{WorkflowID: 1, Jobs: []*job.Job{jA}})
	n.Notify(event.ScheduleTaskKind, event.ScheduleTask{WorkflowID: 2, Jobs: []*job.Job{jB}})
	require.Len(t, q.submitted, 1)

	q.finish(q.submitted[0].ID, 0)
	a.Update()

	require.Len(t, done, 2)
	seen := map[int64]bool{}
	for _, d := range done {
		seen[d.WorkflowID] = true
	}
	assert.True(t, seen[1] && seen[2])
}

func TestCancelTaskDropsOnlyRequestingWorkflow(t *testing.T) {
	q := &fakeQueue{}
	n := event.New()
	NewAdapter(q, n)

	jA := job.New("/bin/true")
	jB := job.New("/bin/true")
	n.Notify(event.ScheduleTaskKind, event.ScheduleTask{WorkflowID: 1, Jobs: []*job.Job{jA}})
	n.Notify(event.ScheduleTaskKind, event.ScheduleTask{WorkflowID: 2, Jobs: []*job.Job{jB}})
	require.Len(t, q.submitted, 1)

	n.Notify(event.CancelTaskKind, event.CancelTask{WorkflowID: 1})
	assert.Empty(t, q.cancelled, "task still depended on by workflow 2")

	n.Notify(event.CancelTaskKind, event.CancelTask{WorkflowID: 2})
	assert.Len(t, q.cancelled, 1, "last dependent cancelled, task queue-cancelled")
}
