// Package event implements the synchronous in-process publish/subscribe
// registry decoupling the Scheduler Adapter from the Workflow Manager.
package event

import (
	"sync"

	"github.com/lngonzalezg/yerba/internal/job"
)

// Kind names one of the three events the engine exchanges.
type Kind int

const (
	ScheduleTaskKind Kind = iota
	CancelTaskKind
	TaskDoneKind
)

// ScheduleTask carries a batch of newly-ready jobs for a workflow.
type ScheduleTask struct {
	WorkflowID int64
	Jobs       []*job.Job
	Priority   int
}

// CancelTask names a workflow whose dependent tasks should be dropped or
// cancelled queue-side.
type CancelTask struct {
	WorkflowID int64
}

// TaskDone carries one job's completion record back to a workflow.
type TaskDone struct {
	WorkflowID int64
	Job        *job.Job
	Info       *job.Info
}

// Handler receives a Kind-tagged payload; the concrete type matches Kind
// (ScheduleTask, CancelTask, or TaskDone).
type Handler func(payload any)

// Notifier is a same-thread, registration-ordered callback registry.
// Notify invokes every registered handler for the event's kind on the
// calling goroutine, so the daemon loop's single-threaded ordering
// guarantee holds by construction.
type Notifier struct {
	mu       sync.Mutex
	handlers map[Kind][]Handler
}

// New returns an empty Notifier.
func New() *Notifier {
	return &Notifier{handlers: make(map[Kind][]Handler)}
}

// Register adds h to the handlers invoked for kind, in call order.
func (n *Notifier) Register(kind Kind, h Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[kind] = append(n.handlers[kind], h)
}

// Unregister drops every handler registered for kind. Each kind has
// exactly one subscriber in practice, registered once at startup, so
// this clears the whole slot rather than matching individual handlers.
func (n *Notifier) Unregister(kind Kind) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.handlers, kind)
}

// Notify invokes every handler registered for kind with payload, in
// registration order, on the calling goroutine.
func (n *Notifier) Notify(kind Kind, payload any) {
	n.mu.Lock()
	handlers := append([]Handler(nil), n.handlers[kind]...)
	n.mu.Unlock()

	for _, h := range handlers {
		h(payload)
	}
}
