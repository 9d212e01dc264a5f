package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifyCallsHandlersInRegistrationOrder(t *testing.T) {
	n := New()
	var order []int
	n.Register(ScheduleTaskKind, func(any) { order = append(order, 1) })
	n.Register(ScheduleTaskKind, func(any) { order = append(order, 2) })

	n.Notify(ScheduleTaskKind, ScheduleTask{WorkflowID: 1})

	assert.Equal(t, []int{1, 2}, order)
}

func TestNotifyIsSynchronous(t *testing.T) {
	n := New()
	done := false
	n.Register(TaskDoneKind, func(any) { done = true })
	n.Notify(TaskDoneKind, TaskDone{})
	assert.True(t, done, "handler must have run before Notify returns")
}

func TestUnregisterRemovesHandlers(t *testing.T) {
	n := New()
	called := false
	n.Register(CancelTaskKind, func(any) { called = true })
	n.Unregister(CancelTaskKind)
	n.Notify(CancelTaskKind, CancelTask{WorkflowID: 1})
	assert.False(t, called)
}
