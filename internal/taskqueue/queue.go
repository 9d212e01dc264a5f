// Package taskqueue defines the interface the Scheduler Adapter consumes
// from an external distributed task queue: submit, non-blocking wait,
// cancel. The real queue (a "work queue" master distributing Tasks to
// remote Workers) is an external collaborator and out of scope; this
// package only specifies the boundary and ships one concrete stand-in,
// localqueue, so the engine is runnable without it.
package taskqueue

import "time"

// Task is one unit of work submitted to the queue.
type Task struct {
	ID      string
	Command string
	// Inputs and Outputs name local paths the queue implementation is
	// responsible for staging; localqueue runs the command in place and
	// ignores them, since it never leaves the local machine.
	Inputs  []string
	Outputs []string
}

// Result is what the queue reports back for a finished Task.
type Result struct {
	TaskID      string
	Returned    int
	SubmittedAt time.Time
	EndedAt     time.Time
	Output      string
}

// Stats is a structured snapshot of queue occupancy, folded into the
// daemon's periodic operational log line.
type Stats struct {
	TasksRunning  int
	TasksWaiting  int
	WorkersActive int
}

// Queue is the external task queue's consumed surface.
type Queue interface {
	// Submit hands t to the queue for execution and returns immediately.
	Submit(t Task) error

	// Wait performs one non-blocking poll ("wait(0)") for a finished
	// task, returning ok=false when nothing has finished yet.
	Wait() (result Result, ok bool)

	// Cancel requests the queue drop or kill the task with the given id.
	// Cancelling an unknown id is not an error.
	Cancel(taskID string) error

	// Stats reports current queue occupancy.
	Stats() Stats

	// Close releases any resources the queue implementation holds.
	Close() error
}

// Config is the external queue's configuration surface.
type Config struct {
	Project       string `yaml:"project" json:"project"`
	CatalogServer string `yaml:"catalog_server" json:"catalog_server"`
	CatalogPort   int    `yaml:"catalog_port" json:"catalog_port"`
	Port          int    `yaml:"port" json:"port"`
	Log           string `yaml:"log" json:"log"`
	Debug         bool   `yaml:"debug" json:"debug"`
}
