// Package daemon implements the Daemon Loop: a single-threaded
// cooperative loop multiplexing a length-delimited JSON socket against
// periodic scheduler polling.
package daemon

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/lngonzalezg/yerba/internal/lifecycle"
	"github.com/lngonzalezg/yerba/internal/manager"
	"github.com/lngonzalezg/yerba/internal/router"
	"github.com/lngonzalezg/yerba/internal/scheduler"
	"github.com/lngonzalezg/yerba/pkg/logger"
)

const (
	pollTimeout    = 10 * time.Millisecond
	tailSleep      = 5 * time.Millisecond
	snapshotPeriod = 300 * time.Second
)

// Daemon owns the request/reply socket and drives the cooperative event
// loop described in the concurrency model: the socket, the Engine, and
// the Scheduler Adapter's task map are all touched only from this loop's
// goroutine.
type Daemon struct {
	socketPath string
	listener   *net.UnixListener
	router     *router.Router
	lifecycle  *lifecycle.Manager
	adapter    *scheduler.Adapter
	log        *logger.Logger

	shutdownRequested bool
}

// New wires a Daemon around the already-constructed Engine, Scheduler
// Adapter, and Service Lifecycle.
func New(socketPath string, eng *manager.Engine, adapter *scheduler.Adapter, lc *lifecycle.Manager) *Daemon {
	d := &Daemon{
		socketPath: socketPath,
		router:     router.New(),
		lifecycle:  lc,
		adapter:    adapter,
		log:        logger.WithField("component", "daemon"),
	}
	registerRoutes(d.router, eng, d.requestShutdown)
	return d
}

func (d *Daemon) requestShutdown() { d.shutdownRequested = true }

// Run binds the socket, starts the Service Lifecycle, and runs the
// cooperative loop until ctx is cancelled or a shutdown request arrives.
func (d *Daemon) Run(ctx context.Context) error {
	_ = os.Remove(d.socketPath)
	addr, err := net.ResolveUnixAddr("unix", d.socketPath)
	if err != nil {
		return err
	}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		return err
	}
	defer ln.Close()
	defer os.Remove(d.socketPath)
	d.listener = ln

	if err := os.Chmod(d.socketPath, 0o600); err != nil {
		d.log.Warn("could not restrict socket permissions", "error", err.Error())
	}

	if err := d.lifecycle.Start(); err != nil {
		return err
	}
	defer d.lifecycle.Stop()

	lastSnapshot := time.Now()

	for {
		if ctx.Err() != nil || d.shutdownRequested {
			return nil
		}

		if err := ln.SetDeadline(time.Now().Add(pollTimeout)); err != nil {
			return err
		}
		conn, err := ln.Accept()
		switch {
		case err == nil:
			d.handleConnection(conn)
		case isTimeout(err):
			d.lifecycle.Update()
		default:
			if ctx.Err() != nil {
				return nil
			}
			d.log.Warn("accept failed", "error", err.Error())
		}

		if time.Since(lastSnapshot) >= snapshotPeriod {
			d.logSnapshot()
			lastSnapshot = time.Now()
		}

		time.Sleep(tailSleep)
	}
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

func (d *Daemon) handleConnection(conn net.Conn) {
	defer conn.Close()
	connID := uuid.NewString()

	payload, err := readFrame(conn)
	if err != nil {
		d.log.Warn("failed to read request frame", "conn_id", connID, "error", err.Error())
		return
	}

	var env router.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		d.respond(conn, connID, map[string]string{"status": "Error"})
		return
	}

	resp, err := d.router.Dispatch(env)
	if err != nil {
		d.respond(conn, connID, map[string]string{"status": "Error"})
		return
	}
	if resp == nil {
		// shutdown and similar requests expect no response.
		return
	}
	d.respond(conn, connID, resp)
}

func (d *Daemon) respond(conn net.Conn, connID string, resp any) {
	body, err := json.Marshal(resp)
	if err != nil {
		d.log.Warn("failed to encode response", "conn_id", connID, "error", err.Error())
		return
	}
	if err := conn.SetWriteDeadline(time.Now().Add(pollTimeout)); err != nil {
		d.log.Warn("failed to set write deadline", "conn_id", connID, "error", err.Error())
		return
	}
	if err := writeFrame(conn, body); err != nil {
		d.log.Warn("response send would block, dropped", "conn_id", connID, "error", err.Error())
	}
}

func (d *Daemon) logSnapshot() {
	stats := d.adapter.Stats()
	mem, memErr := readHostMemory()
	one, _, _, loadErr := readLoadAverage()

	fields := []interface{}{
		"tasks_running", stats.TasksRunning,
		"tasks_waiting", stats.TasksWaiting,
	}
	if memErr == nil {
		fields = append(fields, "mem_total_bytes", mem.TotalBytes, "mem_available_bytes", mem.AvailableBytes)
	}
	if loadErr == nil {
		fields = append(fields, "load_average_1m", one)
	}
	d.log.Info("operational snapshot", fields...)
}
