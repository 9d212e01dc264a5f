// Package lifecycle implements the Service Lifecycle: a (group, name)
// keyed registry of services with a start/update/stop loop, the Go shape
// of the source's classmethod-based ServiceManager.
package lifecycle

import (
	"fmt"

	"github.com/lngonzalezg/yerba/pkg/logger"
)

// Service is anything the daemon loop drives through its lifecycle.
type Service interface {
	Initialize() error
	Update()
	Stop()
}

type key struct {
	group string
	name  string
}

// Manager is the (group, name) keyed service registry.
type Manager struct {
	order    []key
	services map[key]Service
	log      *logger.Logger
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{
		services: make(map[key]Service),
		log:      logger.WithField("component", "service-lifecycle"),
	}
}

// Register adds svc under (group, name). Re-registering the same
// (group, name) is idempotent: the prior entry is replaced and a warning
// is logged, it is not an error.
func (m *Manager) Register(group, name string, svc Service) {
	k := key{group, name}
	if _, exists := m.services[k]; exists {
		m.log.Warn("service re-registered", "group", group, "name", name)
	} else {
		m.order = append(m.order, k)
	}
	m.services[k] = svc
}

// Get returns the handle registered under (group, name), used by other
// components for cross-wiring.
func (m *Manager) Get(group, name string) (Service, bool) {
	svc, ok := m.services[key{group, name}]
	return svc, ok
}

// Start calls Initialize on every registered service, in registration
// order, stopping at the first failure.
func (m *Manager) Start() error {
	for _, k := range m.order {
		if err := m.services[k].Initialize(); err != nil {
			return fmt.Errorf("lifecycle: initialize %s.%s: %w", k.group, k.name, err)
		}
	}
	return nil
}

// Update ticks every registered service once, in registration order.
func (m *Manager) Update() {
	for _, k := range m.order {
		m.services[k].Update()
	}
}

// Stop calls Stop on every registered service, in registration order.
func (m *Manager) Stop() {
	for _, k := range m.order {
		m.services[k].Stop()
	}
}
