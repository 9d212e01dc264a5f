package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	initErr       error
	initCalls     int
	updateCalls   int
	stopCalls     int
	name          string
	order         *[]string
}

func (f *fakeService) record(step string) {
	if f.order != nil {
		*f.order = append(*f.order, step+" "+f.name)
	}
}

func (f *fakeService) Initialize() error { f.initCalls++; f.record("init"); return f.initErr }
func (f *fakeService) Update()           { f.updateCalls++; f.record("update") }
func (f *fakeService) Stop()             { f.stopCalls++; f.record("stop") }

func TestRegisterGetAndOrderedDrive(t *testing.T) {
	m := NewManager()
	var order []string
	a := &fakeService{name: "a", order: &order}
	b := &fakeService{name: "b", order: &order}
	m.Register("g", "a", a)
	m.Register("g", "b", b)

	got, ok := m.Get("g", "a")
	require.True(t, ok)
	assert.Same(t, Service(a), got)

	require.NoError(t, m.Start())
	m.Update()
	m.Stop()

	assert.Equal(t, 1, a.initCalls)
	assert.Equal(t, 1, a.updateCalls)
	assert.Equal(t, 1, a.stopCalls)
	assert.Equal(t, 1, b.initCalls)
	assert.Equal(t, []string{"init a", "init b", "update a", "update b", "stop a", "stop b"}, order)
}

func TestStartStopsAtFirstFailure(t *testing.T) {
	m := NewManager()
	ok1 := &fakeService{}
	failing := &fakeService{initErr: errors.New("boom")}
	never := &fakeService{}
	m.Register("g", "ok", ok1)
	m.Register("g", "failing", failing)
	m.Register("g", "never", never)

	err := m.Start()
	require.Error(t, err)
	assert.Equal(t, 1, ok1.initCalls)
	assert.Equal(t, 1, failing.initCalls)
	assert.Equal(t, 0, never.initCalls)
}

func TestReRegisterIsIdempotentNotError(t *testing.T) {
	m := NewManager()
	first := &fakeService{}
	second := &fakeService{}
	m.Register("g", "a", first)
	m.Register("g", "a", second)

	assert.Len(t, m.order, 1)
	got, ok := m.Get("g", "a")
	require.True(t, ok)
	assert.Same(t, Service(second), got)
}

func TestGetMissingReturnsFalse(t *testing.T) {
	m := NewManager()
	_, ok := m.Get("missing", "missing")
	assert.False(t, ok)
}
