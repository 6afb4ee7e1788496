package lifecycle

import (
	"context"
	"os"
	"sync"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/imamik/kubevirt-actions-runner/internal/phase"
)

var testInstanceKind = schema.GroupVersionKind{Group: "kubevirt.io", Version: "v1", Kind: "VirtualMachineInstance"}

// MockInstanceClient is a mock implementation of InstanceClient for testing.
type MockInstanceClient struct {
	mu sync.Mutex

	// Configurable responses
	GetFunc           func(ctx context.Context, name string) (*unstructured.Unstructured, error)
	TemplateFunc      func(ctx context.Context, name string) (*unstructured.Unstructured, error)
	CreateFunc        func(ctx context.Context, obj *unstructured.Unstructured) (*unstructured.Unstructured, error)
	DeleteAndWaitFunc func(ctx context.Context, name string) error
	WatchFunc         func(ctx context.Context, name string) (<-chan phase.Event, error)

	// Events is served by Watch when WatchFunc is nil.
	Events chan phase.Event

	// Call tracking
	Calls       []string
	CreateCalls []*unstructured.Unstructured
	DeleteCalls []string

	// WatchCtx is the context passed to the last Watch call.
	WatchCtx context.Context
}

func newMockInstanceClient() *MockInstanceClient {
	return &MockInstanceClient{Events: make(chan phase.Event, 16)}
}

func (m *MockInstanceClient) record(call string) {
	m.mu.Lock()
	m.Calls = append(m.Calls, call)
	m.mu.Unlock()
}

func (m *MockInstanceClient) Get(ctx context.Context, name string) (*unstructured.Unstructured, error) {
	m.record("get")

	if m.GetFunc != nil {
		return m.GetFunc(ctx, name)
	}
	return nil, nil
}

func (m *MockInstanceClient) Template(ctx context.Context, name string) (*unstructured.Unstructured, error) {
	m.record("template")

	if m.TemplateFunc != nil {
		return m.TemplateFunc(ctx, name)
	}
	return newTemplate(name), nil
}

func (m *MockInstanceClient) Create(ctx context.Context, obj *unstructured.Unstructured) (*unstructured.Unstructured, error) {
	m.record("create")
	m.mu.Lock()
	m.CreateCalls = append(m.CreateCalls, obj)
	m.mu.Unlock()

	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, obj)
	}
	return obj, nil
}

func (m *MockInstanceClient) DeleteAndWait(ctx context.Context, name string) error {
	m.record("delete")
	m.mu.Lock()
	m.DeleteCalls = append(m.DeleteCalls, name)
	m.mu.Unlock()

	if m.DeleteAndWaitFunc != nil {
		return m.DeleteAndWaitFunc(ctx, name)
	}
	return nil
}

func (m *MockInstanceClient) Watch(ctx context.Context, name string) (<-chan phase.Event, error) {
	m.record("watch")
	m.mu.Lock()
	m.WatchCtx = ctx
	m.mu.Unlock()

	if m.WatchFunc != nil {
		return m.WatchFunc(ctx, name)
	}
	return m.Events, nil
}

func (m *MockInstanceClient) InstanceKind() schema.GroupVersionKind {
	return testInstanceKind
}

func (m *MockInstanceClient) CallLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Calls...)
}

// fakeSignals replaces signal.Notify and signal.Stop on a Runner so tests can
// deliver signals without touching the process.
type fakeSignals struct {
	mu       sync.Mutex
	channels map[os.Signal]chan<- os.Signal
	stopped  int
	ready    chan struct{}
}

func installFakeSignals(r *Runner) *fakeSignals {
	f := &fakeSignals{
		channels: map[os.Signal]chan<- os.Signal{},
		ready:    make(chan struct{}),
	}
	r.notifySignal = func(c chan<- os.Signal, sigs ...os.Signal) {
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, sig := range sigs {
			f.channels[sig] = c
		}
		if len(f.channels) == 2 {
			close(f.ready)
		}
	}
	r.stopSignal = func(chan<- os.Signal) {
		f.mu.Lock()
		f.stopped++
		f.mu.Unlock()
	}
	return f
}

// send delivers sig once the Runner has subscribed to it.
func (f *fakeSignals) send(sig os.Signal) {
	<-f.ready
	f.mu.Lock()
	c := f.channels[sig]
	f.mu.Unlock()
	c <- sig
}

func (f *fakeSignals) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func newTemplate(name string) *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "kubevirt.io/v1",
		"kind":       "VirtualMachine",
		"metadata": map[string]interface{}{
			"name": name,
		},
		"spec": map[string]interface{}{
			"template": map[string]interface{}{
				"metadata": map[string]interface{}{
					"labels": map[string]interface{}{"app": "runner"},
				},
				"spec": map[string]interface{}{
					"domain": map[string]interface{}{
						"cpu": map[string]interface{}{"cores": int64(2)},
					},
					"volumes": []interface{}{
						map[string]interface{}{
							"name":                  "data",
							"persistentVolumeClaim": map[string]interface{}{"claimName": "runner-data"},
						},
					},
				},
			},
		},
	}}
}

func instanceInPhase(name, p string) *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "kubevirt.io/v1",
		"kind":       "VirtualMachineInstance",
		"metadata":   map[string]interface{}{"name": name},
		"status":     map[string]interface{}{"phase": p},
	}}
}
