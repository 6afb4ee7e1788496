package lifecycle

import (
	"context"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/imamik/kubevirt-actions-runner/internal/phase"
)

// InstanceClient defines the instance operations the Runner needs.
// It is implemented by kubevirt.Client.
type InstanceClient interface {
	// Get returns the named instance, or nil if it does not exist.
	Get(ctx context.Context, name string) (*unstructured.Unstructured, error)

	// Template returns the named VirtualMachine.
	Template(ctx context.Context, name string) (*unstructured.Unstructured, error)

	// Create submits a new instance.
	Create(ctx context.Context, obj *unstructured.Unstructured) (*unstructured.Unstructured, error)

	// DeleteAndWait deletes the named instance and waits for its finalization.
	// A missing instance is not an error.
	DeleteAndWait(ctx context.Context, name string) error

	// Watch streams events of the named instance until ctx is done.
	Watch(ctx context.Context, name string) (<-chan phase.Event, error)

	// InstanceKind returns the kind used for created instances.
	InstanceKind() schema.GroupVersionKind
}
