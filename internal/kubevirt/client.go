package kubevirt

import (
	"context"
	"fmt"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/kubevirt-actions-runner/internal/metrics"
)

// Client manages VirtualMachineInstances in a single namespace.
type Client struct {
	dynamicClient dynamic.Interface
	resources     *Resources
	namespace     string

	deleteTimeout time.Duration
	pollInterval  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithDeleteTimeout bounds how long DeleteAndWait waits for finalization.
// Zero waits until the context is done.
func WithDeleteTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.deleteTimeout = d
	}
}

// WithPollInterval sets how often DeleteAndWait checks for finalization, and
// the pause before a closed watch is resumed.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		c.pollInterval = d
	}
}

// New creates a Client from a REST config and discovers the KubeVirt kinds.
func New(restConfig *rest.Config, namespace string, opts ...Option) (*Client, error) {
	dynamicClient, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	discoveryClient, err := discovery.NewDiscoveryClientForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery client: %w", err)
	}

	return NewFromClients(dynamicClient, discoveryClient, namespace, opts...)
}

// NewFromClients creates a Client from pre-configured clients.
// This is useful for testing with fake clients.
func NewFromClients(dynamicClient dynamic.Interface, discoveryClient discovery.DiscoveryInterface, namespace string, opts ...Option) (*Client, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}

	resources, err := Discover(discoveryClient)
	if err != nil {
		return nil, err
	}

	c := &Client{
		dynamicClient: dynamicClient,
		resources:     resources,
		namespace:     namespace,
		pollInterval:  2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Namespace returns the namespace the client operates in.
func (c *Client) Namespace() string {
	return c.namespace
}

// InstanceKind returns the discovered VirtualMachineInstance kind.
func (c *Client) InstanceKind() schema.GroupVersionKind {
	return c.resources.VirtualMachineInstance.GVK
}

func (c *Client) instances() dynamic.ResourceInterface {
	return c.dynamicClient.Resource(c.resources.VirtualMachineInstance.GVR).Namespace(c.namespace)
}

func (c *Client) templates() dynamic.ResourceInterface {
	return c.dynamicClient.Resource(c.resources.VirtualMachine.GVR).Namespace(c.namespace)
}

// call runs one API operation, recording its metrics and wrapping failures
// in an APIError.
func call[T any](op, name string, fn func() (T, error)) (T, error) {
	start := time.Now()
	result, err := fn()
	metrics.RecordAPICall(op, err, time.Since(start))
	if err != nil {
		var zero T
		return zero, &APIError{Op: op, Name: name, Err: err}
	}
	return result, nil
}

// Get returns the instance with the given name, or nil if it does not exist.
func (c *Client) Get(ctx context.Context, name string) (*unstructured.Unstructured, error) {
	return call("get", name, func() (*unstructured.Unstructured, error) {
		obj, err := c.instances().Get(ctx, name, metav1.GetOptions{})
		if apierrors.IsNotFound(err) {
			return nil, nil
		}
		return obj, err
	})
}

// Template returns the VirtualMachine with the given name.
func (c *Client) Template(ctx context.Context, name string) (*unstructured.Unstructured, error) {
	return call("template", name, func() (*unstructured.Unstructured, error) {
		return c.templates().Get(ctx, name, metav1.GetOptions{})
	})
}

// Create submits a new instance.
func (c *Client) Create(ctx context.Context, obj *unstructured.Unstructured) (*unstructured.Unstructured, error) {
	return call("create", obj.GetName(), func() (*unstructured.Unstructured, error) {
		return c.instances().Create(ctx, obj, metav1.CreateOptions{})
	})
}

// DeleteAndWait deletes an instance and waits until it is gone, so that its
// finalizers have run. An instance that does not exist counts as deleted.
func (c *Client) DeleteAndWait(ctx context.Context, name string) error {
	logger := log.FromContext(ctx)

	var uid types.UID
	deleted, err := call("delete", name, func() (bool, error) {
		return c.deleteInstance(ctx, name, &uid)
	})
	if err != nil || !deleted {
		return err
	}

	if c.deleteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.deleteTimeout)
		defer cancel()
	}

	logger.V(1).Info("waiting for instance finalization", "name", name, "uid", uid)
	_, err = call("finalize", name, func() (struct{}, error) {
		return struct{}{}, wait.PollUntilContextCancel(ctx, c.pollInterval, true, func(ctx context.Context) (bool, error) {
			return c.isGone(ctx, name, uid)
		})
	})
	return err
}

// deleteInstance deletes the instance, storing the UID it had. It returns
// false if the instance was already gone.
func (c *Client) deleteInstance(ctx context.Context, name string, uid *types.UID) (bool, error) {
	obj, err := c.instances().Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	*uid = obj.GetUID()
	propagation := metav1.DeletePropagationForeground
	opts := metav1.DeleteOptions{PropagationPolicy: &propagation}
	if *uid != "" {
		opts.Preconditions = &metav1.Preconditions{UID: uid}
	}

	err = c.instances().Delete(ctx, name, opts)
	switch {
	case apierrors.IsNotFound(err):
		return false, nil
	case apierrors.IsConflict(err):
		// The UID precondition failed: ours was replaced since the Get.
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// isGone reports whether the object with the given UID no longer exists.
func (c *Client) isGone(ctx context.Context, name string, uid types.UID) (bool, error) {
	obj, err := c.instances().Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return obj.GetUID() != uid, nil
}
