package kubevirt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	fakediscovery "k8s.io/client-go/discovery/fake"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	clienttesting "k8s.io/client-go/testing"
)

const testNamespace = "runners"

var (
	vmGVR  = schema.GroupVersionResource{Group: Group, Version: "v1", Resource: "virtualmachines"}
	vmiGVR = schema.GroupVersionResource{Group: Group, Version: "v1", Resource: "virtualmachineinstances"}
)

func kubevirtResourceList() *metav1.APIResourceList {
	return &metav1.APIResourceList{
		GroupVersion: "kubevirt.io/v1",
		APIResources: []metav1.APIResource{
			{Name: "virtualmachineinstances/console", Kind: "VirtualMachineInstance"},
			{Name: "virtualmachines", Kind: KindVirtualMachine, Namespaced: true},
			{Name: "virtualmachineinstances", Kind: KindVirtualMachineInstance, Namespaced: true},
		},
	}
}

func coreResourceList() *metav1.APIResourceList {
	return &metav1.APIResourceList{
		GroupVersion: "v1",
		APIResources: []metav1.APIResource{
			{Name: "pods", Kind: "Pod", Namespaced: true},
		},
	}
}

func newFakeDiscovery(lists ...*metav1.APIResourceList) *fakediscovery.FakeDiscovery {
	return &fakediscovery.FakeDiscovery{Fake: &clienttesting.Fake{Resources: lists}}
}

func newFakeDynamic(objects ...runtime.Object) *dynamicfake.FakeDynamicClient {
	return dynamicfake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(),
		map[schema.GroupVersionResource]string{
			vmGVR:  "VirtualMachineList",
			vmiGVR: "VirtualMachineInstanceList",
		},
		objects...,
	)
}

// newTestClient returns a Client over fake clients with a short poll interval.
func newTestClient(t *testing.T, objects ...runtime.Object) (*Client, *dynamicfake.FakeDynamicClient) {
	t.Helper()
	dyn := newFakeDynamic(objects...)
	c, err := NewFromClients(dyn, newFakeDiscovery(coreResourceList(), kubevirtResourceList()), testNamespace,
		WithPollInterval(time.Millisecond))
	require.NoError(t, err)
	return c, dyn
}

func newInstance(name, uid, phase string) *unstructured.Unstructured {
	obj := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "kubevirt.io/v1",
		"kind":       KindVirtualMachineInstance,
		"metadata": map[string]interface{}{
			"name":      name,
			"namespace": testNamespace,
		},
	}}
	if uid != "" {
		obj.SetUID(types.UID(uid))
	}
	if phase != "" {
		obj.Object["status"] = map[string]interface{}{"phase": phase}
	}
	return obj
}

func newVirtualMachine(name string) *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "kubevirt.io/v1",
		"kind":       KindVirtualMachine,
		"metadata": map[string]interface{}{
			"name":      name,
			"namespace": testNamespace,
		},
		"spec": map[string]interface{}{
			"template": map[string]interface{}{
				"spec": map[string]interface{}{},
			},
		},
	}}
}
