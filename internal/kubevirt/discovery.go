package kubevirt

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/discovery"
)

// KubeVirt API group and the kinds the launcher needs.
const (
	Group                      = "kubevirt.io"
	KindVirtualMachine         = "VirtualMachine"
	KindVirtualMachineInstance = "VirtualMachineInstance"
)

// Resource identifies a discovered kind and the resource serving it.
type Resource struct {
	GVK schema.GroupVersionKind
	GVR schema.GroupVersionResource
}

// Resources holds the discovered KubeVirt kinds.
type Resources struct {
	VirtualMachine         Resource
	VirtualMachineInstance Resource
}

// Discover resolves the VirtualMachine and VirtualMachineInstance resources at
// the preferred version of the kubevirt.io group.
func Discover(dc discovery.DiscoveryInterface) (*Resources, error) {
	groups, err := dc.ServerGroups()
	if err != nil {
		return nil, &DiscoveryError{Group: Group, Err: err}
	}

	groupVersion := ""
	for _, g := range groups.Groups {
		if g.Name != Group {
			continue
		}
		groupVersion = g.PreferredVersion.GroupVersion
		if groupVersion == "" && len(g.Versions) > 0 {
			groupVersion = g.Versions[0].GroupVersion
		}
		break
	}
	if groupVersion == "" {
		return nil, &DiscoveryError{Group: Group, Err: fmt.Errorf("group not served")}
	}

	list, err := dc.ServerResourcesForGroupVersion(groupVersion)
	if err != nil {
		return nil, &DiscoveryError{Group: Group, Err: err}
	}

	gv, err := schema.ParseGroupVersion(list.GroupVersion)
	if err != nil {
		return nil, &DiscoveryError{Group: Group, Err: err}
	}

	find := func(kind string) (Resource, error) {
		for _, r := range list.APIResources {
			// Skip subresources such as virtualmachineinstances/console.
			if r.Kind != kind || strings.Contains(r.Name, "/") {
				continue
			}
			return Resource{
				GVK: gv.WithKind(kind),
				GVR: gv.WithResource(r.Name),
			}, nil
		}
		return Resource{}, &DiscoveryError{Group: Group, Kind: kind}
	}

	vm, err := find(KindVirtualMachine)
	if err != nil {
		return nil, err
	}
	vmi, err := find(KindVirtualMachineInstance)
	if err != nil {
		return nil, err
	}

	return &Resources{VirtualMachine: vm, VirtualMachineInstance: vmi}, nil
}
