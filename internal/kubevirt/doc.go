// Package kubevirt provides the KubeVirt resource client used by the runner
// launcher, wrapping the k8s.io/client-go dynamic client for namespaced
// VirtualMachine templates and VirtualMachineInstances.
//
// Both kinds are resolved through API discovery of the kubevirt.io group at
// construction time, so the client follows whatever version the cluster
// prefers.
package kubevirt
