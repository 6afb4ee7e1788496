package phase

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Event is a single item of an instance watch stream. It is implemented by
// [Updated], [Removed], [StreamEnded] and [StreamError].
type Event interface {
	isEvent()
}

// Updated carries the latest snapshot of the instance.
type Updated struct {
	Object *unstructured.Unstructured
}

// Removed reports that the instance was deleted.
type Removed struct{}

// StreamEnded reports that the stream closed without a terminal event.
type StreamEnded struct{}

// StreamError reports a failure of the underlying watch.
type StreamError struct {
	Err error
}

func (Updated) isEvent()     {}
func (Removed) isEvent()     {}
func (StreamEnded) isEvent() {}
func (StreamError) isEvent() {}

// Instance phases reported by KubeVirt that the tracker cares about.
const (
	Unknown   = "Unknown"
	Succeeded = "Succeeded"
	Failed    = "Failed"
)

// Of returns status.phase of an instance snapshot. ok is false when the
// instance has no status or the status carries no phase yet.
func Of(obj *unstructured.Unstructured) (phase string, ok bool) {
	if obj == nil {
		return "", false
	}
	phase, found, err := unstructured.NestedString(obj.Object, "status", "phase")
	if err != nil || !found || phase == "" {
		return "", false
	}
	return phase, true
}
