package vmi

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/imamik/kubevirt-actions-runner/internal/runnerinfo"
)

const (
	// RunnerInfoAnnotation holds the serialized bootstrap payload.
	RunnerInfoAnnotation = "li.zhaofeng.kubevirt-actions-runner/runner-info"

	// RunnerInfoVolume is the name of the downwardAPI volume exposing the payload.
	RunnerInfoVolume = "runner-info"

	// RunnerInfoPath is the file name of the payload inside the volume.
	RunnerInfoPath = "runner-info.json"
)

// Compose builds the VirtualMachineInstance for the runner from a fetched
// VirtualMachine. The template object is not modified.
func Compose(template *unstructured.Unstructured, gvk schema.GroupVersionKind, name string, info runnerinfo.Info) (*unstructured.Unstructured, error) {
	payload, err := runnerinfo.Marshal(info)
	if err != nil {
		return nil, err
	}

	// NestedMap returns a deep copy.
	tmpl, found, err := unstructured.NestedMap(template.Object, "spec", "template")
	if err != nil {
		return nil, fmt.Errorf("invalid template %s: %w", template.GetName(), err)
	}
	if !found {
		return nil, fmt.Errorf("template %s has no spec.template", template.GetName())
	}

	obj := &unstructured.Unstructured{Object: map[string]interface{}{}}
	if metadata, ok := tmpl["metadata"].(map[string]interface{}); ok {
		obj.Object["metadata"] = metadata
	}
	spec, ok := tmpl["spec"].(map[string]interface{})
	if !ok {
		spec = map[string]interface{}{}
	}
	obj.Object["spec"] = spec

	obj.SetGroupVersionKind(gvk)
	obj.SetName(name)

	annotations := obj.GetAnnotations()
	if annotations == nil {
		annotations = map[string]string{}
	}
	annotations[RunnerInfoAnnotation] = payload
	obj.SetAnnotations(annotations)

	if err := UpsertRunnerInfoVolume(obj); err != nil {
		return nil, err
	}

	return obj, nil
}

// UpsertRunnerInfoVolume replaces the runner-info volume in spec.volumes, or
// appends it if absent. Other volumes keep their definition and order.
func UpsertRunnerInfoVolume(obj *unstructured.Unstructured) error {
	volumes, _, err := unstructured.NestedSlice(obj.Object, "spec", "volumes")
	if err != nil {
		return fmt.Errorf("invalid spec.volumes: %w", err)
	}

	volume, err := runnerInfoVolume()
	if err != nil {
		return err
	}

	replaced := false
	for i, v := range volumes {
		existing, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		if existing["name"] == RunnerInfoVolume {
			volumes[i] = volume
			replaced = true
			break
		}
	}
	if !replaced {
		volumes = append(volumes, volume)
	}

	return unstructured.SetNestedSlice(obj.Object, volumes, "spec", "volumes")
}

// runnerInfoVolume returns the KubeVirt volume projecting the runner-info
// annotation into the guest.
//
// KubeVirt's downwardAPI volume lists its entries under "fields" using the
// core DownwardAPIVolumeFile type.
func runnerInfoVolume() (map[string]interface{}, error) {
	file := corev1.DownwardAPIVolumeFile{
		Path: RunnerInfoPath,
		FieldRef: &corev1.ObjectFieldSelector{
			FieldPath: fmt.Sprintf("metadata.annotations['%s']", RunnerInfoAnnotation),
		},
	}

	field, err := runtime.DefaultUnstructuredConverter.ToUnstructured(&file)
	if err != nil {
		return nil, fmt.Errorf("failed to convert runner-info volume: %w", err)
	}

	return map[string]interface{}{
		"name": RunnerInfoVolume,
		"downwardAPI": map[string]interface{}{
			"fields": []interface{}{field},
		},
	}, nil
}

// Volumes returns the names of the volumes in spec.volumes, in order.
func Volumes(obj *unstructured.Unstructured) []string {
	volumes, _, _ := unstructured.NestedSlice(obj.Object, "spec", "volumes")
	names := make([]string, 0, len(volumes))
	for _, v := range volumes {
		if m, ok := v.(map[string]interface{}); ok {
			name, _ := m["name"].(string)
			names = append(names, name)
		}
	}
	return names
}
