// Package vmi composes the VirtualMachineInstance for a runner from a
// VirtualMachine template.
//
// The template's spec.template is copied as-is, so fields this package does
// not know about (domain, networks, affinity, ...) survive untouched. Only
// three things change: the instance name, the runner-info annotation and the
// runner-info volume.
//
// To consume the payload in the guest, add a matching device to the template
// domain, for example:
//
//	devices:
//	  filesystems:
//	    - name: runner-info
//	      virtiofs: {}
//
// Mounting it as a disk works as well.
package vmi
