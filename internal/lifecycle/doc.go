// Package lifecycle drives one runner instance from creation to cleanup.
//
// A [Runner] removes any instance left over from a previous run, creates a
// fresh instance from the VirtualMachine template, watches it until it
// terminates or the process is asked to stop, then deletes it again.
package lifecycle
