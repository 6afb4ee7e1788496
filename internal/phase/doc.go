// Package phase reduces the watch stream of one VirtualMachineInstance to a
// terminal [Outcome].
package phase
