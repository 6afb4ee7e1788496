// Package config defines the runner options consumed by the launcher.
//
// [Runner] is the already-parsed view of the command line and environment:
// target namespace, runner identity, the VirtualMachine template name and
// the inputs used to auto-detect the registration URL. Defaults come from the
// same environment variables the actions-runner-controller sets on runner
// pods, so the binary can be dropped into a runner pod template unchanged.
package config
