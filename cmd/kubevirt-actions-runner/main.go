// Package main is the entry point for the kubevirt-actions-runner launcher.
//
// The launcher runs inside an actions-runner-controller runner pod. Instead of
// running jobs itself, it creates a KubeVirt VirtualMachineInstance from a
// VirtualMachine template, hands the GitHub runner registration to the guest,
// and mirrors the instance's lifetime: it exits once the instance terminates
// and deletes the instance on the way out.
//
// For detailed usage information, run:
//
//	kubevirt-actions-runner --help
package main

import (
	"os"

	"github.com/imamik/kubevirt-actions-runner/cmd/kubevirt-actions-runner/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	os.Exit(commands.Execute())
}
