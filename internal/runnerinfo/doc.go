// Package runnerinfo builds the bootstrap payload handed to the runner inside
// the virtual machine.
//
// The payload is one of two variants:
//
//   - [JIT]: the just-in-time config issued by actions-runner-controller. The
//     guest starts the runner with ACTIONS_RUNNER_INPUT_JITCONFIG set to it.
//   - [Legacy]: name, registration token, URL, ephemeral flag, groups and
//     labels. The guest runs config.sh with these values.
//
// The payload is serialized to compact JSON and exposed to the guest through a
// downwardAPI volume named runner-info at runner-info.json.
package runnerinfo
