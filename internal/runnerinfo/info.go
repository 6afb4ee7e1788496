package runnerinfo

import (
	"encoding/json"
	"fmt"
)

// Info is the bootstrap payload. It is implemented by [JIT] and [Legacy] only.
type Info interface {
	isInfo()
}

// JIT is the new-style configuration passed by actions-runner-controller.
type JIT struct {
	// JITConfig is a base64-encoded structure recognized by the runner.
	JITConfig string `json:"jitconfig"`
}

// Legacy is the registration-token configuration. The guest has to configure
// the runner itself from these values.
type Legacy struct {
	Name      string `json:"name"`
	Token     string `json:"token"`
	URL       string `json:"url"`
	Ephemeral bool   `json:"ephemeral"`
	Groups    string `json:"groups"`
	Labels    string `json:"labels"`
}

func (JIT) isInfo()    {}
func (Legacy) isInfo() {}

// Mode returns a short name for the payload variant, suitable for logging.
func Mode(info Info) string {
	switch info.(type) {
	case JIT:
		return "jit"
	case Legacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// Marshal serializes the payload to the compact JSON stored in the
// runner-info annotation.
func Marshal(info Info) (string, error) {
	var v any
	switch i := info.(type) {
	case JIT:
		v = i
	case Legacy:
		v = i
	default:
		return "", fmt.Errorf("unsupported runner info type %T", info)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal runner info: %w", err)
	}
	return string(data), nil
}
