package kubevirt

import (
	"errors"
	"fmt"
)

// DiscoveryError reports that a required kind is not served by the cluster.
type DiscoveryError struct {
	Group string
	Kind  string
	Err   error
}

func (e *DiscoveryError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("failed to get %s API group: %v", e.Group, e.Err)
	}
	return fmt.Sprintf("the %s API group doesn't have the %s type", e.Group, e.Kind)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// APIError wraps a failed API call with the operation and object name.
type APIError struct {
	Op   string
	Name string
	Err  error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Name, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsDiscoveryError checks if an error is, or wraps, a DiscoveryError.
func IsDiscoveryError(err error) bool {
	var discErr *DiscoveryError
	return errors.As(err, &discErr)
}

// IsAPIError checks if an error is, or wraps, an APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
