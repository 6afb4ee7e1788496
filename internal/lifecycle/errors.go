package lifecycle

import (
	"errors"
	"fmt"

	"github.com/imamik/kubevirt-actions-runner/internal/phase"
)

// AbnormalOutcomeError reports a run that did not end with the instance
// succeeding.
type AbnormalOutcomeError struct {
	Outcome phase.Outcome
}

func (e *AbnormalOutcomeError) Error() string {
	return fmt.Sprintf("instance outcome: %s", e.Outcome)
}

// IsAbnormalOutcome checks if an error is, or wraps, an AbnormalOutcomeError.
func IsAbnormalOutcome(err error) bool {
	var outcomeErr *AbnormalOutcomeError
	return errors.As(err, &outcomeErr)
}
