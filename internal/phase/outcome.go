package phase

// Outcome is the terminal classification of one run.
type Outcome int

const (
	// OutcomeSucceeded means the instance reached phase Succeeded.
	OutcomeSucceeded Outcome = iota + 1

	// OutcomeFailed means the instance reached phase Failed. This usually
	// means the guest did not shut down within its grace period.
	OutcomeFailed

	// OutcomeDeleted means the instance was deleted by something else.
	OutcomeDeleted

	// OutcomeInterrupted means the watch ended early or the process was
	// asked to terminate.
	OutcomeInterrupted
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "Succeeded"
	case OutcomeFailed:
		return "Failed"
	case OutcomeDeleted:
		return "Deleted"
	case OutcomeInterrupted:
		return "Interrupted"
	default:
		return "Unknown"
	}
}

// Abnormal reports whether the outcome should fail the process.
//
// TODO: confirm with runner operators whether an externally deleted instance
// (e.g. a cancelled job) should still exit non-zero.
func (o Outcome) Abnormal() bool {
	return o != OutcomeSucceeded
}
