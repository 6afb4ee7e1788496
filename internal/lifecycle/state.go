package lifecycle

// State is a step of a Runner.
type State string

const (
	StateInit             State = "Init"
	StatePreexistingCheck State = "PreexistingCheck"
	StateCreating         State = "Creating"
	StateWatching         State = "Watching"
	StateCleanup          State = "Cleanup"
	StateDone             State = "Done"
)
