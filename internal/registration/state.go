package registration

// State names a position in the double opt-in lifecycle. It is derived from which step ran
// last and is never stored on the flow.
type State string

const (
	StatePendingActivation   State = "PENDING_ACTIVATION"
	StatePendingConfirmation State = "PENDING_CONFIRMATION"
	StateCompleted           State = "COMPLETED"
)

// Outcome is the user facing result of following an activation or confirmation link.
type Outcome int

const (
	// OutcomeFailed accompanies a non-nil error; the step did not complete.
	OutcomeFailed Outcome = iota
	OutcomeSuccess
	OutcomeTokenNotFound
	OutcomeTokenExpired
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFailed:
		return "failed"
	case OutcomeSuccess:
		return "success"
	case OutcomeTokenNotFound:
		return "token_not_found"
	case OutcomeTokenExpired:
		return "token_timeout"
	default:
		return "unknown"
	}
}
