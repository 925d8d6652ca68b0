package engine

// Phase is an orchestrator's position in the settlement sequence.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseQuoting
	PhaseNeedsApproval
	PhaseReady
	PhaseApproving
	PhaseSubmitting
	PhaseConfirming
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseQuoting:
		return "quoting"
	case PhaseNeedsApproval:
		return "needs-approval"
	case PhaseReady:
		return "ready"
	case PhaseApproving:
		return "approving"
	case PhaseSubmitting:
		return "submitting"
	case PhaseConfirming:
		return "confirming"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ActionKind classifies what invoking the action would do.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionConnect
	ActionApprove
	ActionSubmit
)

// Action is the user-facing button state derived from current inputs and
// phase. Enabled actions are safe to invoke; disabled ones carry the reason
// in the label.
type Action struct {
	Label   string
	Enabled bool
	Kind    ActionKind
}

func disabled(label string) Action {
	return Action{Label: label}
}
