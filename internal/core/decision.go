package core

// Decider answers the interactive questions an operation may raise.
type Decider interface {
	// ConfirmReplace reports whether the named occupant may be displaced.
	ConfirmReplace(occupantName string) bool
	// PromptText asks for free text; ok is false when the user cancels.
	PromptText(message string) (text string, ok bool)
}

// StaticDecider returns canned answers.
type StaticDecider struct {
	Replace bool
	Text    string
	Cancel  bool

	Asked []string
}

// ConfirmReplace implements Decider.
func (d *StaticDecider) ConfirmReplace(occupantName string) bool {
	d.Asked = append(d.Asked, occupantName)
	return d.Replace
}

// PromptText implements Decider.
func (d *StaticDecider) PromptText(message string) (string, bool) {
	d.Asked = append(d.Asked, message)
	if d.Cancel {
		return "", false
	}
	return d.Text, true
}

// Decision is a caller-supplied answer to the replace question.
type Decision int

const (
	// DecisionAsk defers to the configured Decider.
	DecisionAsk Decision = iota
	// DecisionReplace displaces an occupant without asking.
	DecisionReplace
	// DecisionCancel declines any replacement.
	DecisionCancel
)

// ParseDecision maps "ask", "replace" and "cancel" to a Decision.
func ParseDecision(s string) (Decision, bool) {
	switch s {
	case "", "ask":
		return DecisionAsk, true
	case "replace":
		return DecisionReplace, true
	case "cancel":
		return DecisionCancel, true
	}
	return DecisionAsk, false
}

func (d Decision) String() string {
	switch d {
	case DecisionReplace:
		return "replace"
	case DecisionCancel:
		return "cancel"
	default:
		return "ask"
	}
}
