package agent

import "strings"

// State is a phase of the reasoning loop.
type State int

const (
	StateThinking State = iota
	StateActing
	StateObserving
	StateDone
)

func (s State) String() string {
	switch s {
	case StateThinking:
		return "thinking"
	case StateActing:
		return "acting"
	case StateObserving:
		return "observing"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Turn is one THINKING step and, when the model chose an action, its observation.
type Turn struct {
	Number      int    `json:"number"`
	Thought     string `json:"thought,omitempty"`
	Action      string `json:"action,omitempty"`
	ActionInput string `json:"action_input,omitempty"`
	Observation string `json:"observation,omitempty"`
	IsError     bool   `json:"is_error,omitempty"`
	FinalAnswer string `json:"final_answer,omitempty"`
	// Reply is the raw model output the turn was parsed from.
	Reply string `json:"-"`
}

// State reports the phase the loop reached on this turn: Done for a final
// answer, Observing once an action's result is recorded, Thinking when the
// reply itself was unusable.
func (t Turn) State() State {
	switch {
	case t.FinalAnswer != "":
		return StateDone
	case t.Action != "":
		return StateObserving
	default:
		return StateThinking
	}
}

// Transcript is the ordered record of one run. It is never shared between runs.
type Transcript struct {
	Turns []Turn `json:"turns"`
}

func (t *Transcript) append(turn Turn) { t.Turns = append(t.Turns, turn) }

// Len returns the number of turns.
func (t *Transcript) Len() int { return len(t.Turns) }

// Findings returns the successful tool observations in order.
func (t *Transcript) Findings() []string {
	var out []string
	for _, turn := range t.Turns {
		if turn.Action == "" || turn.IsError {
			continue
		}
		if obs := strings.TrimSpace(turn.Observation); obs != "" {
			out = append(out, obs)
		}
	}
	return out
}

// Exchange is one completed question and answer from earlier in a conversation.
type Exchange struct {
	Query  string
	Answer string
}
