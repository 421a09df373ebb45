package models

import "strings"

// LifecycleState is the temporal classification of a campaign.
type LifecycleState string

const (
	StateNotStarted LifecycleState = "not_started"
	StateOngoing    LifecycleState = "ongoing"
	StateEnded      LifecycleState = "ended"
	StateUnknown    LifecycleState = "unknown"
)

// AllStates lists every state in declaration order.
var AllStates = []LifecycleState{StateNotStarted, StateOngoing, StateEnded, StateUnknown}

// ParseState accepts the canonical names plus a few spellings seen in
// configuration files ("not-started", "NotStarted", "upcoming", "running").
func ParseState(raw string) (LifecycleState, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)
	switch s {
	case "notstarted", "upcoming":
		return StateNotStarted, true
	case "ongoing", "running":
		return StateOngoing, true
	case "ended":
		return StateEnded, true
	case "unknown":
		return StateUnknown, true
	}
	return "", false
}

func (s LifecycleState) Label() string {
	switch s {
	case StateNotStarted:
		return "⏳ Not started"
	case StateOngoing:
		return "✅ Ongoing"
	case StateEnded:
		return "🔴 Ended"
	default:
		return "⚪ Unknown"
	}
}

// CSSClass is the dashboard pill class for the state.
func (s LifecycleState) CSSClass() string {
	switch s {
	case StateNotStarted:
		return "pill-upcoming"
	case StateOngoing:
		return "pill-running"
	case StateEnded:
		return "pill-ended"
	default:
		return "pill-unknown"
	}
}
