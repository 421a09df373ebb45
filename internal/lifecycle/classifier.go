package lifecycle

import (
	"strings"
	"time"
	"unicode"

	"github.com/ObiAU/questradar/internal/models"
)

var statusTokens = map[string]models.LifecycleState{
	"pending":    models.StateNotStarted,
	"upcoming":   models.StateNotStarted,
	"scheduled":  models.StateNotStarted,
	"notstarted": models.StateNotStarted,
	"running":    models.StateOngoing,
	"active":     models.StateOngoing,
	"ongoing":    models.StateOngoing,
	"live":       models.StateOngoing,
	"inprogress": models.StateOngoing,
	"expired":    models.StateEnded,
	"closed":     models.StateEnded,
	"ended":      models.StateEnded,
	"finished":   models.StateEnded,
}

// Classify derives the lifecycle state of c at now. A nil campaign is Unknown.
func Classify(c *models.Campaign, now time.Time) models.LifecycleState {
	if c == nil {
		return models.StateUnknown
	}
	var start, end *time.Time
	if t, ok := Normalize(c.StartTime()); ok {
		start = &t
	}
	if t, ok := Normalize(c.EndTime()); ok {
		end = &t
	}
	return ClassifyTimes(start, end, c.Status(), now)
}

// ClassifyTimes is the pure decision table behind Classify. It never returns
// Ended unless end is known and strictly before now.
func ClassifyTimes(start, end *time.Time, status string, now time.Time) models.LifecycleState {
	if start == nil && end == nil {
		return models.StateUnknown
	}

	if hinted, ok := StatusHint(status); ok {
		if hinted != models.StateEnded || (end != nil && end.Before(now)) {
			return hinted
		}
	}

	switch {
	case start != nil && now.Before(*start):
		return models.StateNotStarted
	case start != nil && (end == nil || !now.After(*end)):
		return models.StateOngoing
	case end != nil && end.Before(now):
		return models.StateEnded
	default:
		return models.StateUnknown
	}
}

// StatusHint maps an upstream status string to a state when it names exactly
// one. Empty, unrecognised or contradictory strings report false.
func StatusHint(status string) (models.LifecycleState, bool) {
	tokens := strings.FieldsFunc(strings.ToLower(status), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(tokens) == 0 {
		return "", false
	}
	// "not_started" and "not started" split into two tokens.
	if joined := strings.Join(tokens, ""); joined == "notstarted" {
		return models.StateNotStarted, true
	}

	var found models.LifecycleState
	for _, tok := range tokens {
		state, ok := statusTokens[tok]
		if !ok {
			continue
		}
		if found != "" && found != state {
			return "", false
		}
		found = state
	}
	return found, found != ""
}
