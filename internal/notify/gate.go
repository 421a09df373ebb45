package notify

import (
	"time"

	"github.com/ObiAU/questradar/internal/lifecycle"
	"github.com/ObiAU/questradar/internal/models"
)

const (
	DefaultEndHorizon   = 60 * 24 * time.Hour
	DefaultStartHorizon = 30 * 24 * time.Hour
)

// Reason explains a gate decision. It doubles as a metric label.
type Reason string

const (
	ReasonNotify             Reason = "notify"
	ReasonNoCampaign         Reason = "no_campaign"
	ReasonNoIdentifier       Reason = "no_identifier"
	ReasonFirstCycle         Reason = "first_cycle"
	ReasonDuplicate          Reason = "duplicate"
	ReasonNoEnd              Reason = "no_end"
	ReasonEnded              Reason = "ended"
	ReasonEndBeyondHorizon   Reason = "end_beyond_horizon"
	ReasonStartBeyondHorizon Reason = "start_beyond_horizon"
)

// Input is everything the gate looks at for one project in one cycle.
type Input struct {
	Alias        string
	Campaign     *models.Campaign
	State        models.LifecycleState
	LastNotified string
	FirstCycle   bool
	Now          time.Time
}

// Decision is the gate outcome. CampaignID carries the resolved identifier
// for suppressed candidates too, except on the first cycle, which never
// produces anything the caller could record.
type Decision struct {
	Notify     bool
	CampaignID string
	Reason     Reason
}

// Gate decides whether a freshly fetched campaign warrants a push.
type Gate struct {
	EndHorizon   time.Duration
	StartHorizon time.Duration
}

func NewGate(endHorizon, startHorizon time.Duration) *Gate {
	if endHorizon <= 0 {
		endHorizon = DefaultEndHorizon
	}
	if startHorizon <= 0 {
		startHorizon = DefaultStartHorizon
	}
	return &Gate{EndHorizon: endHorizon, StartHorizon: startHorizon}
}

// Evaluate applies the suppression rules in order; the first failing rule
// names the reason.
func (g *Gate) Evaluate(in Input) Decision {
	if in.Campaign == nil {
		return Decision{Reason: ReasonNoCampaign}
	}
	id := in.Campaign.ID()
	if id == "" {
		return Decision{Reason: ReasonNoIdentifier}
	}
	if in.FirstCycle {
		return Decision{Reason: ReasonFirstCycle}
	}
	if id == in.LastNotified {
		return Decision{CampaignID: id, Reason: ReasonDuplicate}
	}

	end, ok := lifecycle.Normalize(in.Campaign.EndTime())
	if !ok {
		return Decision{CampaignID: id, Reason: ReasonNoEnd}
	}
	if in.State == models.StateEnded || in.Now.After(end) {
		return Decision{CampaignID: id, Reason: ReasonEnded}
	}
	if end.Sub(in.Now) > g.EndHorizon {
		return Decision{CampaignID: id, Reason: ReasonEndBeyondHorizon}
	}
	if start, ok := lifecycle.Normalize(in.Campaign.StartTime()); ok && start.Before(in.Now) {
		if in.Now.Sub(start) > g.StartHorizon {
			return Decision{CampaignID: id, Reason: ReasonStartBeyondHorizon}
		}
	}

	return Decision{Notify: true, CampaignID: id, Reason: ReasonNotify}
}
