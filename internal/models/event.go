package models

// NotifyEvent is what a sender receives for one new campaign. Start and End
// are already formatted for display.
type NotifyEvent struct {
	ProjectName string         `json:"project_name"`
	Alias       string         `json:"alias"`
	CampaignID  string         `json:"campaign_id"`
	Title       string         `json:"title"`
	State       LifecycleState `json:"state"`
	Start       string         `json:"start"`
	End         string         `json:"end"`
	URL         string         `json:"url"`
	Test        bool           `json:"test,omitempty"`
}
