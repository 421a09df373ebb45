package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/ObiAU/questradar/internal/lifecycle"
	"github.com/ObiAU/questradar/internal/models"
)

const (
	untitledCampaign = "(untitled campaign)"
	testMessage      = "[Quest Radar] Test notification: your Telegram / Discord settings work."
)

// BuildEvent assembles the transport-agnostic payload for a new campaign.
func BuildEvent(p models.Project, c *models.Campaign, state models.LifecycleState, url string, loc *time.Location) models.NotifyEvent {
	title := c.Name()
	if title == "" {
		title = untitledCampaign
	}
	return models.NotifyEvent{
		ProjectName: p.DisplayName(),
		Alias:       p.Alias,
		CampaignID:  c.ID(),
		Title:       title,
		State:       state,
		Start:       lifecycle.Format(c.StartTime(), loc),
		End:         lifecycle.Format(c.EndTime(), loc),
		URL:         url,
	}
}

// TestEvent is sent by `questradar notify test`. It carries no alias so
// every target's project filter lets it through.
func TestEvent() models.NotifyEvent {
	return models.NotifyEvent{Title: testMessage, Test: true}
}

// FormatHTML renders ev for Telegram's HTML parse mode.
func FormatHTML(ev models.NotifyEvent) string {
	if ev.Test {
		return html.EscapeString(ev.Title)
	}
	var sb strings.Builder
	sb.WriteString("🔔 <b>Quest Radar · new campaign</b>\n\n")
	fmt.Fprintf(&sb, "Status: <b>%s</b>\n", html.EscapeString(ev.State.Label()))
	fmt.Fprintf(&sb, "📊 Project: <b>%s</b>\n", html.EscapeString(ev.ProjectName))
	fmt.Fprintf(&sb, "🆔 Alias: <code>%s</code>\n", html.EscapeString(ev.Alias))
	fmt.Fprintf(&sb, "📢 Campaign: <b>%s</b>\n\n", html.EscapeString(ev.Title))
	fmt.Fprintf(&sb, "⏰ Start: %s\n", html.EscapeString(ev.Start))
	fmt.Fprintf(&sb, "⏰ End: %s\n", html.EscapeString(ev.End))
	if ev.URL != "" && ev.URL != "#" {
		fmt.Fprintf(&sb, "\n🔗 <a href=\"%s\">Join now</a>", html.EscapeString(ev.URL))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatText renders ev as Discord markdown.
func FormatText(ev models.NotifyEvent) string {
	if ev.Test {
		return ev.Title
	}
	var sb strings.Builder
	sb.WriteString("🔔 **Quest Radar · new campaign**\n\n")
	fmt.Fprintf(&sb, "Status: **%s**\n", ev.State.Label())
	fmt.Fprintf(&sb, "📊 Project: **%s**\n", ev.ProjectName)
	fmt.Fprintf(&sb, "🆔 Alias: `%s`\n", ev.Alias)
	fmt.Fprintf(&sb, "📢 Campaign: **%s**\n\n", ev.Title)
	fmt.Fprintf(&sb, "⏰ Start: %s\n", ev.Start)
	fmt.Fprintf(&sb, "⏰ End: %s\n", ev.End)
	if ev.URL != "" && ev.URL != "#" {
		fmt.Fprintf(&sb, "\n🔗 %s", ev.URL)
	}
	return strings.TrimRight(sb.String(), "\n")
}
