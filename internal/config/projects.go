package config

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/ObiAU/questradar/internal/models"
)

var (
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrDuplicateAlias  = errors.New("alias already tracked")
	ErrInvalidMethod   = errors.New("invalid notify method")
	ErrMissingField    = errors.New("missing required field")
)

type Method string

const (
	MethodNone     Method = "none"
	MethodTelegram Method = "telegram"
	MethodDiscord  Method = "discord"
	MethodBoth     Method = "both"
)

func ParseMethod(raw string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(raw)))
	switch m {
	case "":
		return MethodNone, nil
	case MethodNone, MethodTelegram, MethodDiscord, MethodBoth:
		return m, nil
	}
	return MethodNone, fmt.Errorf("%w: %q", ErrInvalidMethod, raw)
}

func (m Method) UsesTelegram() bool { return m == MethodTelegram || m == MethodBoth }
func (m Method) UsesDiscord() bool  { return m == MethodDiscord || m == MethodBoth }

// AddProject appends a tracked project. Aliases are unique because dedup
// state is keyed on them.
func (c *Config) AddProject(p models.Project) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Alias = strings.TrimSpace(p.Alias)
	if p.Alias == "" {
		return fmt.Errorf("%w: alias", ErrMissingField)
	}
	if p.Name == "" {
		p.Name = p.Alias
	}
	p.Category = models.NormalizeCategory(string(p.Category))
	for _, existing := range c.Projects {
		if existing.Alias == p.Alias {
			return fmt.Errorf("%w: %s", ErrDuplicateAlias, p.Alias)
		}
	}
	c.Projects = append(c.Projects, p)
	return nil
}

// ParseBulk reads one project per line: "alias", "name,alias" or
// "name,alias,category". Blank lines and lines starting with # are skipped.
func ParseBulk(text string) []models.Project {
	var projects []models.Project
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := SplitList(line)

		var p models.Project
		switch len(parts) {
		case 0:
			continue
		case 1:
			p = models.Project{Name: parts[0], Alias: parts[0], Category: models.CategoryCustom}
		case 2:
			p = models.Project{Name: parts[0], Alias: parts[1], Category: models.CategoryCustom}
		default:
			p = models.Project{Name: parts[0], Alias: parts[1], Category: models.NormalizeCategory(parts[2])}
		}
		projects = append(projects, p)
	}
	return projects
}

// AddBulk adds every parsed project, skipping aliases already tracked. It
// returns the number added.
func (c *Config) AddBulk(text string) int {
	added := 0
	for _, p := range ParseBulk(text) {
		if err := c.AddProject(p); err == nil {
			added++
		}
	}
	return added
}

func (c *Config) RemoveProject(index int) (models.Project, error) {
	if index < 0 || index >= len(c.Projects) {
		return models.Project{}, fmt.Errorf("%w: project %d", ErrIndexOutOfRange, index)
	}
	removed := c.Projects[index]
	c.Projects = append(c.Projects[:index], c.Projects[index+1:]...)
	return removed, nil
}

func (c *Config) AddTarget(t Target) error {
	t.Name = strings.TrimSpace(t.Name)
	t.BotToken = strings.TrimSpace(t.BotToken)
	t.ChatID = strings.TrimSpace(t.ChatID)
	switch {
	case t.Name == "":
		return fmt.Errorf("%w: name", ErrMissingField)
	case t.BotToken == "":
		return fmt.Errorf("%w: bot_token", ErrMissingField)
	case t.ChatID == "":
		return fmt.Errorf("%w: chat_id", ErrMissingField)
	}
	c.NotifyTargets = append(c.NotifyTargets, t)
	return nil
}

func (c *Config) RemoveTarget(index int) (Target, error) {
	if index < 0 || index >= len(c.NotifyTargets) {
		return Target{}, fmt.Errorf("%w: target %d", ErrIndexOutOfRange, index)
	}
	removed := c.NotifyTargets[index]
	c.NotifyTargets = append(c.NotifyTargets[:index], c.NotifyTargets[index+1:]...)
	return removed, nil
}

// SetNotify changes the notify method and Discord webhook URL.
func (c *Config) SetNotify(method, discordWebhookURL string) error {
	m, err := ParseMethod(method)
	if err != nil {
		return err
	}
	c.NotifyMethod = string(m)
	c.DiscordWebhookURL = strings.TrimSpace(discordWebhookURL)
	return nil
}

// SplitList turns "a, b,,c" into [a b c].
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
