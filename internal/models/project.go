package models

import (
	"strings"
	"time"
)

type Category string

const (
	CategoryTrending Category = "trending"
	CategoryCustom   Category = "custom"
)

// NormalizeCategory maps anything that is not "trending" to custom.
func NormalizeCategory(raw string) Category {
	if strings.EqualFold(strings.TrimSpace(raw), string(CategoryTrending)) {
		return CategoryTrending
	}
	return CategoryCustom
}

// Project is a tracked Galxe space as seeded from configuration.
type Project struct {
	Name     string   `json:"name" mapstructure:"name"`
	Alias    string   `json:"alias" mapstructure:"alias"`
	Category Category `json:"category" mapstructure:"category"`
}

// DisplayName falls back to the alias when no name was configured.
func (p Project) DisplayName() string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	return p.Alias
}

// ProjectState is a tracked project together with the campaign fetched for it
// in the latest cycle. Latest is nil when nothing was fetched.
type ProjectState struct {
	Project
	Latest *Campaign      `json:"latest"`
	URL    string         `json:"url"`
	Status LifecycleState `json:"status"`
}

func (p ProjectState) HasCampaign() bool {
	return p.Latest != nil
}

// Snapshot is the published result of one complete polling cycle.
type Snapshot struct {
	CycleID  string         `json:"cycle_id,omitempty"`
	LastLoop time.Time      `json:"last_loop"`
	Projects []ProjectState `json:"projects"`
}
