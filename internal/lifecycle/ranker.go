package lifecycle

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ObiAU/questradar/internal/models"
)

// DefaultOrder ranks running campaigns first. Projects without any campaign
// always sort after every state listed here.
var DefaultOrder = []models.LifecycleState{
	models.StateOngoing,
	models.StateNotStarted,
	models.StateUnknown,
	models.StateEnded,
}

// Ranker orders project states for display.
type Ranker struct {
	order []models.LifecycleState
	rank  map[models.LifecycleState]int
}

// NewRanker builds a ranker from a state priority order. The order must name
// each lifecycle state exactly once.
func NewRanker(order []models.LifecycleState) (*Ranker, error) {
	if len(order) != len(models.AllStates) {
		return nil, fmt.Errorf("status order must list %d states, got %d", len(models.AllStates), len(order))
	}
	rank := make(map[models.LifecycleState]int, len(order))
	for i, state := range order {
		if _, known := models.ParseState(string(state)); !known {
			return nil, fmt.Errorf("unknown state %q in status order", state)
		}
		if _, dup := rank[state]; dup {
			return nil, fmt.Errorf("state %q listed twice in status order", state)
		}
		rank[state] = i
	}
	return &Ranker{order: slices.Clone(order), rank: rank}, nil
}

// DefaultRanker uses DefaultOrder.
func DefaultRanker() *Ranker {
	r, err := NewRanker(DefaultOrder)
	if err != nil {
		panic(err)
	}
	return r
}

// ParseOrder turns configured state names into an order for NewRanker.
func ParseOrder(names []string) ([]models.LifecycleState, error) {
	order := make([]models.LifecycleState, 0, len(names))
	for _, name := range names {
		state, ok := models.ParseState(name)
		if !ok {
			return nil, fmt.Errorf("unknown state %q in status order", name)
		}
		order = append(order, state)
	}
	return order, nil
}

func (r *Ranker) Order() []models.LifecycleState {
	return slices.Clone(r.order)
}

// Compare is the display comparator: state group, trending before custom,
// most relevant instant newest first, then name ignoring case.
func (r *Ranker) Compare(a, b models.ProjectState) int {
	if c := cmp.Compare(r.group(a), r.group(b)); c != 0 {
		return c
	}
	if c := cmp.Compare(categoryRank(a.Category), categoryRank(b.Category)); c != 0 {
		return c
	}
	if c := relevantInstant(b).Compare(relevantInstant(a)); c != 0 {
		return c
	}
	return cmp.Compare(strings.ToLower(a.DisplayName()), strings.ToLower(b.DisplayName()))
}

// Sort returns a stably sorted copy of projects.
func (r *Ranker) Sort(projects []models.ProjectState) []models.ProjectState {
	sorted := slices.Clone(projects)
	slices.SortStableFunc(sorted, r.Compare)
	return sorted
}

func (r *Ranker) group(p models.ProjectState) int {
	if !p.HasCampaign() {
		return len(r.order)
	}
	if rank, ok := r.rank[p.Status]; ok {
		return rank
	}
	return r.rank[models.StateUnknown]
}

func categoryRank(c models.Category) int {
	if c == models.CategoryTrending {
		return 0
	}
	return 1
}

// relevantInstant is the campaign start, else its creation time, else zero.
func relevantInstant(p models.ProjectState) time.Time {
	if t, ok := Normalize(p.Latest.StartTime()); ok {
		return t
	}
	if t, ok := Normalize(p.Latest.CreatedAt()); ok {
		return t
	}
	return time.Time{}
}
