package galxe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/time/rate"

	"github.com/ObiAU/questradar/internal/models"
)

const (
	DefaultEndpoint = "https://graphigo.prd.galaxy.eco/query"
	defaultTimeout  = 15 * time.Second
	maxResponseSize = 4 << 20
	userAgent       = "questradar/1"
)

// ErrSpaceNotFound is returned when the alias does not resolve to a space.
var ErrSpaceNotFound = errors.New("galxe space not found")

const latestQuery = `query LatestSafe($alias:String!){
  space(alias:$alias){
    id
    name
    alias
    campaigns(input:{}){
      list{
        id
        name
        createdAt
        startTime
        endTime
        status
      }
    }
  }
}`

type Client struct {
	client   *http.Client
	endpoint string
	limiter  *rate.Limiter
}

// NewClient paces requests at perSecond (unlimited when <= 0).
func NewClient(endpoint string, timeout time.Duration, perSecond float64) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Client{
		client:   &http.Client{Timeout: timeout},
		endpoint: endpoint,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// FetchLatest returns the newest campaign of the space named by alias, or
// nil when the space has no campaigns.
func (c *Client) FetchLatest(ctx context.Context, alias string) (*models.Campaign, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := requestBody(alias)
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("galxe returned status %d", resp.StatusCode)
	}
	return parseLatest(data)
}

func requestBody(alias string) ([]byte, error) {
	body, err := sjson.SetBytes([]byte(`{}`), "query", latestQuery)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(body, "variables.alias", alias)
}

func parseLatest(data []byte) (*models.Campaign, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("galxe returned invalid JSON")
	}
	root := gjson.ParseBytes(data)

	if errs := root.Get("errors"); errs.Exists() && len(errs.Array()) > 0 {
		msg := errs.Get("0.message").String()
		if msg == "" {
			msg = errs.Raw
		}
		return nil, fmt.Errorf("galxe query error: %s", msg)
	}

	space := root.Get("data.space")
	if !space.Exists() || space.Type == gjson.Null {
		return nil, ErrSpaceNotFound
	}

	first := space.Get("campaigns.list.0")
	if !first.Exists() || !first.IsObject() {
		return nil, nil
	}
	return models.DecodeCampaign([]byte(first.Raw))
}

// CampaignURL links to the campaign page, or "#" when the campaign has no
// identifier.
func CampaignURL(alias string, c *models.Campaign) string {
	id := c.ID()
	if alias == "" || id == "" {
		return "#"
	}
	return "https://app.galxe.com/quest/" + url.PathEscape(alias) + "/" + url.PathEscape(id)
}
