package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Campaign is a raw campaign record as fetched from the upstream API. The
// field bag is kept as-is; each poll produces a new value.
type Campaign struct {
	fields map[string]any
}

// campaignIDKeys lists the identifier keys in resolution order.
var campaignIDKeys = []string{"id", "campaignId", "campaignID", "hashId", "slug"}

func NewCampaign(fields map[string]any) *Campaign {
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return &Campaign{fields: copied}
}

// DecodeCampaign parses a JSON object into a Campaign. Numbers are kept as
// json.Number so millisecond timestamps survive untouched.
func DecodeCampaign(raw []byte) (*Campaign, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decode campaign: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("decode campaign: not an object")
	}
	return &Campaign{fields: fields}, nil
}

func (c *Campaign) Field(key string) any {
	if c == nil {
		return nil
	}
	return c.fields[key]
}

// ID returns the first non-empty identifier among the known alternate keys,
// or "" when none resolves.
func (c *Campaign) ID() string {
	if c == nil {
		return ""
	}
	for _, key := range campaignIDKeys {
		if id := scalarString(c.fields[key]); id != "" {
			return id
		}
	}
	return ""
}

func (c *Campaign) Name() string {
	return strings.TrimSpace(scalarString(c.Field("name")))
}

func (c *Campaign) StartTime() any { return c.Field("startTime") }
func (c *Campaign) EndTime() any   { return c.Field("endTime") }
func (c *Campaign) CreatedAt() any { return c.Field("createdAt") }

// Status is the upstream status string, if any. It is not trusted on its own.
func (c *Campaign) Status() string {
	return strings.TrimSpace(scalarString(c.Field("status")))
}

func (c *Campaign) MarshalJSON() ([]byte, error) {
	if c == nil || c.fields == nil {
		return []byte("null"), nil
	}
	return json.Marshal(c.fields)
}

func (c *Campaign) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeCampaign(data)
	if err != nil {
		return err
	}
	c.fields = decoded.fields
	return nil
}

func scalarString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		if val == "0" {
			return ""
		}
		return val.String()
	case float64:
		if val == 0 {
			return ""
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		if val == 0 {
			return ""
		}
		return strconv.Itoa(val)
	case int64:
		if val == 0 {
			return ""
		}
		return strconv.FormatInt(val, 10)
	default:
		return ""
	}
}
