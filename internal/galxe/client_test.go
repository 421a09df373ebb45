package galxe

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/ObiAU/questradar/internal/models"
)

func serve(t *testing.T, status int, body string) (*Client, <-chan []byte) {
	received := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		b, _ := io.ReadAll(r.Body)
		select {
		case received <- b:
		default:
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, time.Second, 0), received
}

func TestFetchLatest_ReturnsFirstCampaign(t *testing.T) {
	c, received := serve(t, http.StatusOK, `{"data":{"space":{"id":"1","name":"BNB Chain","alias":"bnbchain","campaigns":{"list":[
		{"id":"GCnew","name":"Newest","startTime":1748779200,"endTime":1749643200000,"createdAt":1748700000},
		{"id":"GCold","name":"Older"}
	]}}}}`)

	got, err := c.FetchLatest(context.Background(), "bnbchain")

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "GCnew", got.ID())
	assert.Equal(t, "Newest", got.Name())
	assert.Equal(t, json.Number("1749643200000"), got.EndTime())

	req := <-received
	assert.Equal(t, "bnbchain", gjson.GetBytes(req, "variables.alias").String())
	assert.Contains(t, gjson.GetBytes(req, "query").String(), "space(alias:$alias)")
}

func TestFetchLatest_EmptyList(t *testing.T) {
	c, _ := serve(t, http.StatusOK, `{"data":{"space":{"id":"1","campaigns":{"list":[]}}}}`)
	got, err := c.FetchLatest(context.Background(), "quiet")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFetchLatest_Failures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"graphql errors", http.StatusOK, `{"errors":[{"message":"rate limited"}]}`, func(t *testing.T, err error) {
			assert.ErrorContains(t, err, "rate limited")
		}},
		{"missing space", http.StatusOK, `{"data":{"space":null}}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrSpaceNotFound)
		}},
		{"http status", http.StatusBadGateway, `oops`, func(t *testing.T, err error) {
			assert.ErrorContains(t, err, "status 502")
		}},
		{"invalid json", http.StatusOK, `{"data":`, func(t *testing.T, err error) {
			assert.ErrorContains(t, err, "invalid JSON")
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := serve(t, tc.status, tc.body)
			got, err := c.FetchLatest(context.Background(), "bnbchain")
			require.Error(t, err)
			assert.Nil(t, got)
			tc.check(t, err)
		})
	}
}

func TestFetchLatest_CancelledContext(t *testing.T) {
	c, _ := serve(t, http.StatusOK, `{}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.FetchLatest(ctx, "bnbchain")
	assert.Error(t, err)
}

func TestCampaignURL(t *testing.T) {
	c := models.NewCampaign(map[string]any{"hashId": "GCx1"})
	assert.Equal(t, "https://app.galxe.com/quest/bnbchain/GCx1", CampaignURL("bnbchain", c))
	assert.Equal(t, "#", CampaignURL("bnbchain", models.NewCampaign(map[string]any{"name": "n"})))
	assert.Equal(t, "#", CampaignURL("bnbchain", nil))
}
