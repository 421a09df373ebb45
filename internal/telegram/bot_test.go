package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ObiAU/questradar/internal/config"
	"github.com/ObiAU/questradar/internal/models"
)

type sentMessage struct {
	token     string
	chatID    string
	text      string
	parseMode string
	preview   string
}

type fakeTelegram struct {
	mu       sync.Mutex
	messages []sentMessage
	getMe    int
}

func (f *fakeTelegram) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, method, ok := strings.Cut(strings.TrimPrefix(r.URL.Path, "/bot"), "/")
		if !assert.True(t, ok, r.URL.Path) || !assert.NoError(t, r.ParseForm()) {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		f.mu.Lock()
		defer f.mu.Unlock()
		switch method {
		case "getMe":
			f.getMe++
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"radar","username":"radar_bot"}}`))
		case "sendMessage":
			if token == "bad" {
				_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
				return
			}
			f.messages = append(f.messages, sentMessage{
				token:     token,
				chatID:    r.PostForm.Get("chat_id"),
				text:      r.PostForm.Get("text"),
				parseMode: r.PostForm.Get("parse_mode"),
				preview:   r.PostForm.Get("disable_web_page_preview"),
			})
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":1,"type":"private"}}}`))
		default:
			http.NotFound(w, r)
		}
	}
}

func (f *fakeTelegram) sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.messages...)
}

func newTestSender(t *testing.T) (*Sender, *fakeTelegram) {
	fake := &fakeTelegram{}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	s := NewSender(zap.NewNop())
	s.endpoint = srv.URL + "/bot%s/%s"
	s.client = srv.Client()
	s.perChat = rate.Inf
	return s, fake
}

func event(alias string) models.NotifyEvent {
	return models.NotifyEvent{
		ProjectName: "BNB Chain",
		Alias:       alias,
		CampaignID:  "GC1",
		Title:       "Season <3>",
		State:       models.StateOngoing,
		Start:       "-",
		End:         "-",
		URL:         "https://app.galxe.com/quest/bnbchain/GC1",
	}
}

func TestSender_FansOutToAcceptingTargets(t *testing.T) {
	s, fake := newTestSender(t)
	disabled := false
	s.Configure(&config.Config{NotifyTargets: []config.Target{
		{Name: "all", BotToken: "t1", ChatID: "100"},
		{Name: "bnb only", BotToken: "t1", ChatID: "@radar_channel", Projects: []string{"bnbchain"}},
		{Name: "other", BotToken: "t2", ChatID: "200", Projects: []string{"arbitrum"}},
		{Name: "off", BotToken: "t2", ChatID: "300", Enabled: &disabled},
	}})

	require.NoError(t, s.Send(context.Background(), event("bnbchain")))

	msgs := fake.sent()
	require.Len(t, msgs, 2)
	assert.Equal(t, "100", msgs[0].chatID)
	assert.Equal(t, "@radar_channel", msgs[1].chatID)
	assert.Equal(t, "HTML", msgs[0].parseMode)
	assert.Empty(t, msgs[0].preview, "preview not disabled")
	assert.Contains(t, msgs[0].text, "Season &lt;3&gt;")
	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, 1, fake.getMe, "bot client cached per token")
}

func TestSender_LegacyTarget(t *testing.T) {
	s, fake := newTestSender(t)
	s.Configure(&config.Config{TelegramBotToken: "legacy", TelegramChatID: "-1001"})

	require.NoError(t, s.Send(context.Background(), event("anything")))

	msgs := fake.sent()
	require.Len(t, msgs, 1)
	assert.Equal(t, "legacy", msgs[0].token)
	assert.Equal(t, "-1001", msgs[0].chatID)
}

func TestSender_JoinsFailures(t *testing.T) {
	s, fake := newTestSender(t)
	s.Configure(&config.Config{NotifyTargets: []config.Target{
		{Name: "blocked", BotToken: "bad", ChatID: "1"},
		{Name: "broken chat", BotToken: "t1", ChatID: "not-a-number"},
		{Name: "ok", BotToken: "t1", ChatID: "2"},
	}})

	err := s.Send(context.Background(), event("bnbchain"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), `target "blocked"`)
	assert.Contains(t, err.Error(), `target "broken chat"`)
	msgs := fake.sent()
	require.Len(t, msgs, 1)
	assert.Equal(t, "2", msgs[0].chatID)
}

func TestSender_NoTargets(t *testing.T) {
	s, fake := newTestSender(t)
	s.Configure(&config.Config{})
	assert.NoError(t, s.Send(context.Background(), event("bnbchain")))
	assert.Empty(t, fake.sent())
}

func TestNewMessage(t *testing.T) {
	msg, err := newMessage(" 12345 ", "hi")
	require.NoError(t, err)
	assert.Equal(t, int64(12345), msg.ChatID)
	assert.False(t, msg.DisableWebPagePreview, "campaign link previews stay on")

	msg, err = newMessage("@channel", "hi")
	require.NoError(t, err)
	assert.Equal(t, "@channel", msg.ChannelUsername)

	_, err = newMessage("channel", "hi")
	assert.Error(t, err)
}
