package tg

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvzzle/taptracker/internal/logger"
)

type sentMessage struct {
	ChatID      string
	Text        string
	ReplyMarkup string
}

// botAPI fakes the Telegram Bot API sendMessage method.
type botAPI struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *botAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, "/sendMessage") {
		http.NotFound(w, r)
		return
	}

	msg := sentMessage{}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		msg.ChatID = r.FormValue("chat_id")
		msg.Text = r.FormValue("text")
		msg.ReplyMarkup = r.FormValue("reply_markup")
	} else {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		raw, _ := json.Marshal(body["reply_markup"])
		msg.Text, _ = body["text"].(string)
		msg.ReplyMarkup = string(raw)
	}

	f.mu.Lock()
	f.sent = append(f.sent, msg)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":7,"type":"private"}}}`))
}

func (f *botAPI) last(t *testing.T) sentMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

func newTestService(t *testing.T, webAppURL string) (*Service, *tgbot.Bot, *botAPI) {
	t.Helper()
	api := &botAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	b, err := tgbot.New(testToken, tgbot.WithServerURL(srv.URL), tgbot.WithSkipGetMe())
	require.NoError(t, err)
	return NewService(b, webAppURL, "https://t.me/+gold", logger.Discard()), b, api
}

func textUpdate(text string) *models.Update {
	return &models.Update{Message: &models.Message{
		Chat: models.Chat{ID: 7},
		Text: text,
	}}
}

func TestOnStartSendsWebAppButton(t *testing.T) {
	s, b, api := newTestService(t, "https://tracker.example/app")

	s.onStart(context.Background(), b, textUpdate("/start"))

	got := api.last(t)
	assert.Equal(t, textStart, got.Text)
	assert.Contains(t, got.ReplyMarkup, `"web_app"`)
	assert.Contains(t, got.ReplyMarkup, "https://tracker.example/app")
	assert.Contains(t, got.ReplyMarkup, "https://t.me/+gold")
}

func TestOnStartWithoutWebApp(t *testing.T) {
	s, b, api := newTestService(t, "")

	s.onStart(context.Background(), b, textUpdate("/start"))
	assert.Equal(t, textNoWebApp, api.last(t).Text)
}

func TestOnAnyTextAddress(t *testing.T) {
	s, b, api := newTestService(t, "https://tracker.example/app")
	addr := "0:" + strings.Repeat("AB", 32)

	s.onAnyText(context.Background(), b, textUpdate(addr))

	got := api.last(t)
	assert.Contains(t, got.Text, strings.ToLower(addr))
	assert.Contains(t, got.ReplyMarkup, "address=0%3A"+strings.Repeat("ab", 32))
}

func TestOnAnyTextRejectsNonAddress(t *testing.T) {
	s, b, api := newTestService(t, "https://tracker.example/app")

	s.onAnyText(context.Background(), b, textUpdate("hello"))
	assert.Equal(t, textNotAddress, api.last(t).Text)

	// commands never get a reply here
	s.onAnyText(context.Background(), b, textUpdate("/help"))
	api.mu.Lock()
	assert.Len(t, api.sent, 1)
	api.mu.Unlock()
}
