package tg

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/pvzzle/taptracker/internal/logger"
)

const (
	textStart = "Tap tracker shows the rewards your account earned from taps.\n\n" +
		"Open the tracker below or send me an account address (0:...)."
	textAddress    = "Open the tap history of %s:"
	textNotAddress = "That does not look like an account address. Expected workchain:64 hex, e.g. 0:1f2e..."
	textNoWebApp   = "The tracker is not available right now."
	textGoldHint   = "Tap history is available to GOLD channel subscribers."
)

// Service is the bot front door: it hands out WebApp buttons that open the
// tracker. All reward data is served by the HTTP API.
type Service struct {
	bot        *tgbot.Bot
	webAppURL  string
	inviteLink string
	log        *slog.Logger
}

func NewService(b *tgbot.Bot, webAppURL, inviteLink string, log *slog.Logger) *Service {
	s := &Service{
		bot:        b,
		webAppURL:  webAppURL,
		inviteLink: inviteLink,
		log:        logger.Component(log, "tg"),
	}
	s.registerHandlers()
	return s
}

func (s *Service) registerHandlers() {
	s.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/start", tgbot.MatchTypeExact, s.onStart)
	s.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "", tgbot.MatchTypePrefix, s.onAnyText)
}

// Run polls for updates until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	s.log.Info("bot polling started")
	s.bot.Start(ctx)
	s.log.Info("bot polling stopped")
}

func (s *Service) onStart(ctx context.Context, b *tgbot.Bot, upd *models.Update) {
	if upd.Message == nil {
		return
	}
	chatID := upd.Message.Chat.ID

	params := &tgbot.SendMessageParams{ChatID: chatID, Text: textStart}
	if markup := s.keyboard("Open tracker", s.webAppURL); markup != nil {
		params.ReplyMarkup = markup
	} else {
		params.Text = textNoWebApp
	}
	s.send(ctx, b, params)
}

func (s *Service) onAnyText(ctx context.Context, b *tgbot.Bot, upd *models.Update) {
	if upd.Message == nil {
		return
	}
	chatID := upd.Message.Chat.ID
	text := strings.TrimSpace(upd.Message.Text)

	// commands are routed elsewhere
	if strings.HasPrefix(text, "/") {
		return
	}

	if !IsAccountAddress(text) {
		s.send(ctx, b, &tgbot.SendMessageParams{ChatID: chatID, Text: textNotAddress})
		return
	}

	link, err := TrackerURL(s.webAppURL, text)
	if err != nil {
		s.log.Warn("tracker url", "err", err)
		s.send(ctx, b, &tgbot.SendMessageParams{ChatID: chatID, Text: textNoWebApp})
		return
	}

	s.send(ctx, b, &tgbot.SendMessageParams{
		ChatID:      chatID,
		Text:        fmt.Sprintf(textAddress, strings.ToLower(text)) + "\n\n" + textGoldHint,
		ReplyMarkup: s.keyboard("Open tap history", link),
	})
}

// keyboard returns a WebApp button plus, when configured, a GOLD invite button.
func (s *Service) keyboard(label, link string) *models.InlineKeyboardMarkup {
	if strings.TrimSpace(link) == "" {
		return nil
	}
	rows := [][]models.InlineKeyboardButton{
		{{Text: label, WebApp: &models.WebAppInfo{URL: link}}},
	}
	if s.inviteLink != "" {
		rows = append(rows, []models.InlineKeyboardButton{{Text: "Join GOLD", URL: s.inviteLink}})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func (s *Service) send(ctx context.Context, b *tgbot.Bot, params *tgbot.SendMessageParams) {
	if _, err := b.SendMessage(ctx, params); err != nil {
		s.log.Error("send message", "chat_id", params.ChatID, "err", err)
	}
}
