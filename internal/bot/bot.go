package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/troioi-vn/tele-igniter/internal/dialogue"
)

// Bot drives the Telegram long-polling loop. All updates are handled
// sequentially on one goroutine: a user action runs to completion,
// including any catalog fetches, before the next is taken. The reload
// channel lets the ops endpoint request a catalog refresh between
// actions without a second writer.
type Bot struct {
	api    *tgbotapi.BotAPI
	d      *dialogue.Dispatcher
	reload <-chan struct{}
	log    *zap.Logger
}

func New(token string, d *dialogue.Dispatcher, reload <-chan struct{}, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	log.Info("authorized on telegram", zap.String("username", api.Self.UserName))
	return &Bot{api: api, d: d, reload: reload, log: log}, nil
}

// Run processes updates until the context is cancelled or a fatal
// catalog error surfaces.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.reload:
			b.log.Info("reload requested via ops endpoint")
			if err := b.d.ReloadCatalog(ctx); err != nil {
				return err
			}
		case update := <-updates:
			if err := b.handle(ctx, update); err != nil {
				return err
			}
		}
	}
}

func (b *Bot) handle(ctx context.Context, update tgbotapi.Update) error {
	switch {
	case update.CallbackQuery != nil:
		return b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		return b.handleMessage(ctx, update.Message)
	}
	return nil
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if _, err := b.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		b.log.Warn("callback ack failed", zap.Error(err))
	}

	s := b.d.Session(q.From.ID, q.From.FirstName, q.From.LastName)
	reply, err := b.d.Dispatch(ctx, s, q.Data)
	if err != nil {
		return err
	}

	text := withImage(reply)
	edit := tgbotapi.NewEditMessageText(q.Message.Chat.ID, q.Message.MessageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	if markup := keyboardMarkup(reply); markup != nil {
		edit.ReplyMarkup = markup
	}
	if _, err := b.api.Send(edit); err != nil {
		b.log.Warn("message edit failed", zap.Int64("user_id", q.From.ID), zap.Error(err))
	}
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	s := b.d.Session(msg.From.ID, msg.From.FirstName, msg.From.LastName)

	var reply dialogue.Reply
	switch {
	case msg.IsCommand() && msg.Command() == "start":
		b.d.Forget(msg.From.ID)
		s = b.d.Session(msg.From.ID, msg.From.FirstName, msg.From.LastName)
		reply = b.d.Start(s)
	case msg.Contact != nil:
		s.UpdatePhone(msg.Contact.PhoneNumber)
		reply = dialogue.Reply{Text: "Your phone number is saved."}
	case msg.Text != "":
		reply = b.d.Text(ctx, s, msg.Text)
	default:
		return nil
	}

	if reply.Sticker != "" {
		sticker := tgbotapi.NewSticker(msg.Chat.ID, tgbotapi.FileID(reply.Sticker))
		if _, err := b.api.Send(sticker); err != nil {
			b.log.Warn("sticker send failed", zap.Error(err))
		}
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, withImage(reply))
	out.ParseMode = tgbotapi.ModeHTML
	if markup := keyboardMarkup(reply); markup != nil {
		out.ReplyMarkup = markup
	}
	sent, err := b.api.Send(out)
	if err != nil {
		b.log.Warn("message send failed", zap.Int64("user_id", msg.From.ID), zap.Error(err))
		return nil
	}
	s.RememberMessage(sent.MessageID)
	return nil
}

// withImage attaches the item image as an invisible trailing link, so
// Telegram renders it as the message preview.
func withImage(r dialogue.Reply) string {
	if r.Image == "" {
		return r.Text
	}
	return fmt.Sprintf("%s <a href=\"%s\">.</a>", r.Text, r.Image)
}

func keyboardMarkup(r dialogue.Reply) *tgbotapi.InlineKeyboardMarkup {
	if len(r.Keyboard) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(r.Keyboard))
	for _, row := range r.Keyboard {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Action))
		}
		rows = append(rows, buttons)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}
