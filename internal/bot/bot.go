package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/signals-bot/internal/dialog"
	"github.com/Spok95/signals-bot/internal/dispatch"
	"github.com/Spok95/signals-bot/internal/domain/moderation"
	"github.com/Spok95/signals-bot/internal/domain/signals"
	"github.com/Spok95/signals-bot/internal/domain/users"
)

// API — используемое подмножество Telegram-клиента. *tgbotapi.BotAPI
// реализует его как есть; тесты подставляют фейк.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
}

// SignalArchive — журнал выданных сигналов: просмотр для админа и чистка
// по окну хранения для планировщика.
type SignalArchive interface {
	Recent(ctx context.Context, limit int) ([]signals.Signal, error)
	DeleteOlderThan(ctx context.Context, retention time.Duration) (int64, error)
}

type Links struct {
	Register string
	Support  string
}

type Bot struct {
	api     API
	log     *slog.Logger
	users   users.Store
	states  dialog.Store
	mod     *moderation.Service
	gen     *signals.Generator
	archive SignalArchive
	caster  *dispatch.Broadcaster
	adminID int64
	links   Links
}

func New(api API, log *slog.Logger,
	usersStore users.Store, statesStore dialog.Store,
	gen *signals.Generator, archive SignalArchive,
	adminID int64, sendDelay time.Duration, links Links) *Bot {

	b := &Bot{
		api: api, log: log, users: usersStore, states: statesStore,
		gen: gen, archive: archive, adminID: adminID, links: links,
	}
	b.caster = dispatch.New(&apiSender{api: api}, sendDelay, log)
	b.mod = moderation.NewService(usersStore, b, log)
	return b
}

func (b *Bot) Run(ctx context.Context, timeoutSec int) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSec
	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd := <-updates:
			if upd.Message != nil {
				b.onMessage(ctx, upd.Message)
			} else if upd.CallbackQuery != nil {
				b.onCallback(ctx, upd.CallbackQuery)
			}
		}
	}
}

func (b *Bot) send(msg tgbotapi.Chattable) {
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send failed", "err", err)
	}
}

func (b *Bot) sendHTML(chatID int64, text string) {
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = tgbotapi.ModeHTML
	b.send(m)
}

func (b *Bot) answerCallback(cb *tgbotapi.CallbackQuery, text string, alert bool) error {
	resp := tgbotapi.NewCallback(cb.ID, text)
	resp.ShowAlert = alert
	_, err := b.api.Request(resp)
	return err
}

func (b *Bot) editHTML(chatID int64, messageID int, text string, kb tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, kb)
	edit.ParseMode = tgbotapi.ModeHTML
	b.send(edit)
}

/*** moderation.Notifier ***/

func (b *Bot) NotifyUser(_ context.Context, tgID int64, text string) error {
	m := tgbotapi.NewMessage(tgID, text)
	m.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(m)
	return err
}

func (b *Bot) NotifyAdminNewID(_ context.Context, u *users.User) error {
	pid := ""
	if u.PlatformID != nil {
		pid = *u.PlatformID
	}
	text := fmt.Sprintf(
		"🆔 <b>Новый ID!</b>\n\n👤 %s\n🆔 %d\n📱 %s\n⏰ %s",
		u.DisplayName(), u.TelegramID, pid, time.Now().Format("15:04"),
	)
	m := tgbotapi.NewMessage(b.adminID, text)
	m.ParseMode = tgbotapi.ModeHTML
	m.ReplyMarkup = decisionKeyboard(u.TelegramID)
	_, err := b.api.Send(m)
	return err
}

/*** dispatch.Sender ***/

type apiSender struct {
	api API
}

func (s *apiSender) Send(chatID int64, text string) error {
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = tgbotapi.ModeHTML
	_, err := s.api.Send(m)
	return err
}
