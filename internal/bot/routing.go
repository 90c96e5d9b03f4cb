package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/signals-bot/internal/dialog"
	"github.com/Spok95/signals-bot/internal/domain/moderation"
	"github.com/Spok95/signals-bot/internal/domain/users"
)

func telegramOf(from *tgbotapi.User) users.Telegram {
	return users.Telegram{
		ID:        from.ID,
		Username:  from.UserName,
		FirstName: from.FirstName,
		LastName:  from.LastName,
	}
}

func (b *Bot) onMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	if msg.From.ID == b.adminID {
		b.handleAdminText(ctx, msg)
		return
	}
	b.handleUserText(ctx, msg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		if _, err := b.users.UpsertFromTelegram(ctx, telegramOf(msg.From)); err != nil {
			b.log.Error("upsert user failed", "tg_id", msg.From.ID, "err", err)
			b.sendHTML(chatID, textTryLater)
			return
		}
		if msg.From.ID == b.adminID {
			m := tgbotapi.NewMessage(chatID, textAdmin)
			m.ParseMode = tgbotapi.ModeHTML
			m.ReplyMarkup = adminMenuKeyboard()
			b.send(m)
			return
		}
		m := tgbotapi.NewMessage(chatID, textWelcome)
		m.ParseMode = tgbotapi.ModeHTML
		m.ReplyMarkup = userMenuKeyboard(b.links.Support)
		b.send(m)

	case "help":
		b.send(tgbotapi.NewMessage(chatID, textHelp))

	default:
		b.send(tgbotapi.NewMessage(chatID, "Не знаю такую команду. Наберите /help"))
	}
}

// handleUserText: свободный текст принимается как ID платформы только в
// состоянии await_platform_id, вне формы — возврат в меню. Пользователь
// создаётся при первом контакте, даже без /start.
func (b *Bot) handleUserText(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	tgID := msg.From.ID

	if _, err := b.users.UpsertFromTelegram(ctx, telegramOf(msg.From)); err != nil {
		b.log.Error("upsert user failed", "tg_id", tgID, "err", err)
		b.sendHTML(chatID, textTryLater)
		return
	}

	st, err := b.states.Get(ctx, chatID)
	if err != nil {
		b.log.Error("dialog state read failed", "chat_id", chatID, "err", err)
		b.sendHTML(chatID, textTryLater)
		return
	}
	if st.State != dialog.StateAwaitPlatformID {
		m := tgbotapi.NewMessage(chatID, textWelcome)
		m.ParseMode = tgbotapi.ModeHTML
		m.ReplyMarkup = userMenuKeyboard(b.links.Support)
		b.send(m)
		return
	}

	_, err = b.mod.SubmitPlatformID(ctx, tgID, strings.TrimSpace(msg.Text))
	switch {
	case err == nil:
		_ = b.states.Reset(ctx, chatID)
		b.sendHTML(chatID, textIDSaved)
	case errors.Is(err, moderation.ErrInvalidPlatformID):
		b.sendHTML(chatID, textIDNotDigits)
	case errors.Is(err, users.ErrPlatformIDTaken):
		b.sendHTML(chatID, textIDTaken)
	case errors.Is(err, moderation.ErrNotAllowed):
		b.sendHTML(chatID, textNoChangeID)
	default:
		b.log.Error("submit platform id failed", "tg_id", tgID, "err", err)
		b.sendHTML(chatID, textTryLater)
	}
}

func (b *Bot) handleAdminText(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	st, err := b.states.Get(ctx, chatID)
	if err != nil {
		b.log.Error("dialog state read failed", "chat_id", chatID, "err", err)
		b.sendHTML(chatID, textTryLater)
		return
	}

	switch st.State {
	case dialog.StateAdmAwaitSignal:
		rep, err := b.broadcastTo(ctx, users.FilterConfirmed, renderSignalBroadcast(text))
		if err != nil {
			// состояние не сбрасываем: тот же текст можно отправить повторно
			b.log.Error("signal broadcast failed", "err", err)
			b.sendHTML(chatID, textTryLater)
			return
		}
		_ = b.states.Reset(ctx, chatID)
		b.sendHTML(chatID, reportText("✅ Сигнал разослан!", rep))

	case dialog.StateAdmAwaitMessage:
		rep, err := b.broadcastTo(ctx, users.FilterAll, renderMessageBroadcast(text))
		if err != nil {
			b.log.Error("message broadcast failed", "err", err)
			b.sendHTML(chatID, textTryLater)
			return
		}
		_ = b.states.Reset(ctx, chatID)
		b.sendHTML(chatID, reportText("✅ Сообщение разослано!", rep))

	default:
		m := tgbotapi.NewMessage(chatID, textAdmin)
		m.ParseMode = tgbotapi.ModeHTML
		m.ReplyMarkup = adminMenuKeyboard()
		b.send(m)
	}
}

func (b *Bot) onCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		_ = b.answerCallback(cb, "", false)
		return
	}
	if cb.From.ID == b.adminID {
		b.handleAdminCallback(ctx, cb)
		return
	}
	b.handleUserCallback(ctx, cb)
}

func (b *Bot) handleUserCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	msgID := cb.Message.MessageID

	switch cb.Data {
	case "register":
		b.editHTML(chatID, msgID, textRegister(b.links.Register), backUserKeyboard())
		_ = b.answerCallback(cb, "", false)

	case "send_id":
		_ = b.states.Set(ctx, chatID, dialog.StateAwaitPlatformID, dialog.Payload{})
		b.editHTML(chatID, msgID, textSendID, backUserKeyboard())
		_ = b.answerCallback(cb, "", false)

	case "get_signal":
		b.handleGetSignal(ctx, cb)

	case "nav:user":
		b.editHTML(chatID, msgID, textWelcome, userMenuKeyboard(b.links.Support))
		_ = b.answerCallback(cb, "", false)

	default:
		// в том числе попытки дёрнуть админские кнопки
		_ = b.answerCallback(cb, "Недоступно", false)
	}
}

// handleGetSignal — единственный путь выдачи сигнала; статус перечитывается
// на каждый запрос.
func (b *Bot) handleGetSignal(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	msgID := cb.Message.MessageID
	tgID := cb.From.ID

	u, err := b.users.GetByTelegramID(ctx, tgID)
	if err != nil {
		b.log.Error("get user failed", "tg_id", tgID, "err", err)
		b.editHTML(chatID, msgID, textTryLater, backUserKeyboard())
		_ = b.answerCallback(cb, "", false)
		return
	}
	if !moderation.MayReceiveSignal(u) {
		b.editHTML(chatID, msgID, textAccessClosed, backUserKeyboard())
		_ = b.answerCallback(cb, "", false)
		return
	}
	_ = b.users.TouchActivity(ctx, tgID)

	sig, err := b.gen.Generate(ctx)
	if err != nil {
		b.log.Error("generate signal failed", "err", err)
		b.editHTML(chatID, msgID, textTryLater, backUserKeyboard())
		_ = b.answerCallback(cb, "", false)
		return
	}
	if sig == nil {
		b.editHTML(chatID, msgID, textNoSignals, backUserKeyboard())
		_ = b.answerCallback(cb, "", false)
		return
	}
	b.editHTML(chatID, msgID, renderSignal(sig), signalKeyboard())
	_ = b.answerCallback(cb, "", false)
}

func (b *Bot) handleAdminCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	msgID := cb.Message.MessageID
	data := cb.Data

	switch {
	case data == "adm:users":
		b.showUsersList(ctx, chatID, msgID)
		_ = b.answerCallback(cb, "", false)

	case data == "adm:pending":
		b.showPendingUsers(ctx, chatID, msgID)
		_ = b.answerCallback(cb, "", false)

	case data == "adm:block":
		b.showBlockList(ctx, chatID, msgID)
		_ = b.answerCallback(cb, "", false)

	case data == "adm:signal":
		_ = b.states.Set(ctx, chatID, dialog.StateAdmAwaitSignal, dialog.Payload{})
		b.editHTML(chatID, msgID, textSignalForm, backAdminKeyboard())
		_ = b.answerCallback(cb, "", false)

	case data == "adm:message":
		_ = b.states.Set(ctx, chatID, dialog.StateAdmAwaitMessage, dialog.Payload{})
		b.editHTML(chatID, msgID, textMessageForm, backAdminKeyboard())
		_ = b.answerCallback(cb, "", false)

	case data == "adm:recent":
		b.showRecentSignals(ctx, chatID, msgID)
		_ = b.answerCallback(cb, "", false)

	case data == "adm:export":
		b.exportUsers(ctx, chatID)
		_ = b.answerCallback(cb, "Готовлю файл", false)

	case strings.HasPrefix(data, "confirm:"):
		b.handleDecision(ctx, cb, strings.TrimPrefix(data, "confirm:"), true)

	case strings.HasPrefix(data, "block:"):
		b.handleDecision(ctx, cb, strings.TrimPrefix(data, "block:"), false)

	case data == "nav:admin":
		_ = b.states.Reset(ctx, chatID)
		b.editHTML(chatID, msgID, textAdmin, adminMenuKeyboard())
		_ = b.answerCallback(cb, "", false)

	default:
		_ = b.answerCallback(cb, "Недоступно", false)
	}
}

func (b *Bot) handleDecision(ctx context.Context, cb *tgbotapi.CallbackQuery, rawID string, confirm bool) {
	chatID := cb.Message.Chat.ID
	msgID := cb.Message.MessageID

	tgID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		_ = b.answerCallback(cb, "Некорректные данные", true)
		return
	}

	if confirm {
		_, err = b.mod.Confirm(ctx, tgID)
	} else {
		_, err = b.mod.Block(ctx, tgID)
	}
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			_ = b.answerCallback(cb, "Пользователь не найден", true)
			return
		}
		b.log.Error("decision failed", "tg_id", tgID, "confirm", confirm, "err", err)
		_ = b.answerCallback(cb, "Ошибка, попробуйте ещё раз", true)
		return
	}

	if confirm {
		b.editHTML(chatID, msgID, fmt.Sprintf("✅ Пользователь %d подтверждён!", tgID), backAdminKeyboard())
		_ = b.answerCallback(cb, "Подтверждено", false)
		return
	}
	b.editHTML(chatID, msgID, fmt.Sprintf("🚫 Пользователь %d заблокирован!", tgID), backAdminKeyboard())
	_ = b.answerCallback(cb, "Заблокировано", false)
}
