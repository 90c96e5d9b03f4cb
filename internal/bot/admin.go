package bot

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xuri/excelize/v2"

	"github.com/Spok95/signals-bot/internal/dispatch"
	"github.com/Spok95/signals-bot/internal/domain/signals"
	"github.com/Spok95/signals-bot/internal/domain/users"
)

const listLimit = 10

func (b *Bot) showUsersList(ctx context.Context, chatID int64, msgID int) {
	items, err := b.users.List(ctx, users.FilterAll)
	if err != nil {
		b.log.Error("list users failed", "err", err)
		b.editHTML(chatID, msgID, "Ошибка загрузки пользователей", backAdminKeyboard())
		return
	}
	if len(items) == 0 {
		b.editHTML(chatID, msgID, "👥 Пользователей нет", backAdminKeyboard())
		return
	}

	var sb strings.Builder
	sb.WriteString("👥 <b>Список пользователей:</b>\n\n")
	for i, u := range items {
		if i == listLimit {
			sb.WriteString(fmt.Sprintf("\n…и ещё %d. Полный список — в выгрузке.", len(items)-listLimit))
			break
		}
		sb.WriteString(fmt.Sprintf("%s ID: %d | %s | %s\n", statusEmoji(u.Status), u.TelegramID, u.DisplayName(), u.Status))
	}
	b.editHTML(chatID, msgID, sb.String(), backAdminKeyboard())
}

func (b *Bot) showPendingUsers(ctx context.Context, chatID int64, msgID int) {
	items, err := b.users.List(ctx, users.FilterPending)
	if err != nil {
		b.log.Error("list pending failed", "err", err)
		b.editHTML(chatID, msgID, "Ошибка загрузки пользователей", backAdminKeyboard())
		return
	}
	if len(items) == 0 {
		b.editHTML(chatID, msgID, "⏳ Нет пользователей ожидающих подтверждения", backAdminKeyboard())
		return
	}

	var sb strings.Builder
	sb.WriteString("⏳ <b>Пользователи ожидающие подтверждения:</b>\n\n")
	rows := [][]tgbotapi.InlineKeyboardButton{}
	for _, u := range items {
		pid := "—"
		if u.PlatformID != nil {
			pid = *u.PlatformID
		}
		sb.WriteString(fmt.Sprintf("👤 ID: %d | %s | 📱 %s\n", u.TelegramID, u.DisplayName(), pid))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("✅ Подтвердить %d", u.TelegramID),
				fmt.Sprintf("confirm:%d", u.TelegramID)),
		))
	}
	rows = append(rows, backAdminKeyboard().InlineKeyboard[0])
	b.editHTML(chatID, msgID, sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) showBlockList(ctx context.Context, chatID int64, msgID int) {
	items, err := b.users.List(ctx, users.FilterAll)
	if err != nil {
		b.log.Error("list users failed", "err", err)
		b.editHTML(chatID, msgID, "Ошибка загрузки пользователей", backAdminKeyboard())
		return
	}
	if len(items) == 0 {
		b.editHTML(chatID, msgID, "👥 Нет пользователей для блокировки", backAdminKeyboard())
		return
	}

	var sb strings.Builder
	sb.WriteString("🚫 <b>Выберите пользователя для блокировки:</b>\n\n")
	rows := [][]tgbotapi.InlineKeyboardButton{}
	for i, u := range items {
		if i == listLimit {
			break
		}
		sb.WriteString(fmt.Sprintf("%s ID: %d | %s\n", statusEmoji(u.Status), u.TelegramID, u.DisplayName()))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("🚫 Блок %d", u.TelegramID),
				fmt.Sprintf("block:%d", u.TelegramID)),
		))
	}
	rows = append(rows, backAdminKeyboard().InlineKeyboard[0])
	b.editHTML(chatID, msgID, sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

// broadcastTo рассылает текст пользователям по фильтру и возвращает сводку.
// Не узнать получателей — жёсткая ошибка: частичные отказы доставки рассылку
// не роняют, а вот без списка она не начиналась вовсе.
func (b *Bot) broadcastTo(ctx context.Context, f users.Filter, text string) (dispatch.Report, error) {
	items, err := b.users.List(ctx, f)
	if err != nil {
		return dispatch.Report{}, fmt.Errorf("list recipients: %w", err)
	}
	recipients := make([]int64, 0, len(items))
	for _, u := range items {
		recipients = append(recipients, u.TelegramID)
	}
	return b.caster.Broadcast(ctx, recipients, text), nil
}

func reportText(header string, rep dispatch.Report) string {
	if rep.Attempted == 0 {
		return header + "\n\nПолучателей не нашлось."
	}
	return fmt.Sprintf("%s\n\nДоставлено: %d из %d (ошибок: %d)",
		header, rep.Delivered, rep.Attempted, rep.Failed)
}

// showRecentSignals — последние записи журнала сигналов.
func (b *Bot) showRecentSignals(ctx context.Context, chatID int64, msgID int) {
	if b.archive == nil {
		b.editHTML(chatID, msgID, "🗂 Журнал сигналов недоступен", backAdminKeyboard())
		return
	}
	items, err := b.archive.Recent(ctx, listLimit)
	if err != nil {
		b.log.Error("recent signals failed", "err", err)
		b.editHTML(chatID, msgID, "Ошибка загрузки журнала", backAdminKeyboard())
		return
	}
	if len(items) == 0 {
		b.editHTML(chatID, msgID, "🗂 Журнал сигналов пуст", backAdminKeyboard())
		return
	}

	var sb strings.Builder
	sb.WriteString("🗂 <b>Последние сигналы:</b>\n\n")
	for _, s := range items {
		direction := "ВВЕРХ"
		if s.Type == signals.TypePut {
			direction = "ВНИЗ"
		}
		sb.WriteString(fmt.Sprintf("%s | %s | %s | %.5f | %s\n",
			s.CreatedAt.Format("02.01 15:04"), s.Asset, direction, s.EntryPrice, s.Expiry))
	}
	b.editHTML(chatID, msgID, sb.String(), backAdminKeyboard())
}

// exportUsers собирает реестр пользователей в .xlsx и отправляет файл в чат админа.
func (b *Bot) exportUsers(ctx context.Context, chatID int64) {
	items, err := b.users.List(ctx, users.FilterAll)
	if err != nil {
		b.log.Error("list users failed", "err", err)
		b.sendHTML(chatID, "Ошибка выгрузки пользователей")
		return
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	headers := []string{"telegram_id", "username", "first_name", "last_name", "platform_id", "status", "created_at", "last_activity"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for r, u := range items {
		pid := ""
		if u.PlatformID != nil {
			pid = *u.PlatformID
		}
		values := []any{
			u.TelegramID, u.Username, u.FirstName, u.LastName, pid, string(u.Status),
			u.CreatedAt.Format("02.01.2006 15:04"),
			u.LastActivity.Format("02.01.2006 15:04"),
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		b.log.Error("users export failed", "err", err)
		b.sendHTML(chatID, "Ошибка выгрузки пользователей")
		return
	}

	doc := tgbotapi.FileBytes{
		Name:  fmt.Sprintf("users_%s.xlsx", time.Now().Format("20060102")),
		Bytes: buf.Bytes(),
	}
	msg := tgbotapi.NewDocument(chatID, doc)
	msg.Caption = fmt.Sprintf("Пользователи: %d", len(items))
	b.send(msg)
}
