package bot

import (
	"fmt"
	"time"

	"github.com/Spok95/signals-bot/internal/domain/signals"
	"github.com/Spok95/signals-bot/internal/domain/users"
)

const (
	textWelcome = "👋 <b>Добро пожаловать!</b>\n\nДля получения сигналов:\n1. Зарегистрируйтесь\n2. Отправьте ID\n3. Дождитесь подтверждения\n\nВыберите действие:"
	textAdmin   = "👋 <b>Админ-панель</b>\n\nВыберите действие:"
	textHelp    = "Команды:\n/start — главное меню\n/help — помощь"

	textSendID       = "🆔 <b>Отправка ID</b>\n\nНапишите ваш ID после регистрации:"
	textIDSaved      = "✅ ID сохранён! Ожидайте подтверждения."
	textIDNotDigits  = "❗️ ID должен содержать только цифры"
	textIDTaken      = "⛔️ Этот ID уже используется"
	textNoChangeID   = "Изменение ID сейчас недоступно. Обратитесь в поддержку."
	textAccessClosed = "⛔️ <b>Доступ закрыт</b>\n\nДождитесь подтверждения от администратора."
	textNoSignals    = "😔 Сейчас нет сигналов"
	textTryLater     = "❌ Произошла ошибка. Попробуйте ещё раз."

	textSignalForm  = "📢 <b>Рассылка сигнала</b>\n\nНапишите сигнал в формате:\nАктив ВХОД Время\n\nНапример:\nEUR/USD ВВЕРХ 2мин"
	textMessageForm = "✉️ <b>Сообщение всем</b>\n\nНапишите сообщение для рассылки:"
)

func textRegister(link string) string {
	return fmt.Sprintf("🔗 <b>Регистрация</b>\n\nПерейдите по ссылке:\n%s\n\nПосле регистрации отправьте ID.", link)
}

func renderSignal(s *signals.Signal) string {
	direction := "ВВЕРХ"
	if s.Type == signals.TypePut {
		direction = "ВНИЗ"
	}
	return fmt.Sprintf(
		"📢 <b>СИГНАЛ</b>\n\n📍 Актив: %s\n📈 ВХОД: %s\n⏱️ Время: %s\n💰 Вход: %.5f\n🎯 Цель: %.5f\n📊 Точность: %.2f%%\n\n⏰ %s",
		s.Asset, direction, s.Expiry, s.EntryPrice, s.TargetPrice, s.Accuracy,
		s.CreatedAt.Format("15:04:05"),
	)
}

func renderSignalBroadcast(body string) string {
	return fmt.Sprintf("🚨 <b>СИГНАЛ!</b>\n\n%s\n\n⏰ %s", body, time.Now().Format("15:04:05"))
}

func renderMessageBroadcast(body string) string {
	return fmt.Sprintf("📢 <b>Сообщение от администратора:</b>\n\n%s\n\n⏰ %s", body, time.Now().Format("15:04:05"))
}

func statusEmoji(st users.Status) string {
	switch st {
	case users.StatusConfirmed:
		return "✅"
	case users.StatusPending:
		return "⏳"
	case users.StatusBlocked:
		return "❌"
	default:
		return "▫️"
	}
}
