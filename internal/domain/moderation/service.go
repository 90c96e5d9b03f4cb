package moderation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Spok95/signals-bot/internal/domain/users"
)

var (
	// ErrInvalidPlatformID — ID платформы состоит не только из цифр.
	ErrInvalidPlatformID = errors.New("platform id must contain only digits")
	// ErrNotAllowed — переход из текущего статуса запрещён.
	ErrNotAllowed = errors.New("transition not allowed from current status")
)

// Notifier — исходящие уведомления по итогам переходов. Ошибки доставки
// логируются и не откатывают сам переход.
type Notifier interface {
	NotifyUser(ctx context.Context, tgID int64, text string) error
	NotifyAdminNewID(ctx context.Context, u *users.User) error
}

const (
	msgConfirmed = "✅ <b>Доступ подтверждён!</b>\n\nТеперь вам доступны сигналы."
	msgBlocked   = "🚫 <b>Доступ заблокирован</b>"
)

// Service — машина статусов new → pending → {confirmed | blocked}.
// Авторизацию админских вызовов выполняет вызывающая сторона.
type Service struct {
	store    users.Store
	notifier Notifier
	log      *slog.Logger
	locks    *keyedMutex
}

func NewService(store users.Store, notifier Notifier, log *slog.Logger) *Service {
	return &Service{store: store, notifier: notifier, log: log, locks: newKeyedMutex()}
}

// SubmitPlatformID принимает ID платформы от пользователя. Разрешено из
// new и pending (повторная отправка перезаписывает ID), из confirmed/blocked — нет.
func (s *Service) SubmitPlatformID(ctx context.Context, tgID int64, raw string) (*users.User, error) {
	unlock := s.locks.lock(tgID)
	defer unlock()

	u, err := s.store.GetByTelegramID(ctx, tgID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, users.ErrNotFound
	}
	if u.Status == users.StatusConfirmed || u.Status == users.StatusBlocked {
		return nil, ErrNotAllowed
	}
	if !isDigits(raw) {
		return nil, ErrInvalidPlatformID
	}

	// Предварительная проверка занятости; гонку двух одновременных отправок
	// закрывает уникальный индекс внутри SetPlatformID.
	existing, err := s.store.GetByPlatformID(ctx, raw)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.TelegramID != tgID {
		return nil, users.ErrPlatformIDTaken
	}

	updated, err := s.store.SetPlatformID(ctx, tgID, raw)
	if err != nil {
		return nil, err
	}

	if err := s.notifier.NotifyAdminNewID(ctx, updated); err != nil {
		s.log.Error("admin notification failed", "tg_id", tgID, "err", err)
	}
	return updated, nil
}

// Confirm открывает пользователю доступ к сигналам. Допустим из любого статуса:
// админ может снова подтвердить ранее заблокированного.
func (s *Service) Confirm(ctx context.Context, tgID int64) (*users.User, error) {
	return s.decide(ctx, tgID, users.StatusConfirmed, msgConfirmed)
}

// Block закрывает доступ. Симметричен Confirm.
func (s *Service) Block(ctx context.Context, tgID int64) (*users.User, error) {
	return s.decide(ctx, tgID, users.StatusBlocked, msgBlocked)
}

func (s *Service) decide(ctx context.Context, tgID int64, st users.Status, notice string) (*users.User, error) {
	unlock := s.locks.lock(tgID)
	defer unlock()

	u, err := s.store.SetStatus(ctx, tgID, st)
	if err != nil {
		return nil, err
	}
	if err := s.notifier.NotifyUser(ctx, tgID, notice); err != nil {
		s.log.Error("decision notification failed", "tg_id", tgID, "status", st, "err", err)
	}
	return u, nil
}

// MayReceiveSignal — единственный гейт на пути выдачи сигнала.
// Вычисляется на каждый запрос, статус мог поменяться между запросами.
func MayReceiveSignal(u *users.User) bool {
	return u != nil && u.Status == users.StatusConfirmed
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
