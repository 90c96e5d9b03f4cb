package dialog

import "context"

type State string

const (
	StateIdle State = "idle"

	// Пользователь
	StateAwaitPlatformID State = "await_platform_id"

	// Админ: формы рассылки
	StateAdmAwaitSignal  State = "adm_await_signal"
	StateAdmAwaitMessage State = "adm_await_message"
)

type Payload map[string]any

type Item struct {
	ChatID  int64
	State   State
	Payload Payload
}

type Store interface {
	Get(ctx context.Context, chatID int64) (*Item, error)
	Set(ctx context.Context, chatID int64, state State, payload Payload) error
	Reset(ctx context.Context, chatID int64) error
}
