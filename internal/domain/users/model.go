package users

import (
	"context"
	"errors"
	"time"
)

type Status string

const (
	StatusNew       Status = "new"
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusBlocked   Status = "blocked"
)

type Filter string

const (
	FilterAll       Filter = "all"
	FilterPending   Filter = "pending"
	FilterConfirmed Filter = "confirmed"
)

type User struct {
	ID           int64
	TelegramID   int64
	Username     string
	FirstName    string
	LastName     string
	PlatformID   *string
	Status       Status
	CreatedAt    time.Time
	LastActivity time.Time
}

type Telegram struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// DisplayName — имя для списков у админа.
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return "—"
}

var (
	ErrNotFound = errors.New("user not found")
	// ErrPlatformIDTaken — platform_id уже закреплён за другим пользователем.
	ErrPlatformIDTaken = errors.New("platform id already taken")
)

// Store — всё изменение пользователей идёт только через эти операции.
// Реализации: Repo (Postgres) и Memory (тесты).
type Store interface {
	UpsertFromTelegram(ctx context.Context, tg Telegram) (*User, error)
	GetByTelegramID(ctx context.Context, tgID int64) (*User, error)
	GetByPlatformID(ctx context.Context, platformID string) (*User, error)
	List(ctx context.Context, f Filter) ([]User, error)
	SetPlatformID(ctx context.Context, tgID int64, platformID string) (*User, error)
	SetStatus(ctx context.Context, tgID int64, st Status) (*User, error)
	TouchActivity(ctx context.Context, tgID int64) error
}
