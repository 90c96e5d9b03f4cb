package users

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory — хранилище в памяти с теми же инвариантами, что у Postgres-репозитория
// (уникальный platform_id, upsert не трогает статус). Используется в тестах.
type Memory struct {
	mu     sync.Mutex
	nextID int64
	byTg   map[int64]*User
}

func NewMemory() *Memory {
	return &Memory{byTg: make(map[int64]*User)}
}

func (m *Memory) UpsertFromTelegram(_ context.Context, tg Telegram) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.byTg[tg.ID]; ok {
		u.Username = tg.Username
		u.FirstName = tg.FirstName
		u.LastName = tg.LastName
		u.LastActivity = time.Now()
		cp := *u
		return &cp, nil
	}

	m.nextID++
	u := &User{
		ID:           m.nextID,
		TelegramID:   tg.ID,
		Username:     tg.Username,
		FirstName:    tg.FirstName,
		LastName:     tg.LastName,
		Status:       StatusNew,
		CreatedAt:    time.Now(),
		LastActivity: time.Now(),
	}
	m.byTg[tg.ID] = u
	cp := *u
	return &cp, nil
}

func (m *Memory) GetByTelegramID(_ context.Context, tgID int64) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byTg[tgID]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) GetByPlatformID(_ context.Context, platformID string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byTg {
		if u.PlatformID != nil && *u.PlatformID == platformID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Memory) List(_ context.Context, f Filter) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []User
	for _, u := range m.byTg {
		switch f {
		case FilterPending:
			if u.Status != StatusPending {
				continue
			}
		case FilterConfirmed:
			if u.Status != StatusConfirmed {
				continue
			}
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// SetPlatformID — проверка уникальности и запись под одним мьютексом,
// как единая транзакция в Postgres-варианте.
func (m *Memory) SetPlatformID(_ context.Context, tgID int64, platformID string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byTg[tgID]
	if !ok {
		return nil, ErrNotFound
	}
	for _, other := range m.byTg {
		if other.TelegramID != tgID && other.PlatformID != nil && *other.PlatformID == platformID {
			return nil, ErrPlatformIDTaken
		}
	}
	pid := platformID
	u.PlatformID = &pid
	u.Status = StatusPending
	u.LastActivity = time.Now()
	cp := *u
	return &cp, nil
}

func (m *Memory) SetStatus(_ context.Context, tgID int64, st Status) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byTg[tgID]
	if !ok {
		return nil, ErrNotFound
	}
	u.Status = st
	u.LastActivity = time.Now()
	cp := *u
	return &cp, nil
}

func (m *Memory) TouchActivity(_ context.Context, tgID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byTg[tgID]; ok {
		u.LastActivity = time.Now()
	}
	return nil
}
