package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertFromTelegram_CreatesNew(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	u, err := m.UpsertFromTelegram(ctx, Telegram{ID: 1, Username: "alice", FirstName: "Алиса"})
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, StatusNew, u.Status)
	assert.Nil(t, u.PlatformID)
}

func TestUpsertFromTelegram_DoesNotResetStatus(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.UpsertFromTelegram(ctx, Telegram{ID: 1})
	require.NoError(t, err)
	_, err = m.SetPlatformID(ctx, 1, "12345")
	require.NoError(t, err)
	_, err = m.SetStatus(ctx, 1, StatusConfirmed)
	require.NoError(t, err)

	// повторный /start меняет только профиль
	u, err := m.UpsertFromTelegram(ctx, Telegram{ID: 1, Username: "renamed"})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, u.Status)
	require.NotNil(t, u.PlatformID)
	assert.Equal(t, "12345", *u.PlatformID)
	assert.Equal(t, "renamed", u.Username)
}

func TestSetPlatformID_Unique(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.UpsertFromTelegram(ctx, Telegram{ID: 1})
	require.NoError(t, err)
	_, err = m.UpsertFromTelegram(ctx, Telegram{ID: 2})
	require.NoError(t, err)

	_, err = m.SetPlatformID(ctx, 1, "777")
	require.NoError(t, err)

	_, err = m.SetPlatformID(ctx, 2, "777")
	assert.ErrorIs(t, err, ErrPlatformIDTaken)

	// владелец может переотправить свой же ID
	_, err = m.SetPlatformID(ctx, 1, "777")
	assert.NoError(t, err)
}

func TestSetPlatformID_UnknownUser(t *testing.T) {
	m := NewMemory()
	_, err := m.SetPlatformID(context.Background(), 42, "1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList_Filters(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for id := int64(1); id <= 3; id++ {
		_, err := m.UpsertFromTelegram(ctx, Telegram{ID: id})
		require.NoError(t, err)
	}
	_, err := m.SetPlatformID(ctx, 1, "111")
	require.NoError(t, err)
	_, err = m.SetStatus(ctx, 2, StatusConfirmed)
	require.NoError(t, err)

	all, err := m.List(ctx, FilterAll)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	pending, err := m.List(ctx, FilterPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(1), pending[0].TelegramID)

	confirmed, err := m.List(ctx, FilterConfirmed)
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, int64(2), confirmed[0].TelegramID)
}

func TestGetByPlatformID(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.UpsertFromTelegram(ctx, Telegram{ID: 7})
	require.NoError(t, err)
	_, err = m.SetPlatformID(ctx, 7, "9000")
	require.NoError(t, err)

	u, err := m.GetByPlatformID(ctx, "9000")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, int64(7), u.TelegramID)

	// отсутствие — не ошибка
	u, err = m.GetByPlatformID(ctx, "none")
	require.NoError(t, err)
	assert.Nil(t, u)
}
