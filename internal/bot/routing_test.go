package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/signals-bot/internal/dialog"
	"github.com/Spok95/signals-bot/internal/domain/signals"
	"github.com/Spok95/signals-bot/internal/domain/users"
)

const (
	testAdminID = int64(999)
	testUserID  = int64(100)
)

type fakeAPI struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(_ tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(_ tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

// textsTo собирает тексты всех сообщений и правок, ушедших в указанный чат.
func (f *fakeAPI) textsTo(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			if m.ChatID == chatID {
				out = append(out, m.Text)
			}
		case tgbotapi.EditMessageTextConfig:
			if m.ChatID == chatID {
				out = append(out, m.Text)
			}
		}
	}
	return out
}

func countContaining(texts []string, sub string) int {
	n := 0
	for _, s := range texts {
		if strings.Contains(s, sub) {
			n++
		}
	}
	return n
}

// flakyStore позволяет уронить List по флагу, остальное — обычный Memory.
type flakyStore struct {
	*users.Memory
	failList bool
}

func (s *flakyStore) List(ctx context.Context, f users.Filter) ([]users.User, error) {
	if s.failList {
		return nil, errors.New("storage unavailable")
	}
	return s.Memory.List(ctx, f)
}

func newTestBotWith(t *testing.T, store users.Store) (*Bot, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	states := dialog.NewMemory()
	gen := signals.NewGenerator(
		[]string{"EUR/USD", "GBP/USD"}, []string{"1m", "5m"},
		time.Minute, nil, slog.Default(), signals.WithSeed(7))
	b := New(api, slog.Default(), store, states, gen, nil, testAdminID, 0,
		Links{Register: "https://example.com/ref", Support: "https://t.me/support"})
	return b, api
}

func newTestBot(t *testing.T) (*Bot, *fakeAPI, *users.Memory) {
	t.Helper()
	store := users.NewMemory()
	b, api := newTestBotWith(t, store)
	return b, api, store
}

func userMessage(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: testUserID, FirstName: "Вася", UserName: "vasya"},
		Chat:      &tgbotapi.Chat{ID: testUserID},
		Text:      text,
	}
}

func messageFrom(tgID int64, name, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 2,
		From:      &tgbotapi.User{ID: tgID, FirstName: name},
		Chat:      &tgbotapi.Chat{ID: tgID},
		Text:      text,
	}
}

func callback(from int64, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: from},
		Message: &tgbotapi.Message{MessageID: 5, Chat: &tgbotapi.Chat{ID: from}},
		Data:    data,
	}
}

// submitID проходит форму отправки ID: кнопка send_id, затем текст.
func submitID(ctx context.Context, b *Bot, tgID int64, name, id string) {
	b.onCallback(ctx, callback(tgID, "send_id"))
	b.onMessage(ctx, messageFrom(tgID, name, id))
}

// Полный путь: отправка ID → pending → подтверждение → сигнал.
func TestFlow_SubmitConfirmGetSignal(t *testing.T) {
	ctx := context.Background()
	b, api, store := newTestBot(t)

	submitID(ctx, b, testUserID, "Вася", "12345")

	u, err := store.GetByTelegramID(ctx, testUserID)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, users.StatusPending, u.Status)
	require.NotNil(t, u.PlatformID)
	assert.Equal(t, "12345", *u.PlatformID)

	// админу ушло уведомление о новом ID
	adminTexts := api.textsTo(testAdminID)
	assert.Equal(t, 1, countContaining(adminTexts, "Новый ID"))

	// админ подтверждает
	b.onCallback(ctx, callback(testAdminID, fmt.Sprintf("confirm:%d", testUserID)))

	u, err = store.GetByTelegramID(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, users.StatusConfirmed, u.Status)

	// пользователь получил ровно одно уведомление о подтверждении
	userTexts := api.textsTo(testUserID)
	assert.Equal(t, 1, countContaining(userTexts, "Доступ подтверждён"))

	// теперь сигнал доступен
	b.onCallback(ctx, callback(testUserID, "get_signal"))
	userTexts = api.textsTo(testUserID)
	assert.Equal(t, 1, countContaining(userTexts, "СИГНАЛ"))
	last := userTexts[len(userTexts)-1]
	assert.True(t, strings.Contains(last, "ВВЕРХ") || strings.Contains(last, "ВНИЗ"))
}

func TestFlow_UnconfirmedSignalRefused(t *testing.T) {
	ctx := context.Background()
	b, api, store := newTestBot(t)

	submitID(ctx, b, testUserID, "Вася", "12345") // pending, но не подтверждён

	b.onCallback(ctx, callback(testUserID, "get_signal"))

	texts := api.textsTo(testUserID)
	assert.Equal(t, 1, countContaining(texts, "Доступ закрыт"))
	assert.Equal(t, 0, countContaining(texts, "СИГНАЛ"))

	u, err := store.GetByTelegramID(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, users.StatusPending, u.Status)
}

func TestFlow_BlockedUserLosesAccess(t *testing.T) {
	ctx := context.Background()
	b, api, store := newTestBot(t)

	submitID(ctx, b, testUserID, "Вася", "12345")
	b.onCallback(ctx, callback(testAdminID, fmt.Sprintf("confirm:%d", testUserID)))
	b.onCallback(ctx, callback(testAdminID, fmt.Sprintf("block:%d", testUserID)))

	u, err := store.GetByTelegramID(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, users.StatusBlocked, u.Status)

	// гейт перечитывает статус на каждый запрос
	b.onCallback(ctx, callback(testUserID, "get_signal"))
	texts := api.textsTo(testUserID)
	assert.Equal(t, 0, countContaining(texts, "СИГНАЛ"))
	assert.Equal(t, 1, countContaining(texts, "Доступ закрыт"))
}

func TestSubmit_InvalidAndDuplicate(t *testing.T) {
	ctx := context.Background()
	b, api, _ := newTestBot(t)

	submitID(ctx, b, testUserID, "Вася", "abc123")
	assert.Equal(t, 1, countContaining(api.textsTo(testUserID), "только цифры"))

	// после ошибки форма остаётся открытой, повтор без повторного нажатия
	b.onMessage(ctx, userMessage("777"))
	assert.Equal(t, 1, countContaining(api.textsTo(testUserID), "ID сохранён"))

	submitID(ctx, b, 200, "Петя", "777")
	assert.Equal(t, 1, countContaining(api.textsTo(200), "уже используется"))
}

// Свободный текст вне формы — не попытка отправить ID, а возврат в меню.
func TestFreeTextOutsideFormShowsMenu(t *testing.T) {
	ctx := context.Background()
	b, api, store := newTestBot(t)

	b.onMessage(ctx, userMessage("привет"))

	texts := api.textsTo(testUserID)
	assert.Equal(t, 1, countContaining(texts, "Добро пожаловать"))
	assert.Equal(t, 0, countContaining(texts, "только цифры"))

	// пользователь при этом создан
	u, err := store.GetByTelegramID(ctx, testUserID)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, users.StatusNew, u.Status)
}

// Не-админ не может дёрнуть админскую кнопку: состояние не меняется.
func TestNonAdminCannotModerate(t *testing.T) {
	ctx := context.Background()
	b, _, store := newTestBot(t)

	submitID(ctx, b, testUserID, "Вася", "12345")
	b.onCallback(ctx, callback(testUserID, fmt.Sprintf("confirm:%d", testUserID)))

	u, err := store.GetByTelegramID(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, users.StatusPending, u.Status)
}

// Админская форма «рассылка сигнала»: получают только подтверждённые.
func TestAdminBroadcastSignal_OnlyConfirmed(t *testing.T) {
	ctx := context.Background()
	b, api, store := newTestBot(t)

	// два пользователя, подтверждаем только первого
	submitID(ctx, b, testUserID, "Вася", "111")
	submitID(ctx, b, 200, "Петя", "222")
	b.onCallback(ctx, callback(testAdminID, fmt.Sprintf("confirm:%d", testUserID)))

	_, err := store.GetByTelegramID(ctx, 200)
	require.NoError(t, err)

	// админ открывает форму и шлёт текст сигнала
	b.onCallback(ctx, callback(testAdminID, "adm:signal"))
	b.onMessage(ctx, messageFrom(testAdminID, "", "EUR/USD ВВЕРХ 2мин"))

	assert.Equal(t, 1, countContaining(api.textsTo(testUserID), "EUR/USD ВВЕРХ 2мин"))
	assert.Equal(t, 0, countContaining(api.textsTo(200), "EUR/USD ВВЕРХ 2мин"))
	// сводка рассылки админу
	assert.Equal(t, 1, countContaining(api.textsTo(testAdminID), "Сигнал разослан"))
}

// Хранилище не отдало список получателей — это ошибка рассылки,
// а не «успех с нулём получателей».
func TestAdminBroadcast_RecipientListFailure(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Memory: users.NewMemory()}
	b, api := newTestBotWith(t, store)

	submitID(ctx, b, testUserID, "Вася", "111")
	b.onCallback(ctx, callback(testAdminID, fmt.Sprintf("confirm:%d", testUserID)))

	b.onCallback(ctx, callback(testAdminID, "adm:signal"))
	store.failList = true
	b.onMessage(ctx, messageFrom(testAdminID, "", "EUR/USD ВВЕРХ 2мин"))

	adminTexts := api.textsTo(testAdminID)
	assert.Equal(t, 0, countContaining(adminTexts, "Сигнал разослан"))
	assert.Equal(t, 1, countContaining(adminTexts, "Произошла ошибка"))
	assert.Equal(t, 0, countContaining(api.textsTo(testUserID), "EUR/USD ВВЕРХ 2мин"))

	// форма не сброшена: после восстановления хранилища тот же текст уходит
	store.failList = false
	b.onMessage(ctx, messageFrom(testAdminID, "", "EUR/USD ВВЕРХ 2мин"))
	assert.Equal(t, 1, countContaining(api.textsTo(testAdminID), "Сигнал разослан"))
	assert.Equal(t, 1, countContaining(api.textsTo(testUserID), "EUR/USD ВВЕРХ 2мин"))
}

func TestStartCommand_Menus(t *testing.T) {
	ctx := context.Background()
	b, api, _ := newTestBot(t)

	start := userMessage("/start")
	start.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}}
	b.onMessage(ctx, start)
	assert.Equal(t, 1, countContaining(api.textsTo(testUserID), "Добро пожаловать"))

	adminStart := messageFrom(testAdminID, "", "/start")
	adminStart.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}}
	b.onMessage(ctx, adminStart)
	assert.Equal(t, 1, countContaining(api.textsTo(testAdminID), "Админ-панель"))
}
