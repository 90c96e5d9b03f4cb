package signals

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testAssets   = []string{"EUR/USD", "GBP/USD", "USD/JPY"}
	testExpiries = []string{"1m", "5m", "15m"}
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type recordingStore struct {
	inserted []Signal
	fail     map[string]bool // asset -> вернуть ошибку
}

func (r *recordingStore) Insert(_ context.Context, s *Signal) error {
	if r.fail[s.Asset] {
		return errors.New("insert failed")
	}
	r.inserted = append(r.inserted, *s)
	return nil
}

func newTestGenerator(store Recorder, clock *fakeClock) *Generator {
	return NewGenerator(testAssets, testExpiries, time.Minute, store, slog.Default(),
		WithClock(clock.now), WithSeed(1))
}

func TestGenerate_Shape(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	g := newTestGenerator(nil, clock)

	s, err := g.Generate(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s)

	assert.Contains(t, testAssets, s.Asset)
	assert.Contains(t, []Type{TypeCall, TypePut}, s.Type)
	assert.Contains(t, testExpiries, s.Expiry)
	assert.Greater(t, s.EntryPrice, 0.0)
	assert.Greater(t, s.TargetPrice, 0.0)
	assert.Greater(t, s.StopLoss, 0.0)
	assert.GreaterOrEqual(t, s.Accuracy, 70.0)
	assert.LessOrEqual(t, s.Accuracy, 95.0)
	if s.Type == TypeCall {
		assert.Greater(t, s.TargetPrice, s.EntryPrice)
		assert.Less(t, s.StopLoss, s.EntryPrice)
	} else {
		assert.Less(t, s.TargetPrice, s.EntryPrice)
		assert.Greater(t, s.StopLoss, s.EntryPrice)
	}
}

func TestGenerate_CachedWithinWindow(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := &recordingStore{}
	g := newTestGenerator(store, clock)

	first, err := g.Generate(ctx)
	require.NoError(t, err)

	clock.advance(30 * time.Second)
	second, err := g.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, *first, *second, "внутри окна — тот же сигнал")
	assert.Len(t, store.inserted, 1, "кэшированный повтор не пишется в журнал")

	clock.advance(time.Minute)
	third, err := g.Generate(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.CreatedAt, third.CreatedAt, "после окна — свежая генерация")
	assert.Len(t, store.inserted, 2)
}

func TestGenerateFor_KnownAndUnknown(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	g := newTestGenerator(nil, clock)

	s, err := g.GenerateFor(ctx, "GBP/USD")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "GBP/USD", s.Asset)

	// незнакомый инструмент — «ничего нет», не ошибка
	s, err = g.GenerateFor(ctx, "BTC/USD")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestGenerateFor_PerAssetCache(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	g := newTestGenerator(nil, clock)

	a1, err := g.GenerateFor(ctx, "EUR/USD")
	require.NoError(t, err)
	clock.advance(10 * time.Second)
	a2, err := g.GenerateFor(ctx, "EUR/USD")
	require.NoError(t, err)
	assert.Equal(t, *a1, *a2)

	b1, err := g.GenerateFor(ctx, "USD/JPY")
	require.NoError(t, err)
	assert.NotEqual(t, a1.Asset, b1.Asset)
}

func TestGenerateAll_PersistFailureKeepsSignal(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := &recordingStore{fail: map[string]bool{"GBP/USD": true}}
	g := newTestGenerator(store, clock)

	out := g.GenerateAll(ctx)
	// ошибка записи не выкидывает сигнал из пачки и не прерывает обход
	assert.Len(t, out, len(testAssets))
	seen := map[string]bool{}
	for _, s := range out {
		seen[s.Asset] = true
	}
	for _, a := range testAssets {
		assert.True(t, seen[a], a)
	}
	// в журнале только то, что записалось
	assert.Len(t, store.inserted, len(testAssets)-1)
}
