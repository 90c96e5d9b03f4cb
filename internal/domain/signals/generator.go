package signals

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"
)

// basePrices — опорные котировки для синтетических цен входа.
// Содержимое сигнала декоративно, значим только формат записи.
var basePrices = map[string]float64{
	"EUR/USD": 1.0850,
	"GBP/USD": 1.2700,
	"USD/JPY": 147.20,
	"USD/CHF": 0.8600,
	"AUD/USD": 0.6550,
	"USD/CAD": 1.3600,
	"NZD/USD": 0.5950,
	"EUR/GBP": 0.8540,
}

const defaultBasePrice = 1.0

// Recorder — persist-слой генератора. Сигнал пишется сразу после генерации.
type Recorder interface {
	Insert(ctx context.Context, s *Signal) error
}

type cacheEntry struct {
	sig *Signal
	at  time.Time
}

// Generator выдаёт сигналы по требованию. Повторные вызовы в пределах cacheTTL
// возвращают тот же сигнал, чтобы серия нажатий «ещё сигнал» не плодила записи.
type Generator struct {
	assets   []string
	expiries []string
	cacheTTL time.Duration
	store    Recorder // nil — без персистенса
	log      *slog.Logger

	now func() time.Time
	rnd *rand.Rand

	mu      sync.Mutex
	byAsset map[string]cacheEntry
	lastAny cacheEntry
}

type Option func(*Generator)

// WithClock подменяет источник времени (тесты кэша).
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithSeed делает генерацию детерминированной.
func WithSeed(seed int64) Option {
	return func(g *Generator) { g.rnd = rand.New(rand.NewSource(seed)) }
}

func NewGenerator(assets, expiries []string, cacheTTL time.Duration, store Recorder, log *slog.Logger, opts ...Option) *Generator {
	g := &Generator{
		assets:   assets,
		expiries: expiries,
		cacheTTL: cacheTTL,
		store:    store,
		log:      log,
		now:      time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		byAsset:  make(map[string]cacheEntry),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Generate возвращает сигнал по случайному активу либо закэшированный,
// если с прошлой генерации прошло меньше cacheTTL. nil, nil — «сейчас нечего дать».
func (g *Generator) Generate(ctx context.Context) (*Signal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.lastAny.sig != nil && g.now().Sub(g.lastAny.at) < g.cacheTTL {
		cp := *g.lastAny.sig
		return &cp, nil
	}
	if len(g.assets) == 0 {
		return nil, nil
	}
	asset := g.assets[g.rnd.Intn(len(g.assets))]
	return g.freshLocked(ctx, asset), nil
}

// GenerateFor — сигнал по конкретному инструменту; незнакомый актив — nil, nil.
func (g *Generator) GenerateFor(ctx context.Context, asset string) (*Signal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.knows(asset) {
		return nil, nil
	}
	if e, ok := g.byAsset[asset]; ok && g.now().Sub(e.at) < g.cacheTTL {
		cp := *e.sig
		return &cp, nil
	}
	return g.freshLocked(ctx, asset), nil
}

// GenerateAll — по одной свежей записи на каждый настроенный актив.
// Отказ журнала сигнал из пачки не выкидывает (см. freshLocked).
func (g *Generator) GenerateAll(ctx context.Context) []Signal {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]Signal, 0, len(g.assets))
	for _, asset := range g.assets {
		out = append(out, *g.freshLocked(ctx, asset))
	}
	return out
}

func (g *Generator) knows(asset string) bool {
	for _, a := range g.assets {
		if a == asset {
			return true
		}
	}
	return false
}

func (g *Generator) freshLocked(ctx context.Context, asset string) *Signal {
	s := g.build(asset)

	if g.store != nil {
		if err := g.store.Insert(ctx, s); err != nil {
			// Сигнал уходит пользователю и без записи в журнал,
			// но след ошибки остаётся в логе.
			g.log.Error("signal persist failed", "asset", asset, "err", err)
		}
	}

	now := g.now()
	g.byAsset[asset] = cacheEntry{sig: s, at: now}
	g.lastAny = cacheEntry{sig: s, at: now}

	cp := *s
	return &cp
}

func (g *Generator) build(asset string) *Signal {
	base, ok := basePrices[asset]
	if !ok {
		base = defaultBasePrice
	}
	// лёгкий дрейф вокруг опорной цены, ±0.5%
	entry := round5(base * (1 + (g.rnd.Float64()-0.5)/100))

	st := TypeCall
	if g.rnd.Intn(2) == 1 {
		st = TypePut
	}

	// цель и стоп — ±0.1% от входа
	target := round5(entry * 1.001)
	stop := round5(entry * 0.999)
	if st == TypePut {
		target, stop = round5(entry*0.999), round5(entry*1.001)
	}

	expiry := "5m"
	if len(g.expiries) > 0 {
		expiry = g.expiries[g.rnd.Intn(len(g.expiries))]
	}

	return &Signal{
		Asset:       asset,
		Type:        st,
		Expiry:      expiry,
		EntryPrice:  entry,
		TargetPrice: target,
		StopLoss:    stop,
		Accuracy:    math.Round((70+g.rnd.Float64()*25)*100) / 100,
		CreatedAt:   g.now(),
	}
}

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}
