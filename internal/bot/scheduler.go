package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/Spok95/signals-bot/internal/domain/signals"
	"github.com/Spok95/signals-bot/internal/domain/users"
)

// RunScheduler — фоновая авторассылка сигналов подтверждённым пользователям
// и суточная чистка журнала сигналов. Останавливается по ctx.
func (b *Bot) RunScheduler(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	gc := time.NewTicker(24 * time.Hour)
	defer gc.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.autoBroadcast(ctx)
		case <-gc.C:
			b.pruneSignals(ctx, retention)
		}
	}
}

func (b *Bot) autoBroadcast(ctx context.Context) {
	sig, err := b.gen.Generate(ctx)
	if err != nil {
		b.log.Error("auto signal generation failed", "err", err)
		return
	}
	if sig == nil {
		return
	}

	direction := "ВВЕРХ"
	if sig.Type == signals.TypePut {
		direction = "ВНИЗ"
	}
	body := fmt.Sprintf("📍 %s\n📈 %s\n⏱️ %s", sig.Asset, direction, sig.Expiry)
	rep, err := b.broadcastTo(ctx, users.FilterConfirmed, renderSignalBroadcast(body))
	if err != nil {
		b.log.Error("auto broadcast failed", "err", err)
		return
	}
	b.log.Info("auto broadcast done", "attempted", rep.Attempted, "delivered", rep.Delivered, "failed", rep.Failed)
}

func (b *Bot) pruneSignals(ctx context.Context, retention time.Duration) {
	if b.archive == nil {
		return
	}
	n, err := b.archive.DeleteOlderThan(ctx, retention)
	if err != nil {
		b.log.Error("signal prune failed", "err", err)
		return
	}
	if n > 0 {
		b.log.Info("old signals pruned", "count", n)
	}
}
