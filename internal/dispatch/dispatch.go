package dispatch

import (
	"context"
	"log/slog"
	"time"
)

// Sender — один исходящий вызов к мессенджеру.
type Sender interface {
	Send(chatID int64, text string) error
}

// Report — итог рассылки. Частичный провал — не ошибка.
type Report struct {
	Attempted int
	Delivered int
	Failed    int
}

// Broadcaster рассылает сообщение списку получателей. Отказ одного получателя
// логируется, считается и не мешает остальным.
type Broadcaster struct {
	sender Sender
	delay  time.Duration
	log    *slog.Logger
}

func New(sender Sender, delay time.Duration, log *slog.Logger) *Broadcaster {
	return &Broadcaster{sender: sender, delay: delay, log: log}
}

// Broadcast идёт по получателям по одному, с паузой delay между отправками —
// вежливость к лимитам мессенджера. Отмена ctx останавливает рассылку между
// отправками: уже доставленное остаётся доставленным.
func (b *Broadcaster) Broadcast(ctx context.Context, recipients []int64, text string) Report {
	var rep Report
	for i, chatID := range recipients {
		if ctx.Err() != nil {
			b.log.Info("broadcast aborted", "delivered", rep.Delivered, "remaining", len(recipients)-i)
			return rep
		}

		rep.Attempted++
		if err := b.sender.Send(chatID, text); err != nil {
			rep.Failed++
			deliveriesFailed.Inc()
			b.log.Error("broadcast send failed", "chat_id", chatID, "err", err)
		} else {
			rep.Delivered++
			deliveriesOK.Inc()
		}

		if b.delay > 0 && i < len(recipients)-1 {
			select {
			case <-ctx.Done():
				b.log.Info("broadcast aborted", "delivered", rep.Delivered, "remaining", len(recipients)-i-1)
				return rep
			case <-time.After(b.delay):
			}
		}
	}
	return rep
}
