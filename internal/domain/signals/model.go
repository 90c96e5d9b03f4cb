package signals

import "time"

type Type string

const (
	TypeCall Type = "CALL"
	TypePut  Type = "PUT"
)

// Signal — рекомендация по бинарному опциону. Создаётся один раз,
// не мутируется, хранится только для показа и отчётности.
type Signal struct {
	ID          int64
	Asset       string
	Type        Type
	Expiry      string
	EntryPrice  float64
	TargetPrice float64
	StopLoss    float64
	Accuracy    float64
	CreatedAt   time.Time
}
