package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Env string
	} `mapstructure:"app"`

	Telegram struct {
		Token          string
		AdminID        int64 `mapstructure:"admin_id"`
		PollTimeoutSec int   `mapstructure:"poll_timeout_sec"`
	} `mapstructure:"telegram"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Signals struct {
		Assets       []string
		Expiries     []string
		CacheTTL     time.Duration `mapstructure:"cache_ttl"`
		AutoInterval time.Duration `mapstructure:"auto_interval"`
		Retention    time.Duration `mapstructure:"retention"`
	} `mapstructure:"signals"`

	Broadcast struct {
		Delay time.Duration
	} `mapstructure:"broadcast"`

	Links struct {
		Register string
		Support  string
	} `mapstructure:"links"`
}

// ErrNoToken — без токена бот не запускается, процесс должен завершиться с ошибкой.
var ErrNoToken = errors.New("telegram token is not configured")

func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	// Секреты (токен, DSN) переопределяются через APP_TELEGRAM_TOKEN, APP_POSTGRES_DSN и т.д.
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}

	if c.Telegram.Token == "" {
		return c, ErrNoToken
	}
	if c.Telegram.PollTimeoutSec <= 0 {
		c.Telegram.PollTimeoutSec = 30
	}
	if len(c.Signals.Assets) == 0 {
		c.Signals.Assets = []string{"EUR/USD", "GBP/USD", "USD/JPY", "USD/CHF", "AUD/USD", "USD/CAD"}
	}
	if len(c.Signals.Expiries) == 0 {
		c.Signals.Expiries = []string{"1m", "5m", "15m", "30m", "1h"}
	}
	if c.Signals.CacheTTL <= 0 {
		c.Signals.CacheTTL = time.Minute
	}
	if c.Signals.AutoInterval <= 0 {
		c.Signals.AutoInterval = 15 * time.Minute
	}
	if c.Signals.Retention <= 0 {
		c.Signals.Retention = 30 * 24 * time.Hour
	}
	if c.Broadcast.Delay <= 0 {
		c.Broadcast.Delay = 50 * time.Millisecond
	}
	return c, nil
}
