package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	DBDriver          string        `env:"DB_DRIVER,default=postgres"`
	DBHost            string        `env:"DB_HOST,default=localhost"`
	DBPort            int           `env:"DB_PORT,default=5432"`
	DBUser            string        `env:"DB_USER"`
	DBPassword        string        `env:"DB_PASSWORD"`
	DBName            string        `env:"DB_NAME,default=aptwatch"`
	DBSSLMode         string        `env:"DB_SSLMODE,default=disable"`
	DBPath            string        `env:"DB_PATH,default=aptwatch.db"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS,default=10"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS,default=25"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME,default=30m"`

	HTTPAddr         string   `env:"HTTP_ADDR,default=:8080"`
	HTTPAllowOrigins []string `env:"HTTP_ALLOW_ORIGINS,default=*"`

	TelegramBotToken    string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramPollTimeout int    `env:"TELEGRAM_POLL_TIMEOUT,default=60"`

	TransactionFeedURL         string        `env:"TRANSACTION_FEED_URL"`
	TransactionFeedReadTimeout time.Duration `env:"TRANSACTION_FEED_READ_TIMEOUT,default=0s"`
	TransactionFeedRegions     []string      `env:"TRANSACTION_FEED_REGIONS"`

	ComplexAPIBaseURL string        `env:"COMPLEX_API_BASE_URL"`
	ComplexAPITimeout time.Duration `env:"COMPLEX_API_TIMEOUT,default=10s"`

	WorkerShards        int           `env:"WORKER_SHARDS,default=4"`
	ShardQueueSize      int           `env:"SHARD_QUEUE_SIZE,default=256"`
	RuleRefreshInterval time.Duration `env:"RULE_REFRESH_INTERVAL,default=30s"`
	FlushSchedule       string        `env:"FLUSH_SCHEDULE,default=@every 1m"`
	NewListingLookback  time.Duration `env:"NEW_LISTING_LOOKBACK,default=720h"`
	CooldownPeriod      string        `env:"COOLDOWN_PERIOD,default=daily"`
	NotificationTTL     time.Duration `env:"NOTIFICATION_TTL,default=720h"`
	SheetFoldRetries    int           `env:"SHEET_FOLD_RETRIES,default=3"`

	DispatchWorkers        int           `env:"DISPATCH_WORKERS,default=4"`
	DispatchQueueSize      int           `env:"DISPATCH_QUEUE_SIZE,default=512"`
	DispatchMaxTries       uint          `env:"DISPATCH_MAX_TRIES,default=5"`
	DispatchInitialBackoff time.Duration `env:"DISPATCH_INITIAL_BACKOFF,default=1s"`
	DispatchMaxBackoff     time.Duration `env:"DISPATCH_MAX_BACKOFF,default=1m"`

	NotificationTemplatesPath string `env:"NOTIFICATION_TEMPLATES_PATH"`
	LogLevel                  string `env:"LOG_LEVEL,default=info"`
	LogFormat                 string `env:"LOG_FORMAT,default=json"`
}

func Load(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFrom resolves the configuration from an explicit lookuper instead of the process
// environment.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
