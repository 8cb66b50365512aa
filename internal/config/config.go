package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	DB     DBConfig     `mapstructure:"db"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Cron   CronConfig   `mapstructure:"cron"`
	Bets   BetsConfig   `mapstructure:"bets"`
	Notify NotifyConfig `mapstructure:"notify"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

// RedisConfig configures the optional distributed sweep lock. When Addr is
// empty, sweeps run unguarded (single-instance deployments).
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

type CronConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	DeadlineSweep   string `mapstructure:"deadline_sweep"`
	ResolutionSweep string `mapstructure:"resolution_sweep"`
}

// BetsConfig carries engine-wide bet defaults and sweep sizing.
type BetsConfig struct {
	DefaultMinStake    string `mapstructure:"default_min_stake"`
	DefaultMaxStake    string `mapstructure:"default_max_stake"`
	DefaultMinVotes    int    `mapstructure:"default_min_votes"`
	SweepBatchSize     int    `mapstructure:"sweep_batch_size"`
	MaxQuestionLength  int    `mapstructure:"max_question_length"`
	MaxReasoningLength int    `mapstructure:"max_reasoning_length"`
}

type NotifyConfig struct {
	WebhookURL     string        `mapstructure:"webhook_url"`
	WebhookTimeout time.Duration `mapstructure:"webhook_timeout"`
	Events         []string      `mapstructure:"events"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", "30s")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.deadline_sweep", "@every 30s")
	v.SetDefault("cron.resolution_sweep", "@every 1m")
	v.SetDefault("bets.default_min_stake", "1")
	v.SetDefault("bets.default_max_stake", "1000")
	v.SetDefault("bets.default_min_votes", 3)
	v.SetDefault("bets.sweep_batch_size", 200)
	v.SetDefault("bets.max_question_length", 500)
	v.SetDefault("bets.max_reasoning_length", 1000)
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.webhook_timeout", "5s")
	v.SetDefault("notify.events", []string{})

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
