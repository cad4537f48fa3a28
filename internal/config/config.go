package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Cron      CronConfig      `mapstructure:"cron"`
	Google    GoogleConfig    `mapstructure:"google"`
	Meta      MetaConfig      `mapstructure:"meta"`
	WhatChimp WhatChimpConfig `mapstructure:"whatchimp"`
	Sync      SyncConfig      `mapstructure:"sync"`
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

type CronConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	GoogleSync string `mapstructure:"google_sync"`
	MetaSync   string `mapstructure:"meta_sync"`
	CrmSync    string `mapstructure:"crm_sync"`
}

// GoogleConfig covers the Business Profile APIs plus the OAuth client used to
// obtain and refresh the long-lived grant.
type GoogleConfig struct {
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	RedirectURL  string        `mapstructure:"redirect_url"`
	TokenURL     string        `mapstructure:"token_url"`
	AuthURL      string        `mapstructure:"auth_url"`
	APIBaseURL   string        `mapstructure:"api_base_url"`
	AccountID    string        `mapstructure:"account_id"`
	LocationIDs  []string      `mapstructure:"location_ids"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type MetaConfig struct {
	AccessToken string        `mapstructure:"access_token"`
	WABAID      string        `mapstructure:"waba_id"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type WhatChimpConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Blacklist []string      `mapstructure:"blacklist"`
	// Labels maps each managed segment label name to its CRM label id.
	Labels map[string]int64 `mapstructure:"labels"`
}

type SyncConfig struct {
	WindowDays        int           `mapstructure:"window_days"`
	BackfillChunkDays int           `mapstructure:"backfill_chunk_days"`
	PageLimit         int           `mapstructure:"page_limit"`
	MaxItems          int           `mapstructure:"max_items"`
	BatchSize         int           `mapstructure:"batch_size"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	RetryBaseDelay    time.Duration `mapstructure:"retry_base_delay"`
	InterCallDelay    time.Duration `mapstructure:"inter_call_delay"`
	InterChunkDelay   time.Duration `mapstructure:"inter_chunk_delay"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LVP")
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
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.google_sync", "@every 6h")
	v.SetDefault("cron.meta_sync", "@every 12h")
	v.SetDefault("cron.crm_sync", "@every 24h")
	v.SetDefault("google.token_url", "https://oauth2.googleapis.com/token")
	v.SetDefault("google.auth_url", "https://accounts.google.com/o/oauth2/v2/auth")
	v.SetDefault("google.api_base_url", "https://businessprofileperformance.googleapis.com")
	v.SetDefault("google.timeout", "30s")
	v.SetDefault("meta.base_url", "https://graph.facebook.com/v19.0")
	v.SetDefault("meta.timeout", "30s")
	v.SetDefault("whatchimp.base_url", "https://app.whatchimp.com/api/v1")
	v.SetDefault("whatchimp.timeout", "30s")
	v.SetDefault("sync.window_days", 3)
	v.SetDefault("sync.backfill_chunk_days", 7)
	v.SetDefault("sync.page_limit", 100)
	v.SetDefault("sync.max_items", 5000)
	v.SetDefault("sync.batch_size", 5)
	v.SetDefault("sync.max_attempts", 3)
	v.SetDefault("sync.retry_base_delay", "500ms")
	v.SetDefault("sync.inter_call_delay", "100ms")
	v.SetDefault("sync.inter_chunk_delay", "1s")
	v.SetDefault("sync.requests_per_second", 5)

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
