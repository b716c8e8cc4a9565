package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	pstrings "crewauction/pkg/platform/strings"
)

// Server captures process level configuration.
type Server struct {
	HTTP   HTTPConfig
	Log    LogConfig
	Ledger LedgerConfig
	Redis  RedisConfig
	Live   LiveConfig
	Admin  AdminConfig
}

// HTTPConfig is the listener setup. AuthRateLimit caps access-code attempts
// per client IP within AuthRateWindow; zero disables the cap.
type HTTPConfig struct {
	Addr           string
	AllowedOrigins []string
	AuthRateLimit  int
	AuthRateWindow time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// LedgerConfig selects the SQL backend. Driver is one of "sqlite3",
// "postgres" (lib/pq) or "pgx" (pgx stdlib).
type LedgerConfig struct {
	Driver    string
	DSN       string
	TxTimeout time.Duration
}

// RedisConfig enables the broadcast mirror when URL is set.
type RedisConfig struct {
	URL          string
	Channel      string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LiveConfig tunes the live connection layer: heartbeat cadence, reaper
// cadence, the inactivity window after which a session is evicted, and the
// per-connection outbound queue length.
type LiveConfig struct {
	HeartbeatInterval time.Duration
	ReapInterval      time.Duration
	StaleAfter        time.Duration
	SendBuffer        int
}

type AdminConfig struct {
	AccessCode string
	// AccessCodeHash is a bcrypt hash of the code; when set it replaces
	// AccessCode.
	AccessCodeHash string
	ProtectSales   bool
}

const envPrefix = "AUCTION"

// SetDefaults registers every key with its default so environment overrides
// resolve even when no config file is present.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":3001")
	v.SetDefault("http.allowed_origins", []string{"http://localhost:8080", "http://localhost:8081"})
	v.SetDefault("http.auth_rate_limit", 20)
	v.SetDefault("http.auth_rate_window", time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("ledger.driver", "sqlite3")
	v.SetDefault("ledger.dsn", "auction.db")
	v.SetDefault("ledger.tx_timeout", 5*time.Second)
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.channel", "auction:events")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("live.heartbeat_interval", 30*time.Second)
	v.SetDefault("live.reap_interval", 5*time.Minute)
	v.SetDefault("live.stale_after", 30*time.Minute)
	v.SetDefault("live.send_buffer", 64)
	v.SetDefault("admin.access_code", "ADMIN_MASTER_123")
	v.SetDefault("admin.access_code_hash", "")
	v.SetDefault("admin.protect_sales", false)
}

// Load reads configuration from defaults, an optional auctiond.toml and
// AUCTION_* environment variables, in increasing precedence. An explicit
// configFile must exist; the search-path file is optional.
func Load(configFile string) (Server, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("auctiond")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/auctiond")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Server{}, fmt.Errorf("read config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper materializes a Server config and validates it.
func FromViper(v *viper.Viper) (Server, error) {
	cfg := Server{
		HTTP: HTTPConfig{
			Addr:           v.GetString("http.addr"),
			AllowedOrigins: pstrings.SplitDedupeTrim(v.GetStringSlice("http.allowed_origins")),
			AuthRateLimit:  v.GetInt("http.auth_rate_limit"),
			AuthRateWindow: v.GetDuration("http.auth_rate_window"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Ledger: LedgerConfig{
			Driver:    v.GetString("ledger.driver"),
			DSN:       v.GetString("ledger.dsn"),
			TxTimeout: v.GetDuration("ledger.tx_timeout"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("redis.url"),
			Channel:      v.GetString("redis.channel"),
			PoolSize:     v.GetInt("redis.pool_size"),
			MinIdleConns: v.GetInt("redis.min_idle_conns"),
			DialTimeout:  v.GetDuration("redis.dial_timeout"),
			ReadTimeout:  v.GetDuration("redis.read_timeout"),
			WriteTimeout: v.GetDuration("redis.write_timeout"),
		},
		Live: LiveConfig{
			HeartbeatInterval: v.GetDuration("live.heartbeat_interval"),
			ReapInterval:      v.GetDuration("live.reap_interval"),
			StaleAfter:        v.GetDuration("live.stale_after"),
			SendBuffer:        v.GetInt("live.send_buffer"),
		},
		Admin: AdminConfig{
			AccessCode:     v.GetString("admin.access_code"),
			AccessCodeHash: v.GetString("admin.access_code_hash"),
			ProtectSales:   v.GetBool("admin.protect_sales"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c Server) Validate() error {
	switch c.Ledger.Driver {
	case "sqlite3", "postgres", "pgx":
	default:
		return fmt.Errorf("ledger.driver must be sqlite3, postgres or pgx, got %q", c.Ledger.Driver)
	}
	if c.Ledger.DSN == "" {
		return errors.New("ledger.dsn is required")
	}
	if c.Live.HeartbeatInterval <= 0 || c.Live.ReapInterval <= 0 || c.Live.StaleAfter <= 0 {
		return errors.New("live intervals must be positive")
	}
	if c.HTTP.AuthRateLimit < 0 {
		return errors.New("http.auth_rate_limit must not be negative")
	}
	if c.HTTP.AuthRateLimit > 0 && c.HTTP.AuthRateWindow <= 0 {
		return errors.New("http.auth_rate_window must be positive when a limit is set")
	}
	if c.Live.SendBuffer <= 0 {
		return errors.New("live.send_buffer must be positive")
	}
	if c.Admin.AccessCode == "" && c.Admin.AccessCodeHash == "" {
		return errors.New("admin.access_code or admin.access_code_hash is required")
	}
	return nil
}
