package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Log         struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Postgres struct {
		URL             string        `yaml:"url"`
		MaxConns        int32         `yaml:"max_conns"`
		MinConns        int32         `yaml:"min_conns"`
		MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	} `yaml:"postgres"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Kafka struct {
		Brokers           []string `yaml:"brokers"`
		NotificationTopic string   `yaml:"notification_topic"`
		EngagementTopic   string   `yaml:"engagement_topic"`
		RequiredAcks      int      `yaml:"required_acks"`
		Compression       string   `yaml:"compression"`
		Producer          struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Ledger struct {
		RPCURL         string        `yaml:"rpc_url"`
		StreamURL      string        `yaml:"stream_url"`
		Authority      string        `yaml:"authority"`
		Timeout        time.Duration `yaml:"timeout"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"ledger"`
	Inference struct {
		BaseURL          string        `yaml:"base_url"`
		APIKey           string        `yaml:"api_key"`
		Model            string        `yaml:"model"`
		Timeout          time.Duration `yaml:"timeout"`
		BreakerThreshold int           `yaml:"breaker_threshold"`
		BreakerTimeout   time.Duration `yaml:"breaker_timeout"`
	} `yaml:"inference"`
	Trend struct {
		UpdateIntervalMinutes      int     `yaml:"update_interval_minutes"`
		ActiveMarketThresholdHours float64 `yaml:"active_market_threshold_hours"`
		CacheTTLMinutes            int     `yaml:"cache_ttl_minutes"`
		BatchSize                  int     `yaml:"batch_size"`
	} `yaml:"trend"`
	Flash struct {
		VelocityThreshold   float64       `yaml:"velocity_threshold"`
		Cooldown            time.Duration `yaml:"cooldown"`
		ScanInterval        time.Duration `yaml:"scan_interval"`
		ResolveInterval     time.Duration `yaml:"resolve_interval"`
		WindowSeconds       int           `yaml:"window_seconds"`
		MinTrendScore       float64       `yaml:"min_trend_score"`
		ScanCandidateLimit  int           `yaml:"scan_candidate_limit"`
	} `yaml:"flash"`
	Cache struct {
		RequestsPerSecond float64       `yaml:"requests_per_second"`
		SweepInterval     time.Duration `yaml:"sweep_interval"`
		RetryAttempts     int           `yaml:"retry_attempts"`
		RetryBaseDelay    time.Duration `yaml:"retry_base_delay"`
	} `yaml:"cache"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("INFERENCE_API_KEY"); v != "" {
		c.Inference.APIKey = v
	}
	if v := os.Getenv("INFERENCE_BASE_URL"); v != "" {
		c.Inference.BaseURL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Postgres.URL = v
	}
	if v := os.Getenv("LEDGER_RPC_URL"); v != "" {
		c.Ledger.RPCURL = v
	}
	if v := os.Getenv("LEDGER_STREAM_URL"); v != "" {
		c.Ledger.StreamURL = v
	}
	if v := os.Getenv("TREND_UPDATE_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Trend.UpdateIntervalMinutes = n
		}
	}
	if v := os.Getenv("TREND_ACTIVE_MARKET_THRESHOLD_HOURS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Trend.ActiveMarketThresholdHours = f
		}
	}
	if v := os.Getenv("FLASH_VELOCITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Flash.VelocityThreshold = f
		}
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Trend.UpdateIntervalMinutes <= 0 {
		c.Trend.UpdateIntervalMinutes = 5
	}
	if c.Trend.ActiveMarketThresholdHours <= 0 {
		c.Trend.ActiveMarketThresholdHours = 1
	}
	if c.Trend.CacheTTLMinutes <= 0 {
		c.Trend.CacheTTLMinutes = 5
	}
	if c.Trend.BatchSize <= 0 {
		c.Trend.BatchSize = 5
	}
	if c.Flash.VelocityThreshold <= 0 {
		c.Flash.VelocityThreshold = 5.0
	}
	if c.Flash.Cooldown <= 0 {
		c.Flash.Cooldown = 2 * time.Minute
	}
	if c.Flash.ScanInterval <= 0 {
		c.Flash.ScanInterval = 2 * time.Second
	}
	if c.Flash.ResolveInterval <= 0 {
		c.Flash.ResolveInterval = 5 * time.Second
	}
	if c.Flash.WindowSeconds <= 0 {
		c.Flash.WindowSeconds = 60
	}
	if c.Flash.MinTrendScore <= 0 {
		c.Flash.MinTrendScore = 30
	}
	if c.Flash.ScanCandidateLimit <= 0 {
		c.Flash.ScanCandidateLimit = 20
	}
	if c.Inference.BreakerThreshold <= 0 {
		c.Inference.BreakerThreshold = 5
	}
	if c.Inference.BreakerTimeout <= 0 {
		c.Inference.BreakerTimeout = time.Minute
	}
	if c.Inference.Timeout <= 0 {
		c.Inference.Timeout = 30 * time.Second
	}
	if c.Cache.RequestsPerSecond <= 0 {
		c.Cache.RequestsPerSecond = 2
	}
	if c.Cache.SweepInterval <= 0 {
		c.Cache.SweepInterval = 5 * time.Minute
	}
	if c.Cache.RetryAttempts <= 0 {
		c.Cache.RetryAttempts = 3
	}
	if c.Cache.RetryBaseDelay <= 0 {
		c.Cache.RetryBaseDelay = time.Second
	}
	if c.Ledger.Timeout <= 0 {
		c.Ledger.Timeout = 15 * time.Second
	}
	if c.Ledger.ReconnectDelay <= 0 {
		c.Ledger.ReconnectDelay = 3 * time.Second
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Postgres.URL == "" {
		return fmt.Errorf("postgres.url is required")
	}
	if c.Inference.BaseURL == "" {
		return fmt.Errorf("inference.base_url is required")
	}
	if c.Ledger.RPCURL == "" {
		return fmt.Errorf("ledger.rpc_url is required")
	}
	return nil
}
