package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"FinEvent/internal/domain/models"
	"FinEvent/internal/services/classifier"
	"FinEvent/internal/services/nonevent"
	"FinEvent/internal/services/sessions"
	"FinEvent/pkg/logger"
)

// EnvPrefix is the prefix of every environment override, e.g. FINEVENT_BACKEND.
const EnvPrefix = "FINEVENT"

type Symbol struct {
	Ticker string `yaml:"ticker" validate:"required"` // provider ticker, e.g. ZN=F
	Code   string `yaml:"code" validate:"required"`   // short code used in storage and APIs
	Name   string `yaml:"name"`
}

type Analysis struct {
	Scale             float64          `yaml:"scale" default:"16" validate:"gt=0"`
	Granularity       float64          `yaml:"granularity" default:"0.5" validate:"gt=0,lte=1"`
	ReferenceTimezone string           `yaml:"reference_timezone" default:"America/New_York" validate:"required"`
	BarsTimezone      string           `yaml:"bars_timezone" default:"UTC" validate:"required"`
	EventsTimezone    string           `yaml:"events_timezone" default:"Asia/Kolkata" validate:"required"`
	JoinMode          string           `yaml:"join_mode" default:"asof" validate:"oneof=asof outer"`
	MaxHorizon        int              `yaml:"max_horizon" default:"24" validate:"gte=1,lte=240"`
	LatestDays        int              `yaml:"latest_days" default:"14" validate:"gte=0"`
	Windows           nonevent.Windows `yaml:"windows"`
	Sessions          []sessions.Bound `yaml:"sessions" validate:"dive"`
}

type Config struct {
	Environment string        `yaml:"environment" default:"development" validate:"required"`
	Logger      logger.Config `yaml:"logger"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lt=65536"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		CORS            bool          `yaml:"cors" default:"true"`
		RateLimit       struct {
			RPS   float64 `yaml:"rps" default:"5"`
			Burst int     `yaml:"burst" default:"10"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Backend struct {
		Type         string        `yaml:"type" default:"clickhouse" validate:"oneof=kafka clickhouse"`
		BatchSize    int           `yaml:"batch_size" default:"2000" validate:"gte=1"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"2s"`
	} `yaml:"backend"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		BarsTopic    string   `yaml:"bars_topic" default:"finevent.bars"`
		EventsTopic  string   `yaml:"events_topic" default:"finevent.events"`
		ReportsTopic string   `yaml:"reports_topic" default:"finevent.reports"`
		LogsTopic    string   `yaml:"logs_topic" default:"finevent.logs"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			Linger       time.Duration `yaml:"linger" default:"20ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"500"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id" default:"finevent"`
			Workers    int           `yaml:"workers" default:"4" validate:"gte=1"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"finevent.dlq"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"finevent"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Cache struct {
		ReportTTL  time.Duration `yaml:"report_ttl" default:"10m"`
		MatrixTTL  time.Duration `yaml:"matrix_ttl" default:"30m"`
		MaxEntries int           `yaml:"max_entries" default:"512"`
		KeyPrefix  string        `yaml:"key_prefix" default:"finevent"`
	} `yaml:"cache"`
	Provider struct {
		BaseURL string        `yaml:"base_url" default:"https://query1.finance.yahoo.com"`
		Timeout time.Duration `yaml:"timeout" default:"20s"`
	} `yaml:"provider"`
	Finnhub struct {
		Enabled        bool          `yaml:"enabled"`
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url" default:"wss://ws.finnhub.io"`
		Symbols        []string      `yaml:"symbols"`
		BarInterval    string        `yaml:"bar_interval" default:"1m"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
	} `yaml:"finnhub"`
	Refresh struct {
		Enabled    bool          `yaml:"enabled"`
		Schedule   string        `yaml:"schedule" default:"0 18 * * 1-5"`
		Interval   string        `yaml:"interval" default:"1h"`
		Range      string        `yaml:"range" default:"5d"`
		Workers    int           `yaml:"workers" default:"2" validate:"gte=1"`
		RetryLimit int           `yaml:"retry_limit" default:"3"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"1m"`
		KeyPrefix  string        `yaml:"key_prefix" default:"finevent:refresh"`
	} `yaml:"refresh"`
	Events struct {
		Workbook string `yaml:"workbook"`
	} `yaml:"events"`
	Analysis Analysis            `yaml:"analysis"`
	Keywords classifier.Keywords `yaml:"keywords"`
	Symbols  []Symbol            `yaml:"symbols" validate:"dive"`
}

// envOverrides are read from FINEVENT_* variables after the YAML file.
type envOverrides struct {
	Environment        string   `envconfig:"ENVIRONMENT"`
	Backend            string   `envconfig:"BACKEND"`
	ServerPort         int      `envconfig:"SERVER_PORT"`
	LogLevel           string   `envconfig:"LOG_LEVEL"`
	KafkaBrokers       []string `envconfig:"KAFKA_BROKERS"`
	ClickHouseHost     string   `envconfig:"CLICKHOUSE_HOST"`
	ClickHousePassword string   `envconfig:"CLICKHOUSE_PASSWORD"`
	RedisAddr          string   `envconfig:"REDIS_ADDR"`
	RedisPassword      string   `envconfig:"REDIS_PASSWORD"`
	FinnhubAPIKey      string   `envconfig:"FINNHUB_API_KEY"`
	EventsWorkbook     string   `envconfig:"EVENTS_WORKBOOK"`
}

// Default returns a config holding only default values.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	c.fillDomainDefaults()
	return &c, nil
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.fillDomainDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables. A .env file in the working directory is read first if present.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	c.apply(env)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) apply(env envOverrides) {
	if env.Environment != "" {
		c.Environment = env.Environment
	}
	if env.Backend != "" {
		c.Backend.Type = env.Backend
	}
	if env.ServerPort != 0 {
		c.Server.Port = env.ServerPort
	}
	if env.LogLevel != "" {
		c.Logger.Level = env.LogLevel
	}
	if len(env.KafkaBrokers) > 0 {
		c.Kafka.Brokers = env.KafkaBrokers
	}
	if env.ClickHouseHost != "" {
		c.ClickHouse.Host = env.ClickHouseHost
	}
	if env.ClickHousePassword != "" {
		c.ClickHouse.Password = env.ClickHousePassword
	}
	if env.RedisAddr != "" {
		c.Redis.Addr = env.RedisAddr
	}
	if env.RedisPassword != "" {
		c.Redis.Password = env.RedisPassword
	}
	if env.FinnhubAPIKey != "" {
		c.Finnhub.APIKey = env.FinnhubAPIKey
	}
	if env.EventsWorkbook != "" {
		c.Events.Workbook = env.EventsWorkbook
	}
}

func (c *Config) fillDomainDefaults() {
	if len(c.Keywords.Tiers) == 0 && len(c.Keywords.Flags) == 0 {
		c.Keywords = classifier.DefaultKeywords()
	}
	if len(c.Analysis.Sessions) == 0 {
		c.Analysis.Sessions = sessions.DefaultBounds()
	}
	if len(c.Symbols) == 0 {
		c.Symbols = DefaultSymbols()
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if err := c.Keywords.Validate(); err != nil {
		return fmt.Errorf("keywords: %w", err)
	}
	for _, tz := range []string{c.Analysis.ReferenceTimezone, c.Analysis.BarsTimezone, c.Analysis.EventsTimezone} {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("analysis timezone %q: %w", tz, err)
		}
	}
	if c.Backend.Type == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when backend.type is kafka")
	}
	if c.Kafka.Consumer.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when the consumer is enabled")
	}
	if c.Finnhub.Enabled {
		if c.Finnhub.APIKey == "" {
			return fmt.Errorf("finnhub.api_key is required when finnhub is enabled")
		}
		if len(c.Finnhub.Symbols) == 0 {
			return fmt.Errorf("finnhub.symbols cannot be empty when finnhub is enabled")
		}
		if !models.Interval(c.Finnhub.BarInterval).IsIntraday() {
			return fmt.Errorf("finnhub.bar_interval %q must be intraday", c.Finnhub.BarInterval)
		}
	}
	if c.Refresh.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("refresh jobs need redis.enabled")
	}
	return nil
}

// SymbolCode maps a provider ticker to its short code, or returns the ticker.
func (c *Config) SymbolCode(ticker string) string {
	for _, s := range c.Symbols {
		if s.Ticker == ticker {
			return s.Code
		}
	}
	return ticker
}

// Ticker maps a short code (or ticker) to the provider ticker.
func (c *Config) Ticker(code string) string {
	for _, s := range c.Symbols {
		if s.Code == code || s.Ticker == code {
			return s.Ticker
		}
	}
	return code
}

// DefaultSymbols is the stock futures and index watch list.
func DefaultSymbols() []Symbol {
	return []Symbol{
		{Ticker: "ZN=F", Code: "ZN", Name: "10-Year T-Note Futures"},
		{Ticker: "ZB=F", Code: "ZB", Name: "30-Year T-Bond Futures"},
		{Ticker: "ZF=F", Code: "ZF", Name: "5-Year US T-Note Futures"},
		{Ticker: "ZT=F", Code: "ZT", Name: "2-Year US T-Note Futures"},
		{Ticker: "DX-Y.NYB", Code: "DXY", Name: "US Dollar Index"},
		{Ticker: "CL=F", Code: "CL", Name: "Crude Oil futures"},
		{Ticker: "GC=F", Code: "GC", Name: "Gold futures"},
		{Ticker: "NQ=F", Code: "NQ", Name: "Nasdaq 100 futures"},
		{Ticker: "^DJI", Code: "DJI", Name: "Dow Jones Industrial Average"},
		{Ticker: "^GSPC", Code: "GSPC", Name: "S&P 500"},
	}
}
