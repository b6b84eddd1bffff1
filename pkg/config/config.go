package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Notion    NotionConfig    `mapstructure:"notion"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Bot       BotConfig       `mapstructure:"bot"`
	Log       LogConfig       `mapstructure:"log"`
}

type TelegramConfig struct {
	Token         string `mapstructure:"token"`
	WebhookURL    string `mapstructure:"webhook_url"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

// RedisConfig selects the conversation state store. An empty URL keeps state in memory.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type NotionConfig struct {
	BaseURL           string  `mapstructure:"base_url"`
	APIVersion        string  `mapstructure:"api_version"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	TitleProperty     string  `mapstructure:"title_property"`
	URLProperty       string  `mapstructure:"url_property"`
	ReadProperty      string  `mapstructure:"read_property"`
	ReadValue         string  `mapstructure:"read_value"`
}

type SchedulerConfig struct {
	Timezone string `mapstructure:"timezone"`
	// Interval drives the built-in ticker. Zero leaves scheduling to POST /cron/deliver.
	Interval   time.Duration `mapstructure:"interval"`
	CronSecret string        `mapstructure:"cron_secret"`
}

type BotConfig struct {
	StateTTL          time.Duration `mapstructure:"state_ttl"`
	CleanupOnUnfollow bool          `mapstructure:"cleanup_on_unfollow"`

	// PickerOptions lists the "HH:MM" buttons of the time picker. Empty offers every full hour.
	PickerOptions []string `mapstructure:"picker_options"`
}

type LogConfig struct {
	Development bool `mapstructure:"development"`
}

// Location resolves the scheduler timezone
func (c SchedulerConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  sslMode,
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	// A .env file is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()

	// Set default values
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("notion.base_url", "https://api.notion.com")
	v.SetDefault("notion.api_version", "2022-06-28")
	v.SetDefault("notion.requests_per_second", 3)
	v.SetDefault("notion.title_property", "名前")
	v.SetDefault("notion.url_property", "URL")
	v.SetDefault("notion.read_property", "read")
	v.SetDefault("notion.read_value", "read")
	v.SetDefault("scheduler.timezone", "Asia/Tokyo")
	v.SetDefault("scheduler.interval", 0)
	v.SetDefault("bot.state_ttl", 300*time.Second)
	v.SetDefault("bot.cleanup_on_unfollow", true)
	v.SetDefault("log.development", false)

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		dbConfig.UseInMemory = config.Database.UseInMemory
		config.Database = dbConfig
	}

	// Get other environment variables
	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}
	if secret := v.GetString("TELEGRAM_WEBHOOK_SECRET"); secret != "" {
		config.Telegram.WebhookSecret = secret
	}
	if redisURL := v.GetString("REDIS_URL"); redisURL != "" {
		config.Redis.URL = redisURL
	}
	if cronSecret := v.GetString("CRON_SECRET"); cronSecret != "" {
		config.Scheduler.CronSecret = cronSecret
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks settings that have no usable default
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return errors.New("telegram token is required")
	}
	if c.Telegram.WebhookSecret == "" {
		return errors.New("telegram webhook secret is required")
	}
	if _, err := c.Scheduler.Location(); err != nil {
		return fmt.Errorf("invalid scheduler timezone %q: %w", c.Scheduler.Timezone, err)
	}
	if c.Scheduler.Interval < 0 {
		return errors.New("scheduler interval must not be negative")
	}
	for _, option := range c.Bot.PickerOptions {
		if _, err := time.Parse("15:04", option); err != nil {
			return fmt.Errorf("invalid picker option %q: want HH:MM", option)
		}
	}
	// Without the ticker, POST /cron/deliver is the only trigger
	if c.Scheduler.Interval == 0 && c.Scheduler.CronSecret == "" {
		return errors.New("scheduler cron secret is required when interval is 0")
	}
	return nil
}
