package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken     string           `yaml:"discord_token" validate:"required"`
	DatabaseURL      string           `yaml:"database_url" validate:"required"`
	LogLevel         string           `yaml:"log_level" validate:"oneof=debug info warn error"`
	CommandPrefix    string           `yaml:"command_prefix" validate:"required,max=5"`
	LogChannel       string           `yaml:"log_channel"`
	RetentionDays    int              `yaml:"retention_days" validate:"gte=1"`
	RegisterCommands bool             `yaml:"register_commands"`
	Health           HealthConfig     `yaml:"health"`
	Automod          AutomodConfig    `yaml:"automod"`
	Support          SupportConfig    `yaml:"support"`
	Reputation       ReputationConfig `yaml:"reputation"`
	Cooldown         CooldownConfig   `yaml:"cooldown"`
	Notifications    NotifyConfig     `yaml:"notifications"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr" validate:"required_if=Enabled true"`
}

type AutomodConfig struct {
	RulesPath string `yaml:"rules_path"`
	Watch     bool   `yaml:"watch"`
	Enabled   bool   `yaml:"enabled"`
	AuditOnly bool   `yaml:"audit_only"`
	PageSize  int    `yaml:"page_size" validate:"gte=1,lte=25"`
	CacheSize int    `yaml:"cache_size" validate:"gte=0"`
}

type SupportConfig struct {
	AutoCloseHours          int `yaml:"auto_close_hours" validate:"gte=0"`
	ReminderHours           int `yaml:"reminder_hours" validate:"gte=0"`
	SweepIntervalSeconds    int `yaml:"sweep_interval_seconds" validate:"gte=10"`
	ReminderIntervalSeconds int `yaml:"reminder_interval_seconds" validate:"gte=5"`
}

type ReputationConfig struct {
	BaseURL           string `yaml:"base_url" validate:"omitempty,url"`
	APIKey            string `yaml:"api_key"`
	BearerToken       string `yaml:"bearer_token"`
	RequestsPerMinute int    `yaml:"requests_per_minute" validate:"gte=0"`
	CacheSize         int    `yaml:"cache_size" validate:"gte=0"`
	CacheTTLMinutes   int    `yaml:"cache_ttl_minutes" validate:"gte=0"`
	TimeoutSeconds    int    `yaml:"timeout_seconds" validate:"gte=1"`
	MaxFileBytes      int64  `yaml:"max_file_bytes" validate:"gte=0"`
}

type CooldownConfig struct {
	Commands      int `yaml:"commands" validate:"gte=0"`
	WindowSeconds int `yaml:"window_seconds" validate:"gte=0"`
}

type NotifyConfig struct {
	EmbedColors EmbedColors `yaml:"embed_colors"`
}

type EmbedColors struct {
	Action  int `yaml:"action"`
	Warning int `yaml:"warning"`
	Error   int `yaml:"error"`
}

func DefaultConfig() Config {
	return Config{
		DatabaseURL:      "/data/sentinel.db",
		LogLevel:         "info",
		CommandPrefix:    "!",
		RetentionDays:    30,
		RegisterCommands: true,
		Health:           HealthConfig{Enabled: false, Addr: ":8080"},
		Automod: AutomodConfig{
			RulesPath: "automod-rules.yaml",
			Watch:     false,
			Enabled:   true,
			AuditOnly: false,
			PageSize:  5,
			CacheSize: 1024,
		},
		Support: SupportConfig{
			AutoCloseHours:          72,
			ReminderHours:           24,
			SweepIntervalSeconds:    300,
			ReminderIntervalSeconds: 30,
		},
		Reputation: ReputationConfig{
			BaseURL:           "https://www.virustotal.com/api/v3",
			RequestsPerMinute: 4,
			CacheSize:         512,
			CacheTTLMinutes:   60,
			TimeoutSeconds:    20,
			MaxFileBytes:      32 << 20,
		},
		Cooldown: CooldownConfig{Commands: 5, WindowSeconds: 30},
		Notifications: NotifyConfig{
			EmbedColors: EmbedColors{
				Action:  0x5865F2,
				Warning: 0xEF4444,
				Error:   0xF97316,
			},
		},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints after file and env values are applied.
func Validate(cfg Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabaseURL = envString("DATABASE_URL", cfg.DatabaseURL)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.CommandPrefix = envString("COMMAND_PREFIX", cfg.CommandPrefix)
	cfg.LogChannel = envString("LOG_CHANNEL", cfg.LogChannel)
	cfg.RetentionDays = envInt("RETENTION_DAYS", cfg.RetentionDays)
	cfg.RegisterCommands = envBool("REGISTER_COMMANDS", cfg.RegisterCommands)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Automod.RulesPath = envString("AUTOMOD_RULES_PATH", cfg.Automod.RulesPath)
	cfg.Automod.Watch = envBool("AUTOMOD_WATCH", cfg.Automod.Watch)
	cfg.Automod.Enabled = envBool("AUTOMOD_ENABLED", cfg.Automod.Enabled)
	cfg.Automod.AuditOnly = envBool("AUTOMOD_AUDIT_ONLY", cfg.Automod.AuditOnly)
	cfg.Automod.PageSize = envInt("AUTOMOD_PAGE_SIZE", cfg.Automod.PageSize)
	cfg.Support.AutoCloseHours = envInt("SUPPORT_AUTO_CLOSE_HOURS", cfg.Support.AutoCloseHours)
	cfg.Support.ReminderHours = envInt("SUPPORT_REMINDER_HOURS", cfg.Support.ReminderHours)
	cfg.Reputation.BaseURL = envString("REPUTATION_BASE_URL", cfg.Reputation.BaseURL)
	cfg.Reputation.APIKey = envString("REPUTATION_API_KEY", cfg.Reputation.APIKey)
	cfg.Reputation.BearerToken = envString("REPUTATION_BEARER_TOKEN", cfg.Reputation.BearerToken)
	cfg.Reputation.RequestsPerMinute = envInt("REPUTATION_REQUESTS_PER_MINUTE", cfg.Reputation.RequestsPerMinute)
	cfg.Cooldown.Commands = envInt("COOLDOWN_COMMANDS", cfg.Cooldown.Commands)
	cfg.Cooldown.WindowSeconds = envInt("COOLDOWN_WINDOW_SECONDS", cfg.Cooldown.WindowSeconds)
	cfg.Notifications.EmbedColors.Action = envInt("EMBED_COLOR_ACTION", cfg.Notifications.EmbedColors.Action)
	cfg.Notifications.EmbedColors.Warning = envInt("EMBED_COLOR_WARNING", cfg.Notifications.EmbedColors.Warning)
	cfg.Notifications.EmbedColors.Error = envInt("EMBED_COLOR_ERROR", cfg.Notifications.EmbedColors.Error)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(strings.ToLower(level)))

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}
