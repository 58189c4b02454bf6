package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Countdown CountdownConfig `mapstructure:"countdown"`
}

type ServerConfig struct {
	Port string `mapstructure:"port" validate:"required"`
}

type StorageConfig struct {
	FilePath string `mapstructure:"file_path" validate:"required"`
}

type NotifyConfig struct {
	Title            string        `mapstructure:"title"`
	DefaultLifetime  time.Duration `mapstructure:"default_lifetime" validate:"gt=0"`
	DesktopPolicy    string        `mapstructure:"desktop_policy" validate:"oneof=prompt granted denied"`
	AudioCacheSize   int           `mapstructure:"audio_cache_size" validate:"min=1"`
	PlayerCommand    string        `mapstructure:"player_command" validate:"required"`
	PushoverEndpoint string        `mapstructure:"pushover_endpoint" validate:"omitempty,url"`
}

type CountdownConfig struct {
	CompletionSound  string  `mapstructure:"completion_sound"`
	CompletionVolume float64 `mapstructure:"completion_volume" validate:"min=0,max=1"`
}

// Loader reads the process configuration from one YAML file. Every key can
// be overridden from the environment as DASHBOARD_<SECTION>_<KEY>.
type Loader struct {
	v        *viper.Viper
	validate *validator.Validate
	logger   *slog.Logger
}

func NewLoader(path string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("DASHBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", ":8080")
	v.SetDefault("storage.file_path", "data/dashboard.json")
	v.SetDefault("notify.title", "Widget Dashboard")
	v.SetDefault("notify.default_lifetime", "5s")
	v.SetDefault("notify.desktop_policy", "prompt")
	v.SetDefault("notify.audio_cache_size", 32)
	v.SetDefault("notify.player_command", "paplay")
	v.SetDefault("notify.pushover_endpoint", "https://api.pushover.net/1/messages.json")
	v.SetDefault("countdown.completion_sound", "")
	v.SetDefault("countdown.completion_volume", 1.0)

	return &Loader{v: v, validate: validator.New(), logger: logger}
}

// Load reads the file. A missing file leaves the defaults in place.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		l.logger.Warn("config file not found, using defaults", "path", l.v.ConfigFileUsed())
	}
	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := l.validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Watch calls fn with the new configuration every time the file changes.
// Edits that fail validation are logged and skipped.
func (l *Loader) Watch(fn func(*Config)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := l.decode()
		if err != nil {
			l.logger.Warn("ignoring config change", "file", e.Name, "error", err)
			return
		}
		l.logger.Info("config reloaded", "file", e.Name, "op", e.Op.String())
		fn(cfg)
	})
	l.v.WatchConfig()
}

func LoadConfig(path string) (*Config, error) {
	return NewLoader(path, nil).Load()
}
