// Package config loads the run configuration: config.yml through viper with
// PINAGENT_* overrides, credentials from the environment (and .env files),
// and the ordered board list from boards.yml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/pinagent/internal/agent"
	"github.com/mesh-intelligence/pinagent/internal/imagehost"
	"github.com/mesh-intelligence/pinagent/internal/logger"
	"github.com/mesh-intelligence/pinagent/internal/media"
	"github.com/mesh-intelligence/pinagent/internal/pinterest"
	"github.com/mesh-intelligence/pinagent/pkg/types"
)

// File names inside the config directory.
const (
	ConfigFile = "config.yml"
	BoardsFile = "boards.yml"
	EnvFile    = ".env"
)

// EnvPrefix prefixes environment overrides: daily_pins.repins is
// PINAGENT_DAILY_PINS_REPINS.
const EnvPrefix = "PINAGENT"

// DailyPins sets the per-run quotas.
type DailyPins struct {
	Repins  int `mapstructure:"repins" validate:"gte=0"`
	NewPins int `mapstructure:"new_pins" validate:"gte=0"`
}

// Filters tune candidate selection.
type Filters struct {
	MinSaves  int `mapstructure:"min_saves" validate:"gte=0"`
	PostBatch int `mapstructure:"post_batch" validate:"gte=0"`
}

// Pinterest holds API access settings.
type Pinterest struct {
	BaseURL       string  `mapstructure:"base_url" validate:"omitempty,url"`
	AccessToken   string  `mapstructure:"access_token"`
	RefreshToken  string  `mapstructure:"refresh_token"`
	AppID         string  `mapstructure:"app_id"`
	AppSecret     string  `mapstructure:"app_secret"`
	RatePerSecond float64 `mapstructure:"rate_per_second" validate:"gte=0"`
}

// AI configures the text-to-image generator.
type AI struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
}

// ImageHost configures the GitHub image host.
type ImageHost struct {
	Token      string `mapstructure:"token"`
	Repository string `mapstructure:"repository"`
	Branch     string `mapstructure:"branch"`
	Dir        string `mapstructure:"dir"`
}

// Pacing tunes the delays between publishes.
type Pacing struct {
	Scale    float64 `mapstructure:"scale" validate:"gt=0"`
	Disabled bool    `mapstructure:"disabled"`
}

// Metrics configures the optional Pushgateway push.
type Metrics struct {
	PushgatewayURL string `mapstructure:"pushgateway_url" validate:"omitempty,url"`
	Job            string `mapstructure:"job"`
}

// Config is the complete run configuration. It is built once per command
// and passed to constructors.
type Config struct {
	Site      string         `mapstructure:"site" validate:"omitempty,url"`
	DailyPins DailyPins      `mapstructure:"daily_pins"`
	Filters   Filters        `mapstructure:"filters"`
	Pinterest Pinterest      `mapstructure:"pinterest"`
	AI        AI             `mapstructure:"ai"`
	ImageHost ImageHost      `mapstructure:"image_host"`
	Pacing    Pacing         `mapstructure:"pacing"`
	Metrics   Metrics        `mapstructure:"metrics"`
	Ledger    types.Config   `mapstructure:"ledger"`
	Log       logger.Config  `mapstructure:"log"`
	Boards    types.BoardSet `mapstructure:"-" validate:"dive"`
}

// envBindings maps config keys to the conventional variable names they are
// also read from.
var envBindings = map[string][]string{
	"site":                    {"SITE_URL"},
	"pinterest.access_token":  {"PINTEREST_TOKEN"},
	"pinterest.refresh_token": {"PINTEREST_REFRESH_TOKEN"},
	"pinterest.app_id":        {"PINTEREST_APP_ID"},
	"pinterest.app_secret":    {"PINTEREST_APP_SECRET"},
	"ai.token":                {"HF_API_TOKEN"},
	"image_host.token":        {"GITHUB_TOKEN"},
	"image_host.repository":   {"GITHUB_REPOSITORY"},
	"image_host.branch":       {"IMAGE_HOST_BRANCH"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("site", "")
	v.SetDefault("daily_pins.repins", 3)
	v.SetDefault("daily_pins.new_pins", 4)
	v.SetDefault("filters.min_saves", agent.DefaultMinSaves)
	v.SetDefault("filters.post_batch", agent.DefaultPostBatch)
	v.SetDefault("pinterest.base_url", pinterest.DefaultBaseURL)
	v.SetDefault("pinterest.access_token", "")
	v.SetDefault("pinterest.refresh_token", "")
	v.SetDefault("pinterest.app_id", "")
	v.SetDefault("pinterest.app_secret", "")
	v.SetDefault("pinterest.rate_per_second", 2.0)
	v.SetDefault("ai.enabled", true)
	v.SetDefault("ai.token", "")
	v.SetDefault("ai.model", media.DefaultAIModel)
	v.SetDefault("ai.base_url", media.DefaultAIBaseURL)
	v.SetDefault("image_host.token", "")
	v.SetDefault("image_host.repository", "")
	v.SetDefault("image_host.branch", imagehost.DefaultBranch)
	v.SetDefault("image_host.dir", imagehost.DefaultDir)
	v.SetDefault("pacing.scale", 1.0)
	v.SetDefault("pacing.disabled", false)
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "pinagent")
	v.SetDefault("ledger.backend", types.BackendSQLite)
	v.SetDefault("ledger.data_dir", "")
	v.SetDefault("ledger.redis_url", "")
	v.SetDefault("log.level", logger.DefaultLevel)
	v.SetDefault("log.development", false)
}

// Load reads the configuration from dir. Missing config.yml and boards.yml
// files are not errors; defaults and the environment still apply.
func Load(dir string) (*Config, error) {
	if err := loadEnvFiles(dir); err != nil {
		return nil, err
	}

	v, err := newViper(dir)
	if err != nil {
		return nil, err
	}
	expandAll(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	boards, err := LoadBoards(filepath.Join(dir, BoardsFile))
	if err != nil {
		return nil, err
	}
	cfg.Boards = boards

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DataDir returns ledger.data_dir from the config in dir, or "".
func DataDir(dir string) string {
	v, err := newViper(dir)
	if err != nil {
		return ""
	}
	return expand(v.GetString("ledger.data_dir"))
}

func newViper(dir string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(filepath.Join(dir, ConfigFile))
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envBindings {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, prefixed}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// loadEnvFiles loads .env from the config directory, then from the working
// directory. Variables already set are never overwritten.
func loadEnvFiles(dir string) error {
	for _, path := range []string{filepath.Join(dir, EnvFile), EnvFile} {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expand replaces ${VAR} references with environment values. Unset
// variables expand to "".
func expand(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(m string) string {
		return os.Getenv(m[2 : len(m)-1])
	})
}

func expandAll(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		if s, ok := v.Get(key).(string); ok && strings.Contains(s, "${") {
			v.Set(key, expand(s))
		}
	}
}

// ErrSiteRequired is returned by CheckRun when no site URL is configured.
var ErrSiteRequired = errors.New("site URL is required (set site in config.yml or SITE_URL)")

// CheckRun reports settings a publishing run needs that ledger-only
// commands do not.
func (c *Config) CheckRun() error {
	if c.Site == "" {
		return ErrSiteRequired
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the ledger backend settings.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Ledger.Validate(); err != nil {
		return fmt.Errorf("invalid ledger config: %w", err)
	}
	return nil
}
