package config

import (
	"fmt"
	"strings"
	"time"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	DefaultOpenAIModel   = "gpt-4o"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultGeminiModel   = "gemini-2.0-flash"

	RateLimitKeyToken = "token"
	RateLimitKeyIP    = "ip"
)

type Config struct {
	Log       Logger         `mapstructure:"logger"`
	API       API            `mapstructure:"api"`
	Auth      Auth           `mapstructure:"auth"`
	RateLimit RateLimit      `mapstructure:"rate_limit"`
	Image     Image          `mapstructure:"image"`
	Model     Model          `mapstructure:"model"`
	Cache     Cache          `mapstructure:"cache"`
	Telegram  TelegramConfig `mapstructure:"telegram" validate:"-"`
}

type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding" validate:"oneof=json console"`
}

type API struct {
	Port         int      `mapstructure:"port" validate:"min=1,max=65535"`
	RequestLimit string   `mapstructure:"request_limit" validate:"required"`
	CORSOrigins  []string `mapstructure:"cors_origins"`
}

type Auth struct {
	APIToken string `mapstructure:"api_token"`
}

type RateLimit struct {
	Window   time.Duration `mapstructure:"window" validate:"gt=0"`
	WindowMS int           `mapstructure:"window_ms" validate:"min=0"`
	Max      int           `mapstructure:"max" validate:"gt=0"`
	KeyBy    string        `mapstructure:"key_by" validate:"oneof=token ip"`
}

type Image struct {
	MaxBytes int64 `mapstructure:"max_bytes" validate:"gt=0"`
}

type Model struct {
	Provider        string        `mapstructure:"provider" validate:"oneof=openai gemini"`
	APIKey          string        `mapstructure:"api_key" validate:"required"`
	Name            string        `mapstructure:"name" validate:"required"`
	BaseURL         string        `mapstructure:"base_url" validate:"omitempty,url"`
	Timeout         time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxOutputTokens int           `mapstructure:"max_output_tokens" validate:"gt=0"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

type TelegramConfig struct {
	BotToken                  string        `mapstructure:"bot_token"`
	WebhookURL                string        `mapstructure:"webhook_url" validate:"omitempty,url"`
	WebhookSecret             string        `mapstructure:"webhook_secret" validate:"required_with=WebhookURL"`
	AllowedChatIDs            []int64       `mapstructure:"allowed_chat_ids"`
	AlertChatID               string        `mapstructure:"alert_chat_id"`
	TimeoutDuration           time.Duration `mapstructure:"timeout_duration" validate:"gt=0"`
	MaxUserRequestPerSecond   int           `mapstructure:"max_user_request_per_second" validate:"gt=0"`
	MaxGlobalRequestPerSecond int           `mapstructure:"max_global_request_per_second" validate:"gt=0"`
	RatelimitExpireDuration   time.Duration `mapstructure:"ratelimit_expire_duration" validate:"gt=0"`
}

// Enabled reports whether the Telegram delivery should be started.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != ""
}

// legacyEnv maps config keys to the flat variable names used by earlier deployments.
var legacyEnv = map[string]string{
	"logger.level":         "LOG_LEVEL",
	"api.port":             "PORT",
	"api.request_limit":    "REQUEST_LIMIT",
	"api.cors_origins":     "CORS_ORIGIN",
	"auth.api_token":       "API_TOKEN",
	"rate_limit.max":       "RATE_LIMIT_RPS",
	"rate_limit.window_ms": "RATE_LIMIT_WINDOW_MS",
	"image.max_bytes":      "MAX_IMAGE_BYTES",
	"model.api_key":        "OPENAI_API_KEY",
	"model.name":           "OPENAI_MODEL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")
	v.SetDefault("api.port", 3000)
	v.SetDefault("api.request_limit", "6M")
	v.SetDefault("api.cors_origins", []string{"*"})
	v.SetDefault("auth.api_token", "")
	v.SetDefault("rate_limit.window", time.Second)
	v.SetDefault("rate_limit.window_ms", 0)
	v.SetDefault("rate_limit.max", 5)
	v.SetDefault("rate_limit.key_by", RateLimitKeyToken)
	v.SetDefault("image.max_bytes", 5_000_000)
	v.SetDefault("model.provider", ProviderOpenAI)
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.name", "")
	v.SetDefault("model.base_url", "")
	v.SetDefault("model.timeout", 30*time.Second)
	v.SetDefault("model.max_output_tokens", 300)
	v.SetDefault("cache.default_expiration", time.Minute)
	v.SetDefault("cache.cleanup_interval", 5*time.Minute)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.webhook_url", "")
	v.SetDefault("telegram.webhook_secret", "")
	v.SetDefault("telegram.allowed_chat_ids", []int64{})
	v.SetDefault("telegram.alert_chat_id", "")
	v.SetDefault("telegram.timeout_duration", 2*time.Minute)
	v.SetDefault("telegram.max_user_request_per_second", 1)
	v.SetDefault("telegram.max_global_request_per_second", 30)
	v.SetDefault("telegram.ratelimit_expire_duration", 10*time.Minute)
}

// Load reads config.yaml (optional), the .env file (optional) and the environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AddConfigPath(".")
	v.AutomaticEnv()
	setDefaults(v)

	for key, env := range legacyEnv {
		upper := strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
		if err := v.BindEnv(key, upper, env); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Chat ids arrive as "1,-1002" from the environment; decode hooks only split into []string.
	if raw, ok := v.Get("telegram.allowed_chat_ids").(string); ok {
		v.Set("telegram.allowed_chat_ids", splitList(raw))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func splitList(raw string) []string {
	items := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

func (c *Config) normalize() {
	if c.RateLimit.WindowMS > 0 {
		c.RateLimit.Window = time.Duration(c.RateLimit.WindowMS) * time.Millisecond
	}

	// CORS_ORIGIN arrives as a single comma separated string from the environment.
	origins := []string{}
	for _, o := range c.API.CORSOrigins {
		origins = append(origins, splitList(o)...)
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c.API.CORSOrigins = origins

	c.Auth.APIToken = strings.TrimSpace(c.Auth.APIToken)
	c.Model.Provider = strings.ToLower(strings.TrimSpace(c.Model.Provider))
	if c.Model.Name == "" {
		c.Model.Name = DefaultOpenAIModel
		if c.Model.Provider == ProviderGemini {
			c.Model.Name = DefaultGeminiModel
		}
	}
	if c.Model.BaseURL == "" && c.Model.Provider == ProviderOpenAI {
		c.Model.BaseURL = DefaultOpenAIBaseURL
	}
	c.RateLimit.KeyBy = strings.ToLower(strings.TrimSpace(c.RateLimit.KeyBy))
}

// Validate checks the loaded values before any dependency is built.
func (c *Config) Validate() error {
	validate := goValidator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	// Bot limits only matter once the bot is switched on.
	if c.Telegram.Enabled() {
		if err := validate.Struct(c.Telegram); err != nil {
			return fmt.Errorf("invalid telegram configuration: %w", err)
		}
	}
	return nil
}
