package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Env       string          `mapstructure:"env" validate:"oneof=development production staging test"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	DB        DBConfig        `mapstructure:"db"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Hints     HintsConfig     `mapstructure:"hints"`
}

type HTTPConfig struct {
	Port           string        `mapstructure:"port" validate:"required,numeric"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" validate:"min=1"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" validate:"min=0"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" validate:"min=0"`
}

type DBConfig struct {
	Driver       string `mapstructure:"driver" validate:"oneof=postgres sqlite3"`
	Host         string `mapstructure:"host" validate:"required_if=Driver postgres"`
	Port         string `mapstructure:"port" validate:"required_if=Driver postgres"`
	User         string `mapstructure:"user" validate:"required_if=Driver postgres"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name" validate:"required_if=Driver postgres"`
	SSLMode      string `mapstructure:"sslmode" validate:"omitempty,oneof=disable require verify-ca verify-full"`
	SQLitePath   string `mapstructure:"sqlite_path" validate:"required_if=Driver sqlite3"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"min=1,max=1000"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"min=0,max=100"`
}

type CacheConfig struct {
	Backend           string        `mapstructure:"backend" validate:"oneof=memory redis"`
	RedisAddr         string        `mapstructure:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword     string        `mapstructure:"redis_password"`
	RedisDB           int           `mapstructure:"redis_db" validate:"min=0"`
	KeyPrefix         string        `mapstructure:"key_prefix"`
	Capacity          int           `mapstructure:"capacity" validate:"min=1"`
	ActiveQuestionTTL time.Duration `mapstructure:"active_question_ttl" validate:"min=1s"`
	QuizUsedTTL       time.Duration `mapstructure:"quiz_used_ttl" validate:"min=1s"`
	GameUsedTTL       time.Duration `mapstructure:"game_used_ttl" validate:"min=1s"`
	QuizBatchTTL      time.Duration `mapstructure:"quiz_batch_ttl" validate:"min=1s"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval" validate:"min=1s"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret" validate:"required,min=16"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" validate:"min=1m"`
}

type GeneratorConfig struct {
	MaxProbeAttempts      int `mapstructure:"max_probe_attempts" validate:"min=1"`
	MaxDistractorAttempts int `mapstructure:"max_distractor_attempts" validate:"min=1"`
	MaxCandidateAttempts  int `mapstructure:"max_candidate_attempts" validate:"min=1"`
	CategoryFetchFactor   int `mapstructure:"category_fetch_factor" validate:"min=1"`
}

type HintsConfig struct {
	Provider string        `mapstructure:"provider" validate:"oneof=mock anthropic"`
	Model    string        `mapstructure:"model"`
	APIKey   string        `mapstructure:"api_key" validate:"required_if=Provider anthropic"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" validate:"min=1s"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")

	v.SetDefault("http.port", "8080")
	v.SetDefault("http.allowed_origins", []string{"*"})
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "wordbox")
	v.SetDefault("db.password", "wordbox")
	v.SetDefault("db.name", "wordbox")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.sqlite_path", "wordbox.db")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 5)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.key_prefix", "wordbox:")
	v.SetDefault("cache.capacity", 10000)
	v.SetDefault("cache.active_question_ttl", 5*time.Minute)
	v.SetDefault("cache.quiz_used_ttl", time.Hour)
	v.SetDefault("cache.game_used_ttl", 6*time.Hour)
	v.SetDefault("cache.quiz_batch_ttl", time.Hour)
	v.SetDefault("cache.cleanup_interval", time.Minute)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 72*time.Hour)

	v.SetDefault("generator.max_probe_attempts", 40)
	v.SetDefault("generator.max_distractor_attempts", 100)
	v.SetDefault("generator.max_candidate_attempts", 20)
	v.SetDefault("generator.category_fetch_factor", 50)

	v.SetDefault("hints.provider", "mock")
	v.SetDefault("hints.model", "claude-sonnet-4-5")
	v.SetDefault("hints.api_key", "")
	v.SetDefault("hints.cache_ttl", 24*time.Hour)
}

// Load reads configs/<CONFIG_NAME>.yaml when present and lets environment
// variables override any key (db.host -> DB_HOST).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("http.port", "HTTP_PORT", "PORT"); err != nil {
		return nil, fmt.Errorf("failed to bind PORT: %w", err)
	}
	if err := v.BindEnv("hints.api_key", "HINTS_API_KEY", "ANTHROPIC_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind ANTHROPIC_API_KEY: %w", err)
	}

	configName := os.Getenv("CONFIG_NAME")
	if configName == "" {
		configName = "default"
	}
	v.AddConfigPath("configs")
	v.SetConfigName(configName)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

var validate = validator.New()

// Validate checks a struct against its validate tags and joins every
// failing field into one error.
func Validate(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validation failed: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
}
