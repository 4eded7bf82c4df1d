package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// EngineConfig controls the execution wrapper and the drive loop.
type EngineConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"` // retry ceiling per worker call
	BackoffMin  time.Duration `mapstructure:"backoff_min"`
	BackoffMax  time.Duration `mapstructure:"backoff_max"`
	MaxSteps    int           `mapstructure:"max_steps"` // safety bound per investigation
}

// CacheConfig controls the shared finding cache.
type CacheConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	RedisAddr     string        `mapstructure:"redis_addr"` // empty = in-process cache
	LocalCapacity int           `mapstructure:"local_capacity"`
}

// AnalysisConfig controls the deep-analysis branch of the execution wrapper.
type AnalysisConfig struct {
	Always        bool `mapstructure:"always"`         // analyze every outcome regardless of size
	SizeThreshold int  `mapstructure:"size_threshold"` // raw payload bytes above which analysis triggers
}

// ObservabilityConfig holds the metrics endpoint and logging knobs.
type ObservabilityConfig struct {
	MetricsPort int    `mapstructure:"metrics_port"`
	LogLevel    string `mapstructure:"log_level"`
}

// Config is the engine configuration.
type Config struct {
	Engine        EngineConfig        `mapstructure:"engine"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Analysis      AnalysisConfig      `mapstructure:"analysis"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxAttempts: 3,
			BackoffMin:  2 * time.Second,
			BackoffMax:  10 * time.Second,
			MaxSteps:    25,
		},
		Cache: CacheConfig{
			TTL:           5 * time.Minute,
			LocalCapacity: 1024,
		},
		Analysis: AnalysisConfig{
			SizeThreshold: 5000,
		},
		Observability: ObservabilityConfig{
			MetricsPort: 2112,
			LogLevel:    "info",
		},
	}
}

// Load reads configuration from CONFIG_PATH (or config/orderscope.yaml when
// unset) with ORDERSCOPE_* env overrides. A missing file is not an error;
// defaults apply.
func Load() (*Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	explicit := cfgPath != ""
	if cfgPath == "" {
		cfgPath = "config/orderscope.yaml"
	}

	v := viper.New()
	v.SetConfigFile(cfgPath)
	v.SetEnvPrefix("ORDERSCOPE")
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("engine.max_attempts", d.Engine.MaxAttempts)
	v.SetDefault("engine.backoff_min", d.Engine.BackoffMin)
	v.SetDefault("engine.backoff_max", d.Engine.BackoffMax)
	v.SetDefault("engine.max_steps", d.Engine.MaxSteps)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.local_capacity", d.Cache.LocalCapacity)
	v.SetDefault("analysis.always", false)
	v.SetDefault("analysis.size_threshold", d.Analysis.SizeThreshold)
	v.SetDefault("observability.metrics_port", d.Observability.MetricsPort)
	v.SetDefault("observability.log_level", d.Observability.LogLevel)

	// Env spellings: ORDERSCOPE_ENGINE_MAX_ATTEMPTS etc.
	for _, key := range []string{
		"engine.max_attempts", "engine.backoff_min", "engine.backoff_max",
		"engine.max_steps", "cache.ttl", "cache.redis_addr",
		"cache.local_capacity", "analysis.always", "analysis.size_threshold",
		"observability.metrics_port", "observability.log_level",
	} {
		env := "ORDERSCOPE_" + envKey(key)
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if explicit {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if _, statErr := os.Stat(cfgPath); statErr == nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Engine.MaxAttempts < 1 {
		return fmt.Errorf("engine.max_attempts must be >= 1, got %d", c.Engine.MaxAttempts)
	}
	if c.Engine.BackoffMin <= 0 || c.Engine.BackoffMax < c.Engine.BackoffMin {
		return fmt.Errorf("invalid backoff window [%s, %s]", c.Engine.BackoffMin, c.Engine.BackoffMax)
	}
	if c.Engine.MaxSteps < 1 {
		return fmt.Errorf("engine.max_steps must be >= 1, got %d", c.Engine.MaxSteps)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	return nil
}

func envKey(key string) string {
	out := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		ch := key[i]
		if ch == '.' {
			out = append(out, '_')
			continue
		}
		if ch >= 'a' && ch <= 'z' {
			ch -= 'a' - 'A'
		}
		out = append(out, ch)
	}
	return string(out)
}
