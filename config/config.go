package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	DefaultListenAddr      = "0.0.0.0:8000"
	DefaultAPIURL          = "https://api.hyperliquid.xyz"
	DefaultBuilderFillsURL = "https://stats-data.hyperliquid.xyz/Mainnet/builder_fills"
	DefaultRequestTimeout  = 30 * time.Second
	DefaultMaxRetries      = 10
	DefaultRetryDelay      = 2 * time.Second
	DefaultLogLevel        = "info"
)

type Config struct {
	ListenAddr        string
	HyperliquidAPIURL string
	BuilderFillsURL   string
	// TargetBuilder is empty when builder attribution is disabled.
	TargetBuilder string
	// BuilderCacheDir is empty when builder days are kept in memory only.
	BuilderCacheDir string
	RequestTimeout  time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
	LogLevel        zapcore.Level
	// MaxStartCapital caps the capital base of returns; zero means uncapped.
	MaxStartCapital decimal.Decimal
	CORSOrigins     []string
}

type ConfigTmp struct {
	ListenAddr        string `yaml:"listen_addr,omitempty"`
	HyperliquidAPIURL string `yaml:"hyperliquid_api_url,omitempty"`
	BuilderFillsURL   string `yaml:"builder_fills_url,omitempty"`
	TargetBuilder     string `yaml:"target_builder,omitempty"`
	BuilderCacheDir   string `yaml:"builder_cache_dir,omitempty"`
	RequestTimeout    string `yaml:"request_timeout,omitempty"`
	MaxRetries        string `yaml:"max_retries,omitempty"`
	RetryDelay        string `yaml:"retry_delay,omitempty"`
	LogLevel          string `yaml:"log_level,omitempty"`
	MaxStartCapital   string `yaml:"max_start_capital,omitempty"`
	CORSOrigins       string `yaml:"cors_origins,omitempty"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		ListenAddr:        DefaultListenAddr,
		HyperliquidAPIURL: DefaultAPIURL,
		BuilderFillsURL:   DefaultBuilderFillsURL,
		RequestTimeout:    DefaultRequestTimeout,
		MaxRetries:        DefaultMaxRetries,
		RetryDelay:        DefaultRetryDelay,
		LogLevel:          zapcore.InfoLevel,
		CORSOrigins:       []string{"*"},
	}
}

// Get loads configuration from the yaml file at path (optional), then the
// .env file at envPath (or ./.env), then the process environment.
// Priority: env > .env file > yaml > defaults.
func Get(path, envPath string) (Config, error) {
	var tmp ConfigTmp
	if path != "" {
		f, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrap(err, "read config")
		}
		if err := yaml.Unmarshal(f, &tmp); err != nil {
			return Config{}, errors.Wrap(err, "parse config")
		}
	}

	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return Config{}, errors.Wrapf(err, "load env file %s", envPath)
		}
	} else {
		_ = godotenv.Load()
	}
	overrideFromEnv(&tmp)

	return parse(tmp)
}

func overrideFromEnv(c *ConfigTmp) {
	fields := map[string]*string{
		"LISTEN_ADDR":         &c.ListenAddr,
		"HYPERLIQUID_API_URL": &c.HyperliquidAPIURL,
		"BUILDER_FILLS_URL":   &c.BuilderFillsURL,
		"TARGET_BUILDER":      &c.TargetBuilder,
		"BUILDER_CACHE_DIR":   &c.BuilderCacheDir,
		"REQUEST_TIMEOUT":     &c.RequestTimeout,
		"MAX_RETRIES":         &c.MaxRetries,
		"RETRY_DELAY":         &c.RetryDelay,
		"LOG_LEVEL":           &c.LogLevel,
		"MAX_START_CAPITAL":   &c.MaxStartCapital,
		"CORS_ORIGINS":        &c.CORSOrigins,
	}
	for key, field := range fields {
		if v, ok := os.LookupEnv(key); ok {
			*field = strings.TrimSpace(v)
		}
	}
}

func parse(c ConfigTmp) (Config, error) {
	cfg := Default()

	if c.ListenAddr != "" {
		cfg.ListenAddr = c.ListenAddr
	}
	if c.HyperliquidAPIURL != "" {
		cfg.HyperliquidAPIURL = strings.TrimRight(c.HyperliquidAPIURL, "/")
	}
	if c.BuilderFillsURL != "" {
		cfg.BuilderFillsURL = strings.TrimRight(c.BuilderFillsURL, "/")
	}
	cfg.BuilderCacheDir = c.BuilderCacheDir

	if c.TargetBuilder != "" {
		if !common.IsHexAddress(c.TargetBuilder) || !strings.HasPrefix(strings.ToLower(c.TargetBuilder), "0x") {
			return Config{}, fmt.Errorf("incorrect 'target_builder' param: %s is not a 0x-prefixed address", c.TargetBuilder)
		}
		cfg.TargetBuilder = strings.ToLower(c.TargetBuilder)
	}

	var err error
	if cfg.RequestTimeout, err = parseDuration("request_timeout", c.RequestTimeout, cfg.RequestTimeout); err != nil {
		return Config{}, err
	}
	if cfg.RetryDelay, err = parseDuration("retry_delay", c.RetryDelay, cfg.RetryDelay); err != nil {
		return Config{}, err
	}

	if c.MaxRetries != "" {
		n, err := strconv.Atoi(c.MaxRetries)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("incorrect 'max_retries' param (must be a non-negative integer): %s", c.MaxRetries)
		}
		cfg.MaxRetries = n
	}

	if c.LogLevel != "" {
		lvl, err := zapcore.ParseLevel(c.LogLevel)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'log_level' param: %w", err)
		}
		cfg.LogLevel = lvl
	}

	if c.MaxStartCapital != "" {
		capital, err := decimal.NewFromString(c.MaxStartCapital)
		if err != nil || capital.IsNegative() {
			return Config{}, fmt.Errorf("incorrect 'max_start_capital' param (must be a non-negative decimal): %s", c.MaxStartCapital)
		}
		cfg.MaxStartCapital = capital
	}

	if c.CORSOrigins != "" {
		var origins []string
		for _, o := range strings.Split(c.CORSOrigins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		if len(origins) > 0 {
			cfg.CORSOrigins = origins
		}
	}

	return cfg, nil
}

func parseDuration(key, raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("incorrect '%s' param (correct format is 30s): %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("incorrect '%s' param: must be positive, got %s", key, raw)
	}
	return d, nil
}
