package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
)

const (
	configName = ".bloomtool"
	configType = "yaml"
	envPrefix  = "BLOOMTOOL"
)

// Defaults used when neither a config file nor the environment sets a value.
const (
	DefaultExpected = "10k"
	DefaultAccuracy = 0.01
	DefaultFormat   = formatText
)

// Config holds the settings shared by every command. Field tags use
// mapstructure for viper unmarshalling.
type Config struct {
	// Expected is the element count new filters are sized for. It accepts
	// SI suffixes such as "10k" or "2M".
	Expected string  `mapstructure:"expected"`
	Accuracy float64 `mapstructure:"accuracy"`
	Format   string  `mapstructure:"format"`
}

// ExpectedCount parses Expected.
func (c *Config) ExpectedCount() (uint64, error) {
	n, err := humanize.ParseBytes(c.Expected)
	if err != nil {
		return 0, fmt.Errorf("invalid expected count %q: %w", c.Expected, err)
	}
	if n == 0 {
		return 0, errors.New("expected count must be positive")
	}
	return n, nil
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if _, err := c.ExpectedCount(); err != nil {
		return err
	}
	if c.Accuracy <= 0 || c.Accuracy >= 1 {
		return fmt.Errorf("accuracy must be in (0, 1), got %v", c.Accuracy)
	}
	switch c.Format {
	case formatText, formatJSON, formatYAML:
	default:
		return fmt.Errorf("unknown format %q", c.Format)
	}
	return nil
}

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("expected", DefaultExpected)
	v.SetDefault("accuracy", DefaultAccuracy)
	v.SetDefault("format", DefaultFormat)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}
