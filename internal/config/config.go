package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"reqsender/internal/model"
)

// EnvPrefix prefixes environment overrides, e.g. REQSENDER_HTTP_TIMEOUT
const EnvPrefix = "REQSENDER"

type Configuration struct {
	Variant string `mapstructure:"variant"`
	Storage struct {
		Backend string `mapstructure:"backend"`
		DataDir string `mapstructure:"data_dir"`
	} `mapstructure:"storage"`
	Logs struct {
		Max                    int  `mapstructure:"max"`
		RedactSensitiveHeaders bool `mapstructure:"redact_sensitive_headers"`
	} `mapstructure:"logs"`
	HTTP struct {
		Timeout          time.Duration `mapstructure:"timeout"`
		QueryFromBody    bool          `mapstructure:"query_from_body"`
		MaxResponseBytes int64         `mapstructure:"max_response_bytes"`
		DefaultMethod    string        `mapstructure:"default_method"`
	} `mapstructure:"http"`
	Logging struct {
		Level string `mapstructure:"level"`
		Path  string `mapstructure:"path"`
	} `mapstructure:"logging"`
	Server struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`
	Language string `mapstructure:"language"`

	// ConfigFileUsed is empty when only defaults and environment applied
	ConfigFileUsed string `mapstructure:"-"`
}

// Overrides carries command line flags that win over file and environment
type Overrides struct {
	Variant  string
	DataDir  string
	Backend  string
	LogLevel string
	Port     string
}

// Profile returns the variant profile selected by the configuration
func (c *Configuration) Profile() (model.Profile, error) {
	return model.ProfileByName(c.Variant)
}

func expandTilde(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// DefaultConfigDir is where config.yaml is looked up when no file is given
func DefaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "reqsender")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("variant", model.RequestProfile.Name)
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.data_dir", "~/.reqsender")
	v.SetDefault("logs.max", 0) // 0 keeps the variant's cap
	v.SetDefault("logs.redact_sensitive_headers", true)
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("http.query_from_body", true)
	v.SetDefault("http.max_response_bytes", int64(50*1024*1024))
	v.SetDefault("http.default_method", "")
	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.path", "")
	v.SetDefault("server.port", "8787")
	v.SetDefault("language", "")
}

// Load reads defaults, then the YAML file, then REQSENDER_* environment
// variables, then flag overrides. A missing default config file is not an
// error; a missing file named with --config is.
func Load(cfgFile string, flags Overrides) (*Configuration, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		expanded, err := expandTilde(cfgFile)
		if err != nil {
			expanded = cfgFile
		}
		v.SetConfigFile(expanded)
		v.SetConfigType("yaml")
	} else {
		v.AddConfigPath(DefaultConfigDir())
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.ConfigFileUsed = v.ConfigFileUsed()

	if flags.Variant != "" {
		cfg.Variant = flags.Variant
	}
	if flags.DataDir != "" {
		cfg.Storage.DataDir = flags.DataDir
	}
	if flags.Backend != "" {
		cfg.Storage.Backend = flags.Backend
	}
	if flags.LogLevel != "" {
		cfg.Logging.Level = flags.LogLevel
	}
	if flags.Port != "" {
		cfg.Server.Port = flags.Port
	}
	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)

	var err error
	if cfg.Storage.DataDir, err = expandTilde(cfg.Storage.DataDir); err != nil {
		return nil, err
	}
	if cfg.Logging.Path, err = expandTilde(cfg.Logging.Path); err != nil {
		return nil, err
	}

	if _, err := cfg.Profile(); err != nil {
		return nil, err
	}
	if cfg.HTTP.Timeout < 0 {
		return nil, fmt.Errorf("http.timeout must not be negative")
	}
	return &cfg, nil
}
