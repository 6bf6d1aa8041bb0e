package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Endpoint     string        `mapstructure:"endpoint"`
	UserID       string        `mapstructure:"user_id"`
	Format       string        `mapstructure:"format"`
	Device       string        `mapstructure:"device"`
	LogPath      string        `mapstructure:"log_path"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Beep         bool          `mapstructure:"beep"`
	FetchOnStart bool          `mapstructure:"fetch_on_start"`
	MinDuration  time.Duration `mapstructure:"min_duration"`
}

func Default() *Config {
	return &Config{
		UserID:      "studymate_user",
		Format:      "wav",
		Timeout:     30 * time.Second,
		Beep:        true,
		MinDuration: 300 * time.Millisecond,
	}
}

// flagKeys maps command line flags onto config keys.
var flagKeys = map[string]string{
	"endpoint":       "endpoint",
	"user-id":        "user_id",
	"format":         "format",
	"device":         "device",
	"log-path":       "log_path",
	"timeout":        "timeout",
	"beep":           "beep",
	"fetch-on-start": "fetch_on_start",
	"min-duration":   "min_duration",
}

// RegisterFlags adds the config flags to fs. Only flags the user sets
// override the file and environment.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("endpoint", "", "notes endpoint URL (POST submits audio, GET lists notes)")
	fs.String("user-id", d.UserID, "user id sent with every recording")
	fs.String("format", d.Format, "upload format: wav or flac")
	fs.String("device", "", "capture device name (default: system default)")
	fs.String("log-path", "", "log directory")
	fs.Duration("timeout", d.Timeout, "per-request HTTP timeout")
	fs.Bool("beep", d.Beep, "play audible cues")
	fs.Bool("fetch-on-start", false, "load the note list at startup instead of on demand")
	fs.Duration("min-duration", d.MinDuration, "warn about recordings shorter than this")
}

// Load merges, lowest priority first: defaults, the config file, .env,
// STUDYMATE_* environment variables and explicitly set flags.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	cfg := Default()
	v := viper.New()

	v.SetDefault("endpoint", "")
	v.SetDefault("user_id", cfg.UserID)
	v.SetDefault("format", cfg.Format)
	v.SetDefault("device", "")
	v.SetDefault("log_path", "")
	v.SetDefault("timeout", cfg.Timeout)
	v.SetDefault("beep", cfg.Beep)
	v.SetDefault("fetch_on_start", cfg.FetchOnStart)
	v.SetDefault("min_duration", cfg.MinDuration)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("studymate")
		v.SetConfigType("yaml")
		if dir := configDir(); dir != "" {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	v.SetEnvPrefix("STUDYMATE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// Validate reports every invalid value at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Endpoint == "" {
		errs = append(errs, errors.New("endpoint is required (set --endpoint or STUDYMATE_ENDPOINT)"))
	} else if u, err := url.Parse(c.Endpoint); err != nil {
		errs = append(errs, fmt.Errorf("endpoint %q is not a valid URL: %w", c.Endpoint, err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, fmt.Errorf("endpoint scheme must be http or https, got %q", u.Scheme))
	} else if u.Host == "" {
		errs = append(errs, fmt.Errorf("endpoint %q has no host", c.Endpoint))
	}

	switch c.Format {
	case "wav", "flac":
	default:
		errs = append(errs, fmt.Errorf("format must be wav or flac, got %q", c.Format))
	}

	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.UserID == "" {
		errs = append(errs, errors.New("user_id must not be empty"))
	}
	if c.MinDuration < 0 {
		errs = append(errs, fmt.Errorf("min_duration must not be negative, got %s", c.MinDuration))
	}

	return errors.Join(errs...)
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "studymate")
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "studymate")
}
