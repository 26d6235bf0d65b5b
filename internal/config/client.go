package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// ClientConfig is the chronosctl configuration.
type ClientConfig struct {
	APIURL  string        `mapstructure:"api_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

// ClientStore reads and writes the CLI config file. Values from CHRONOS_*
// environment variables take precedence over the file.
type ClientStore struct {
	v    *viper.Viper
	path string
}

// DefaultClientPath is $XDG_CONFIG_HOME/chronos/config.yaml, or the platform
// equivalent.
func DefaultClientPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "chronos", "config.yaml"), nil
}

// OpenClient loads the config at path. A missing file yields the defaults.
func OpenClient(path string) (*ClientStore, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("chronos")
	v.AutomaticEnv()

	v.SetDefault("api_url", "http://localhost:8080")
	v.SetDefault("token", "")
	v.SetDefault("timeout", 10*time.Second)
	v.SetDefault("retries", 2)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return &ClientStore{v: v, path: path}, nil
}

// Config returns the effective configuration.
func (s *ClientStore) Config() (ClientConfig, error) {
	var cfg ClientConfig
	if err := s.v.Unmarshal(&cfg); err != nil {
		return ClientConfig{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// SetToken stores the session token, or removes it when token is empty.
func (s *ClientStore) SetToken(token string) error {
	s.v.Set("token", token)
	return s.save()
}

// SetAPIURL stores the API base URL.
func (s *ClientStore) SetAPIURL(url string) error {
	s.v.Set("api_url", url)
	return s.save()
}

func (s *ClientStore) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write config %s: %w", s.path, err)
	}
	return os.Chmod(s.path, 0o600)
}
