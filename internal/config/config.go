package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultRedirectURI is used when redirect_uri is not configured. The
// sign-in flow binds a loopback listener to it.
const DefaultRedirectURI = "http://127.0.0.1:8420/callback"

const (
	defaultRefreshSeconds = 60
	minRefreshSeconds     = 10
)

// Config holds settings loaded from ~/.config/ec2console/config.yaml.
type Config struct {
	AuthDomain          string `yaml:"auth_domain"`
	ClientID            string `yaml:"client_id"`
	RedirectURI         string `yaml:"redirect_uri"`
	IdentityPoolID      string `yaml:"identity_pool_id"`
	ProviderName        string `yaml:"provider_name"`
	DefaultRegion       string `yaml:"default_region"`
	AutoRefreshInterval int    `yaml:"auto_refresh_interval"`
}

// Load reads the config file. Returns zero-value Config if the file doesn't exist.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return &Config{}, nil
	}

	path := filepath.Join(home, ".config", "ec2console", "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Merge applies the CLI region flag. Flags take precedence over config
// defaults; the builtin fallback is us-east-1.
func (c *Config) Merge(region string) string {
	if region != "" {
		return region
	}
	if c.DefaultRegion != "" {
		return c.DefaultRegion
	}
	return "us-east-1"
}

// Redirect returns the configured redirect URI or the loopback default.
func (c *Config) Redirect() string {
	if c.RedirectURI != "" {
		return c.RedirectURI
	}
	return DefaultRedirectURI
}

// RefreshInterval returns the background revalidation cadence, floored
// so a misconfigured value cannot hammer the API.
func (c *Config) RefreshInterval() time.Duration {
	if c.AutoRefreshInterval <= 0 {
		return defaultRefreshSeconds * time.Second
	}
	if c.AutoRefreshInterval < minRefreshSeconds {
		return minRefreshSeconds * time.Second
	}
	return time.Duration(c.AutoRefreshInterval) * time.Second
}

// ValidateAuth checks that every field the sign-in flow needs is set.
func (c *Config) ValidateAuth() error {
	switch {
	case c.AuthDomain == "":
		return errors.New("config: auth_domain is required")
	case c.ClientID == "":
		return errors.New("config: client_id is required")
	case c.IdentityPoolID == "":
		return errors.New("config: identity_pool_id is required")
	case c.ProviderName == "":
		return errors.New("config: provider_name is required")
	}
	return nil
}
