package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for a session. Timeouts follow the knobs most runner images
// expect: minutes for the two watch phases, seconds for keep-alive.
const (
	DefaultTunnelName     = "runner-tunnel"
	DefaultConnectMinutes = 5
	DefaultSessionMinutes = 60
	DefaultKeepAliveSecs  = 3600

	// MaxTunnelNameLen is the tunnel service's own limit on names.
	MaxTunnelNameLen = 20
)

// EnvActor supplies the invoking identity when no flag is given.
const EnvActor = "TUNNELTAP_ACTOR"

// File is the optional on-disk configuration (.tunneltap.yaml). Zero
// values mean "not set".
type File struct {
	TunnelName     string `yaml:"tunnel_name"`
	ConnectMinutes int    `yaml:"connection_timeout_minutes"`
	SessionMinutes int    `yaml:"session_timeout_minutes"`
	KeepAliveSecs  int    `yaml:"keep_alive_seconds"`
	Actor          string `yaml:"actor"`
	DataDir        string `yaml:"data_dir"`
	CacheRoot      string `yaml:"cache_root"`
}

// Config is the resolved runtime configuration.
type Config struct {
	TunnelName     string
	ConnectTimeout time.Duration
	SessionTimeout time.Duration
	KeepAlive      time.Duration
	Watch          bool
	Verbose        bool
	Actor          string
	DataDir        string
	CacheRoot      string
}

// Default returns the built-in configuration. The actor falls back to the
// environment so runner workflows need no flag for it.
func Default() Config {
	return Config{
		TunnelName:     DefaultTunnelName,
		ConnectTimeout: DefaultConnectMinutes * time.Minute,
		SessionTimeout: DefaultSessionMinutes * time.Minute,
		KeepAlive:      DefaultKeepAliveSecs * time.Second,
		Watch:          true,
		Actor:          os.Getenv(EnvActor),
	}
}

// Load reads the YAML config file at path. A missing file is not an error
// and yields a zero File.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("read config: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return f, nil
}

// Resolve layers file values over the defaults. Flag overrides are applied
// by the caller afterwards, before Validate.
func Resolve(f File) Config {
	cfg := Default()
	if f.TunnelName != "" {
		cfg.TunnelName = f.TunnelName
	}
	if f.ConnectMinutes > 0 {
		cfg.ConnectTimeout = time.Duration(f.ConnectMinutes) * time.Minute
	}
	if f.SessionMinutes > 0 {
		cfg.SessionTimeout = time.Duration(f.SessionMinutes) * time.Minute
	}
	if f.KeepAliveSecs > 0 {
		cfg.KeepAlive = time.Duration(f.KeepAliveSecs) * time.Second
	}
	if f.Actor != "" {
		cfg.Actor = f.Actor
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}
	if f.CacheRoot != "" {
		cfg.CacheRoot = f.CacheRoot
	}
	return cfg
}

// Validate rejects bad configurations before any network or filesystem
// work happens.
func (c Config) Validate() error {
	if c.TunnelName == "" {
		return fmt.Errorf("tunnel name must not be empty")
	}
	if len(c.TunnelName) > MaxTunnelNameLen {
		return fmt.Errorf("tunnel name %q exceeds %d characters", c.TunnelName, MaxTunnelNameLen)
	}
	if c.Watch {
		if c.ConnectTimeout <= 0 {
			return fmt.Errorf("connection timeout must be positive")
		}
		if c.SessionTimeout <= 0 {
			return fmt.Errorf("session timeout must be positive")
		}
	} else if c.KeepAlive <= 0 {
		return fmt.Errorf("keep-alive must be positive")
	}
	return nil
}
