// Package config loads pastewire settings. Defaults are overlaid by an optional TOML
// file, which is in turn overlaid by PASTEWIRE_* environment variables.
package config

import (
	"net"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

const (
	// EnvPrefix prefixes every environment variable read by Load.
	EnvPrefix = "PASTEWIRE_"

	DefaultAddress        = "127.0.0.1:9998"
	DefaultListen         = ":9998"
	DefaultConnectTimeout = 5 * time.Second
	DefaultMarker         = "333KLKLKL333"
	DefaultExitCommand    = "exit"
	DefaultLogLevel       = "info"

	// DefaultPeerMaxFrameSize is the inbound limit a peer applies when none is configured.
	DefaultPeerMaxFrameSize = 10 * 1024 * 1024
)

// Config holds client and peer settings.
type Config struct {
	Address        string        `toml:"address"         env:"ADDRESS"`
	Listen         string        `toml:"listen"          env:"LISTEN"`
	ConnectTimeout time.Duration `toml:"connect_timeout" env:"CONNECT_TIMEOUT"`
	ReadTimeout    time.Duration `toml:"read_timeout"    env:"READ_TIMEOUT"`
	WriteTimeout   time.Duration `toml:"write_timeout"   env:"WRITE_TIMEOUT"`
	MaxFrameSize   uint32        `toml:"max_frame_size"  env:"MAX_FRAME_SIZE"`
	Proxy          string        `toml:"proxy"           env:"PROXY"`
	Marker         string        `toml:"marker"          env:"MARKER"`
	ExitCommand    string        `toml:"exit_command"    env:"EXIT_COMMAND"`
	LogLevel       string        `toml:"log_level"       env:"LOG_LEVEL"`
	LogNoColor     bool          `toml:"log_no_color"    env:"LOG_NOCOLOR"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Address:        DefaultAddress,
		Listen:         DefaultListen,
		ConnectTimeout: DefaultConnectTimeout,
		Marker:         DefaultMarker,
		ExitCommand:    DefaultExitCommand,
		LogLevel:       DefaultLogLevel,
	}
}

// Load returns Default overlaid by the TOML file at path (skipped when path is empty)
// and then by the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, errors.Wrap(err, "parse env")
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	// Keys absent from the file keep their current values.
	meta, err := toml.DecodeFile(path, c)
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return errors.Errorf("load config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func (c *Config) normalize() {
	c.Address = strings.TrimSpace(c.Address)
	c.Listen = strings.TrimSpace(c.Listen)
	c.Proxy = strings.TrimSpace(c.Proxy)
	c.ExitCommand = strings.TrimSpace(c.ExitCommand)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Address); err != nil {
		return errors.Wrapf(err, "invalid address %q", c.Address)
	}
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return errors.Wrapf(err, "invalid listen address %q", c.Listen)
	}
	if c.ConnectTimeout < 0 || c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if c.ExitCommand == "" {
		return errors.New("exit_command must not be empty")
	}
	return nil
}

// PeerMaxFrameSize returns MaxFrameSize, or DefaultPeerMaxFrameSize when it is unset.
func (c Config) PeerMaxFrameSize() uint32 {
	if c.MaxFrameSize == 0 {
		return DefaultPeerMaxFrameSize
	}
	return c.MaxFrameSize
}
