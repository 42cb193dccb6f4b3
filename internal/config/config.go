package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete BBS configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Telnet  TelnetConfig  `yaml:"telnet"`
	Buffers BufferConfig  `yaml:"buffers"`
	Users   UsersConfig   `yaml:"users"`
	Session SessionConfig `yaml:"session"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig contains general board settings
type ServerConfig struct {
	Name    string `yaml:"name"`
	Welcome string `yaml:"welcome"`
}

// TelnetConfig contains telnet listener settings
type TelnetConfig struct {
	Address        string        `yaml:"address"`
	MaxConnections int           `yaml:"max_connections"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

// BufferConfig sizes the per-connection buffers
type BufferConfig struct {
	InputSize  int `yaml:"input_size"`
	OutputSize int `yaml:"output_size"`
}

// UsersConfig locates the user file
type UsersConfig struct {
	File string `yaml:"file"`
}

// SessionConfig contains login flow settings
type SessionConfig struct {
	MaxLoginAttempts  int  `yaml:"max_login_attempts"`
	AllowRegistration bool `yaml:"allow_registration"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Name:    "vBBS",
			Welcome: "Welcome to vBBS!",
		},
		Telnet: TelnetConfig{
			Address:        ":2323",
			MaxConnections: 32,
			PollInterval:   50 * time.Millisecond,
			WriteTimeout:   50 * time.Millisecond,
		},
		Buffers: BufferConfig{
			InputSize:  2048,
			OutputSize: 8192,
		},
		Users: UsersConfig{
			File: "users.tsv",
		},
		Session: SessionConfig{
			MaxLoginAttempts:  3,
			AllowRegistration: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads filename over the defaults. Keys absent from the file keep
// their default values.
func Load(filename string) (*Config, error) {
	cfg := Default()
	if filename == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %q: %w", filename, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Telnet.Address == "":
		return fmt.Errorf("telnet.address is required")
	case c.Buffers.InputSize <= 0 || c.Buffers.OutputSize <= 0:
		return fmt.Errorf("buffer sizes must be positive")
	case c.Session.MaxLoginAttempts <= 0:
		return fmt.Errorf("session.max_login_attempts must be positive")
	case c.Users.File == "":
		return fmt.Errorf("users.file is required")
	}
	return nil
}

// Print writes a summary of the configuration to w
func (c *Config) Print(w io.Writer) {
	fmt.Fprintf(w, "Server: %s\n", c.Server.Name)
	fmt.Fprintf(w, "Telnet: %s (max %d connections, poll %s)\n", c.Telnet.Address, c.Telnet.MaxConnections, c.Telnet.PollInterval)
	fmt.Fprintf(w, "Buffers: input=%d output=%d\n", c.Buffers.InputSize, c.Buffers.OutputSize)
	fmt.Fprintf(w, "Users: %s (registration %t)\n", c.Users.File, c.Session.AllowRegistration)
	fmt.Fprintf(w, "Logging: %s\n", c.Logging.Level)
}
