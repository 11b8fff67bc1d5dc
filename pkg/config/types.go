package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Security SecurityConfig `yaml:"security"`
	Chat     ChatConfig     `yaml:"chat"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds http and tls settings.
type ServerConfig struct {
	Address string    `yaml:"address"`
	Port    int       `yaml:"port"`
	DBPath  string    `yaml:"db_path"`
	TLS     TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate configuration.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// SecurityConfig holds security related settings.
type SecurityConfig struct {
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	// SigningKeys verify user session tokens (uid.hexsig); several keys may
	// be listed so tokens survive rotation.
	SigningKeys []string `yaml:"signing_keys"`
	APIKeys     struct {
		// Backend keys unlock provisioning endpoints.
		Backend []string `yaml:"backend"`
	} `yaml:"api_keys"`
}

// ChatConfig tunes the messaging surface.
type ChatConfig struct {
	// DefaultPageSize / MaxPageSize bound history pagination.
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
	// MaxMessageSize caps a single inbound live-channel frame ("16kb").
	MaxMessageSize SizeBytes `yaml:"max_message_size"`
	// RosterLimit bounds the user listing endpoints.
	RosterLimit int `yaml:"roster_limit"`
	// MaxTextLen / MaxAttachments / MaxVoiceSeconds bound message content.
	MaxTextLen      int     `yaml:"max_text_len"`
	MaxAttachments  int     `yaml:"max_attachments"`
	MaxVoiceSeconds float64 `yaml:"max_voice_seconds"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SizeBytes parses human-friendly byte sizes ("16kb", "1mb") or plain
// integers from YAML.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*s = 0
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*s = 0
		return nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		*s = SizeBytes(v)
		return nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*s = SizeBytes(i)
		return nil
	}
	return fmt.Errorf("invalid size value: %q", node.Value)
}

func (s SizeBytes) Int64() int64 { return int64(s) }

// DefaultPage returns the configured default page size or 30.
func (c ChatConfig) DefaultPage() int {
	if c.DefaultPageSize > 0 {
		return c.DefaultPageSize
	}
	return 30
}

// MaxPage returns the configured page-size ceiling or 100.
func (c ChatConfig) MaxPage() int {
	if c.MaxPageSize > 0 {
		return c.MaxPageSize
	}
	return 100
}

// FrameLimit returns the live-channel read limit or a 16KiB default.
func (c ChatConfig) FrameLimit() int64 {
	if c.MaxMessageSize > 0 {
		return c.MaxMessageSize.Int64()
	}
	return 16 << 10
}

// Roster returns the user-listing limit or 100.
func (c ChatConfig) Roster() int {
	if c.RosterLimit > 0 {
		return c.RosterLimit
	}
	return 100
}

// Addr returns the host:port the server should bind.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	p := c.Server.Port
	if p == 0 {
		p = 8080
	}
	return fmt.Sprintf("%s:%d", addr, p)
}
