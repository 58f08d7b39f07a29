package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the workspace config file.
const FileName = "sprintdesk.yml"

// Config models sprintdesk.yml.
type Config struct {
	Server struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"server"`
	Project struct {
		ID string `yaml:"id"`
	} `yaml:"project"`
	List struct {
		PageSize       int  `yaml:"page_size"`
		ClearOnRefresh bool `yaml:"clear_on_refresh"`
	} `yaml:"list"`
	Locale        string `yaml:"locale"`
	Notifications struct {
		Duration time.Duration `yaml:"duration"`
	} `yaml:"notifications"`
	Dev DevConfig `yaml:"dev"`
}

// DevConfig drives `sd serve`.
type DevConfig struct {
	Addr          string        `yaml:"addr"`
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	InvitationTTL time.Duration `yaml:"invitation_ttl"`
}

func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with sd config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.BaseURL) == "" {
		return fmt.Errorf("config.server.base_url is required")
	}
	if !strings.HasPrefix(c.Server.BaseURL, "http://") && !strings.HasPrefix(c.Server.BaseURL, "https://") {
		return fmt.Errorf("config.server.base_url must be an http(s) URL")
	}
	if c.Server.Timeout < 0 {
		return fmt.Errorf("config.server.timeout must not be negative")
	}
	if c.List.PageSize < 1 {
		return fmt.Errorf("config.list.page_size must be at least 1")
	}
	if c.Notifications.Duration < 0 {
		return fmt.Errorf("config.notifications.duration must not be negative")
	}
	if c.Dev.TokenTTL < 0 || c.Dev.InvitationTTL < 0 {
		return fmt.Errorf("config.dev ttl values must not be negative")
	}
	return nil
}

func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// GenerateDefault renders the starter file for a project.
func GenerateDefault(projectID string) string {
	return fmt.Sprintf(defaultTemplate, projectID)
}

// LoadOptional returns Default("") if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	cfg, err := Load(workspace)
	if err == nil {
		return cfg, nil
	}
	if _, statErr := os.Stat(Path(workspace)); os.IsNotExist(statErr) {
		return Default(""), nil
	}
	return nil, err
}

// Default returns the default Config struct for a project.
func Default(projectID string) *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(GenerateDefault(projectID))).Decode(&cfg)
	return &cfg
}

// FromYAML decodes over the defaults, so a partial file keeps every
// unset key at its default.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default("")
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// Marshal renders cfg as YAML.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), enc.Close()
}

const defaultTemplate = `server:
  base_url: http://127.0.0.1:8787
  timeout: 10s
project:
  id: %q
list:
  page_size: 20
  clear_on_refresh: false
locale: en
notifications:
  duration: 5s
dev:
  addr: 127.0.0.1:8787
  jwt_secret: sprintdesk-dev-secret
  token_ttl: 12h
  invitation_ttl: 168h
`
