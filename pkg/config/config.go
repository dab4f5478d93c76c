package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/avaloki108/Slitheryn/pkg/adk"
	"github.com/avaloki108/Slitheryn/pkg/engine"
	"github.com/avaloki108/Slitheryn/pkg/orchestrator"
	"github.com/avaloki108/Slitheryn/pkg/selector"
)

const (
	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "SLITHERYN_CONFIG"
	// EnvSigningPassphrase unlocks an encrypted signing key.
	EnvSigningPassphrase = "SLITHERYN_SIGNING_PASSPHRASE"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// apiKeyEnv is consulted when no key is stored for a provider.
var apiKeyEnv = map[string]string{
	"gemini":    "GOOGLE_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
}

type Analysis struct {
	DefaultMode        string        `yaml:"default_mode"`
	ConsensusThreshold float64       `yaml:"consensus_threshold"`
	AgentTimeout       time.Duration `yaml:"agent_timeout"`
	MaxWorkers         int           `yaml:"max_workers"`
	Parallel           bool          `yaml:"parallel"`
	EnabledRoles       []string      `yaml:"enabled_roles"`
}

// Models is the role to model preference table. Roles maps a role name to
// mode names to ordered model lists.
type Models struct {
	Default string                         `yaml:"default"`
	Roles   map[string]map[string][]string `yaml:"roles,omitempty"`
}

type Signing struct {
	KeyFile string `yaml:"key_file,omitempty"`
}

type Server struct {
	Addr string `yaml:"addr,omitempty"`
}

type Config struct {
	SelectedProvider string                    `yaml:"selected_provider"`
	Providers        map[string]ProviderConfig `yaml:"providers"`
	Analysis         Analysis                  `yaml:"analysis"`
	Models           Models                    `yaml:"models"`
	Signing          Signing                   `yaml:"signing,omitempty"`
	Server           Server                    `yaml:"server,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	oc := orchestrator.DefaultConfig()
	roles := make([]string, 0, len(engine.AllRoles()))
	for _, r := range engine.AllRoles() {
		roles = append(roles, string(r))
	}
	return &Config{
		SelectedProvider: "ollama",
		Providers: map[string]ProviderConfig{
			"ollama": {BaseURL: adk.DefaultOllamaURL},
		},
		Analysis: Analysis{
			DefaultMode:        string(oc.DefaultMode),
			ConsensusThreshold: oc.DefaultThreshold,
			AgentTimeout:       oc.DefaultTimeout,
			MaxWorkers:         oc.MaxWorkers,
			Parallel:           true,
			EnabledRoles:       roles,
		},
		Models: Models{Default: selector.ModelPrimary},
		Server: Server{Addr: "127.0.0.1:8742"},
	}
}

func GetConfigPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".slitheryn", "config.yaml"), nil
}

func LoadConfig() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadConfigFrom(path)
}

// LoadConfigFrom reads path, returning Default() when the file does not exist.
// Fields missing from the file keep their default values.
func LoadConfigFrom(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	return cfg, nil
}

func SaveConfig(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveConfigTo(cfg, path)
}

func SaveConfigTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// 0600 permissions for security (api keys)
	return os.WriteFile(path, data, 0600)
}

// Validate rejects values the orchestrator would refuse at request time.
func (c *Config) Validate() error {
	var errs []error
	a := c.Analysis
	if math.IsNaN(a.ConsensusThreshold) || a.ConsensusThreshold < 0 || a.ConsensusThreshold > 1 {
		errs = append(errs, fmt.Errorf("analysis.consensus_threshold %v outside [0,1]", a.ConsensusThreshold))
	}
	if a.MaxWorkers <= 0 {
		errs = append(errs, fmt.Errorf("analysis.max_workers must be positive, got %d", a.MaxWorkers))
	}
	if a.AgentTimeout <= 0 {
		errs = append(errs, fmt.Errorf("analysis.agent_timeout must be positive, got %s", a.AgentTimeout))
	}
	if _, err := selector.ParseMode(a.DefaultMode); err != nil {
		errs = append(errs, fmt.Errorf("analysis.default_mode: %w", err))
	}
	if _, err := c.Roles(); err != nil {
		errs = append(errs, fmt.Errorf("analysis.enabled_roles: %w", err))
	}
	for role, modes := range c.Models.Roles {
		if _, err := engine.ParseRole(role); err != nil {
			errs = append(errs, fmt.Errorf("models.roles: %w", err))
		}
		for mode := range modes {
			if _, err := selector.ParseMode(mode); err != nil {
				errs = append(errs, fmt.Errorf("models.roles.%s: %w", role, err))
			}
		}
	}
	if p := c.SelectedProvider; p != "" && !knownProvider(p) {
		errs = append(errs, fmt.Errorf("selected_provider %q is not one of %s", p, strings.Join(adk.Providers, ", ")))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

func knownProvider(name string) bool {
	for _, p := range adk.Providers {
		if p == name {
			return true
		}
	}
	return false
}

// Roles parses the enabled roles. An empty list enables every role.
func (c *Config) Roles() ([]engine.Role, error) {
	if len(c.Analysis.EnabledRoles) == 0 {
		return engine.AllRoles(), nil
	}
	seen := map[engine.Role]bool{}
	var roles []engine.Role
	for _, name := range c.Analysis.EnabledRoles {
		r, err := engine.ParseRole(name)
		if err != nil {
			return nil, err
		}
		if !seen[r] {
			seen[r] = true
			roles = append(roles, r)
		}
	}
	return roles, nil
}

func (c *Config) Mode() (selector.Mode, error) {
	return selector.ParseMode(c.Analysis.DefaultMode)
}

// SelectorTable overlays the configured preferences on the built-in table.
// Roles or modes not mentioned in the file keep their built-in lists.
func (c *Config) SelectorTable() selector.Table {
	t := selector.DefaultTable()
	if c.Models.Default != "" {
		t.Default = c.Models.Default
	}
	for roleName, modes := range c.Models.Roles {
		role, err := engine.ParseRole(roleName)
		if err != nil {
			continue
		}
		if t.Preferences[role] == nil {
			t.Preferences[role] = map[selector.Mode][]string{}
		}
		for modeName, models := range modes {
			mode, err := selector.ParseMode(modeName)
			if err != nil {
				continue
			}
			t.Preferences[role][mode] = append([]string(nil), models...)
		}
	}
	return t
}

// OrchestratorConfig converts the analysis section.
func (c *Config) OrchestratorConfig() orchestrator.Config {
	mode, err := c.Mode()
	if err != nil {
		mode = selector.ModeComprehensive
	}
	return orchestrator.Config{
		MaxWorkers:       c.Analysis.MaxWorkers,
		DefaultTimeout:   c.Analysis.AgentTimeout,
		DefaultThreshold: c.Analysis.ConsensusThreshold,
		DefaultMode:      mode,
	}
}

// SetRoleModels replaces the preference list for one role and mode.
func (c *Config) SetRoleModels(role, mode string, models []string) error {
	r, err := engine.ParseRole(role)
	if err != nil {
		return err
	}
	m, err := selector.ParseMode(mode)
	if err != nil {
		return err
	}
	if c.Models.Roles == nil {
		c.Models.Roles = map[string]map[string][]string{}
	}
	if c.Models.Roles[string(r)] == nil {
		c.Models.Roles[string(r)] = map[string][]string{}
	}
	var clean []string
	for _, model := range models {
		if model = strings.TrimSpace(model); model != "" {
			clean = append(clean, model)
		}
	}
	c.Models.Roles[string(r)][string(m)] = clean
	return nil
}

func (c *Config) SetAPIKey(provider, key string) {
	p := c.Providers[provider]
	p.APIKey = key
	c.Providers[provider] = p
}

// GetAPIKey returns the stored key, falling back to the provider's usual
// environment variable.
func (c *Config) GetAPIKey(provider string) string {
	if k := c.Providers[provider].APIKey; k != "" {
		return k
	}
	if env, ok := apiKeyEnv[provider]; ok {
		return os.Getenv(env)
	}
	return ""
}

func (c *Config) SetBaseURL(provider, url string) {
	p := c.Providers[provider]
	p.BaseURL = url
	c.Providers[provider] = p
}

func (c *Config) GetBaseURL(provider string) string {
	return c.Providers[provider].BaseURL
}

// SigningPassphrase reads the key passphrase from the environment.
func (c *Config) SigningPassphrase() string {
	return os.Getenv(EnvSigningPassphrase)
}
