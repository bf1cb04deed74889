package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/schaermu/cmksync/internal/classify"
	"github.com/schaermu/cmksync/internal/destmap"
)

// Config represents the complete cmksync configuration. Every field has a
// default, so the tool runs without a config file.
type Config struct {
	// OMDRoot is the directory the site runtime trees live under.
	OMDRoot string `yaml:"omd_root"`
	// DefaultSite preselects a site in the interactive site prompt.
	DefaultSite string `yaml:"default_site"`
	// SiteFile is a file whose content names the default site, checked
	// when DefaultSite is empty.
	SiteFile string `yaml:"site_file"`
	Rules    Rules  `yaml:"rules"`
}

// Rules extends the built-in classification and rewrite tables.
type Rules struct {
	// Allow and Block add prefixes to the classification table. Allow
	// entries take precedence over every block entry.
	Allow []string `yaml:"allow"`
	Block []string `yaml:"block"`
	// Destinations are rewrite rules consulted before the built-in ones.
	Destinations []DestinationRule `yaml:"destinations"`
}

// DestinationRule is one configured rewrite entry.
type DestinationRule struct {
	Prefix string `yaml:"prefix"`
	Dest   string `yaml:"dest"`
	Mode   string `yaml:"mode"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.expandEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadIfPresent loads path when it exists and falls back to the defaults
// when it does not. Unlike a daemon config, this CLI must work on an
// unconfigured workstation.
func LoadIfPresent(path string) (*Config, error) {
	if _, err := os.Stat(os.ExpandEnv(path)); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// expandEnv expands environment variables in all string fields.
func (c *Config) expandEnv() {
	c.OMDRoot = os.ExpandEnv(c.OMDRoot)
	c.DefaultSite = os.ExpandEnv(c.DefaultSite)
	c.SiteFile = os.ExpandEnv(c.SiteFile)
}

// applyDefaults fills in zero-value fields.
func (c *Config) applyDefaults() {
	if c.OMDRoot == "" {
		c.OMDRoot = destmap.DefaultRoot
	}
	if c.SiteFile == "" {
		c.SiteFile = ".site"
	}
	for i := range c.Rules.Destinations {
		if c.Rules.Destinations[i].Mode == "" {
			c.Rules.Destinations[i].Mode = string(destmap.ModeFullPath)
		}
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if !filepath.IsAbs(c.OMDRoot) {
		return fmt.Errorf("omd_root must be an absolute path: %s", c.OMDRoot)
	}
	for _, p := range append(append([]string{}, c.Rules.Allow...), c.Rules.Block...) {
		if p == "" {
			return fmt.Errorf("rules.allow and rules.block entries must not be empty")
		}
		if strings.HasPrefix(p, "/") {
			return fmt.Errorf("rule prefix must be repository-relative: %s", p)
		}
	}
	for _, d := range c.Rules.Destinations {
		if d.Prefix == "" {
			return fmt.Errorf("rules.destinations entries require a prefix")
		}
		if d.Dest == "" {
			return fmt.Errorf("rules.destinations entry for %s requires a dest", d.Prefix)
		}
		if !destmap.Mode(d.Mode).Valid() {
			return fmt.Errorf("invalid rewrite mode for %s: %s (must be full-path, strip-prefix, or basename)", d.Prefix, d.Mode)
		}
	}
	return nil
}

// ClassifierRules builds the classification table: configured and built-in
// allow entries first, then the block entries, so the allow list keeps its
// precedence.
func (c *Config) ClassifierRules() []classify.Rule {
	defaults := classify.DefaultRules()
	rules := make([]classify.Rule, 0, len(defaults)+len(c.Rules.Allow)+len(c.Rules.Block))
	for _, p := range c.Rules.Allow {
		rules = append(rules, classify.Rule{Prefix: p, Disposition: classify.Allow})
	}
	for _, r := range defaults {
		if r.Disposition == classify.Allow {
			rules = append(rules, r)
		}
	}
	for _, r := range defaults {
		if r.Disposition == classify.Block {
			rules = append(rules, r)
		}
	}
	for _, p := range c.Rules.Block {
		rules = append(rules, classify.Rule{Prefix: p, Disposition: classify.Block})
	}
	return rules
}

// DestinationRules builds the rewrite table with configured rules ahead of
// the built-in ones, so specific overrides win under first-match semantics.
func (c *Config) DestinationRules() []destmap.Rule {
	if len(c.Rules.Destinations) == 0 {
		return destmap.DefaultRules()
	}
	rules := make([]destmap.Rule, 0, len(c.Rules.Destinations)+3)
	for _, d := range c.Rules.Destinations {
		rules = append(rules, destmap.Rule{Prefix: d.Prefix, Dest: d.Dest, Mode: destmap.Mode(d.Mode)})
	}
	return append(rules, destmap.DefaultRules()...)
}

// DefaultSiteName resolves the preselected site: the configured name wins,
// otherwise the site file in the working directory is consulted.
func (c *Config) DefaultSiteName() string {
	if c.DefaultSite != "" {
		return c.DefaultSite
	}
	data, err := os.ReadFile(c.SiteFile)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// DefaultPath returns the expected config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".config", "cmksync", "config.yaml"), nil
}
