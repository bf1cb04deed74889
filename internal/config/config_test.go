package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/schaermu/cmksync/internal/classify"
	"github.com/schaermu/cmksync/internal/destmap"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
omd_root: /opt/omd/sites
default_site: heute
rules:
  allow:
    - tests/gui
  block:
    - docs
  destinations:
    - prefix: agents
      dest: share/check_mk/agents
      mode: strip-prefix
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.OMDRoot != "/opt/omd/sites" {
		t.Errorf("OMDRoot = %q, want %q", cfg.OMDRoot, "/opt/omd/sites")
	}
	if cfg.DefaultSite != "heute" {
		t.Errorf("DefaultSite = %q, want %q", cfg.DefaultSite, "heute")
	}
	if cfg.SiteFile != ".site" {
		t.Errorf("SiteFile default = %q, want %q", cfg.SiteFile, ".site")
	}
	if len(cfg.Rules.Destinations) != 1 || cfg.Rules.Destinations[0].Mode != "strip-prefix" {
		t.Errorf("Destinations = %v", cfg.Rules.Destinations)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.OMDRoot != destmap.DefaultRoot {
		t.Errorf("OMDRoot = %q, want %q", cfg.OMDRoot, destmap.DefaultRoot)
	}
}

func TestLoad_DestinationModeDefault(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
rules:
  destinations:
    - prefix: agents
      dest: share/agents
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := cfg.Rules.Destinations[0].Mode; got != string(destmap.ModeFullPath) {
		t.Errorf("Mode = %q, want %q", got, destmap.ModeFullPath)
	}
}

func TestLoad_ExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("TEST_OMD_ROOT", "/omd/sites")

	cfg, err := Load(writeConfig(t, "omd_root: ${TEST_OMD_ROOT}\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.OMDRoot != "/omd/sites" {
		t.Errorf("OMDRoot = %q, want %q", cfg.OMDRoot, "/omd/sites")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestLoadIfPresent_MissingFile(t *testing.T) {
	cfg, err := LoadIfPresent(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadIfPresent failed: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("expected default config, got %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{
			name:    "relative omd_root",
			mutate:  func(c *Config) { c.OMDRoot = "omd/sites" },
			wantErr: true,
		},
		{
			name:    "empty allow entry",
			mutate:  func(c *Config) { c.Rules.Allow = []string{""} },
			wantErr: true,
		},
		{
			name:    "absolute block prefix",
			mutate:  func(c *Config) { c.Rules.Block = []string{"/etc"} },
			wantErr: true,
		},
		{
			name: "destination without prefix",
			mutate: func(c *Config) {
				c.Rules.Destinations = []DestinationRule{{Dest: "share/x", Mode: "full-path"}}
			},
			wantErr: true,
		},
		{
			name: "destination without dest",
			mutate: func(c *Config) {
				c.Rules.Destinations = []DestinationRule{{Prefix: "agents", Mode: "full-path"}}
			},
			wantErr: true,
		},
		{
			name: "destination with invalid mode",
			mutate: func(c *Config) {
				c.Rules.Destinations = []DestinationRule{{Prefix: "agents", Dest: "share/x", Mode: "copy"}}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClassifierRules_Ordering(t *testing.T) {
	cfg := Default()
	cfg.Rules.Allow = []string{"tests/gui"}
	cfg.Rules.Block = []string{"docs"}

	rules := cfg.ClassifierRules()

	// Configured allow first, configured block last.
	if rules[0].Prefix != "tests/gui" || rules[0].Disposition != classify.Allow {
		t.Errorf("first rule = %+v, want configured allow", rules[0])
	}
	last := rules[len(rules)-1]
	if last.Prefix != "docs" || last.Disposition != classify.Block {
		t.Errorf("last rule = %+v, want configured block", last)
	}

	// Every allow entry must come before every block entry.
	seenBlock := false
	for _, r := range rules {
		if r.Disposition == classify.Block {
			seenBlock = true
		} else if seenBlock {
			t.Fatalf("allow rule %q listed after a block rule", r.Prefix)
		}
	}
}

func TestClassifierRules_ConfiguredAllowWins(t *testing.T) {
	cfg := Default()
	cfg.Rules.Allow = []string{"tests/gui"}

	res := classify.New(cfg.ClassifierRules()).Classify([]string{"tests/gui/x.py", "tests/unit/y.py"})

	if len(res.Eligible) != 1 || res.Eligible[0] != "tests/gui/x.py" {
		t.Errorf("eligible = %v, want [tests/gui/x.py]", res.Eligible)
	}
}

func TestDestinationRules_ConfiguredFirst(t *testing.T) {
	cfg := Default()
	cfg.Rules.Destinations = []DestinationRule{
		{Prefix: "agents", Dest: "share/check_mk/agents", Mode: "strip-prefix"},
	}

	rules := cfg.DestinationRules()

	if rules[0].Prefix != "agents" {
		t.Errorf("first rule = %+v, want configured one", rules[0])
	}
	if !reflect.DeepEqual(rules[1:], destmap.DefaultRules()) {
		t.Errorf("built-in rules must follow the configured ones, got %v", rules[1:])
	}
}

func TestDestinationRules_Defaults(t *testing.T) {
	if got := Default().DestinationRules(); !reflect.DeepEqual(got, destmap.DefaultRules()) {
		t.Errorf("DestinationRules() = %v, want built-in table", got)
	}
}

func TestDefaultSiteName(t *testing.T) {
	t.Run("configured site wins", func(t *testing.T) {
		cfg := Default()
		cfg.DefaultSite = "heute"
		cfg.SiteFile = filepath.Join(t.TempDir(), ".site")

		if got := cfg.DefaultSiteName(); got != "heute" {
			t.Errorf("DefaultSiteName() = %q, want %q", got, "heute")
		}
	})

	t.Run("site file fallback", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".site")
		if err := os.WriteFile(path, []byte("stable\n"), 0o644); err != nil {
			t.Fatalf("failed to write site file: %v", err)
		}

		cfg := Default()
		cfg.SiteFile = path

		if got := cfg.DefaultSiteName(); got != "stable" {
			t.Errorf("DefaultSiteName() = %q, want %q", got, "stable")
		}
	})

	t.Run("missing site file", func(t *testing.T) {
		cfg := Default()
		cfg.SiteFile = filepath.Join(t.TempDir(), ".site")

		if got := cfg.DefaultSiteName(); got != "" {
			t.Errorf("DefaultSiteName() = %q, want empty", got)
		}
	})
}
