package destmap

import (
	"path/filepath"
	"strings"
)

// Mode controls how a matched source path is rewritten underneath the
// rule's destination directory.
type Mode string

const (
	// ModeFullPath appends the repository-relative path unchanged.
	ModeFullPath Mode = "full-path"
	// ModeStripPrefix appends the path relative to the matched prefix.
	ModeStripPrefix Mode = "strip-prefix"
	// ModeBasename appends only the file's base name, discarding its
	// directory structure under the matched prefix.
	ModeBasename Mode = "basename"
)

// Valid reports whether m is a known rewrite mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeFullPath, ModeStripPrefix, ModeBasename:
		return true
	}
	return false
}

// Rule is one entry of the ordered rewrite table. An empty Prefix matches
// every path, so the catch-all rule must come last. Dest is relative to the
// site directory.
type Rule struct {
	Prefix string
	Dest   string
	Mode   Mode
}

// DefaultRoot is the directory all site runtime trees live under.
const DefaultRoot = "/omd/sites"

// DefaultRules returns the built-in rewrite table. The table always ends in
// a catch-all rule, so every eligible path maps to a destination.
func DefaultRules() []Rule {
	return []Rule{
		{Prefix: "active_checks", Dest: "lib/nagios/plugins", Mode: ModeBasename},
		{Prefix: "packages/cmk-frontend/src", Dest: "share/check_mk/web/htdocs", Mode: ModeStripPrefix},
		{Prefix: "", Dest: "lib/python3", Mode: ModeFullPath},
	}
}

// Mapper computes the absolute destination path inside one site's runtime
// tree for an eligible repository-relative path. It never consults the
// filesystem.
type Mapper struct {
	root  string
	site  string
	rules []Rule
}

// New creates a mapper for the given site. An empty root selects
// DefaultRoot; a nil rule table selects DefaultRules.
func New(root, site string, rules []Rule) *Mapper {
	if root == "" {
		root = DefaultRoot
	}
	if rules == nil {
		rules = DefaultRules()
	}
	return &Mapper{root: root, site: site, rules: rules}
}

// Map returns the destination for path according to the first matching
// rule. It is total: the catch-all default applies when no earlier rule
// matches.
func (m *Mapper) Map(path string) string {
	for _, r := range m.rules {
		if r.Prefix != "" && !hasPathPrefix(path, r.Prefix) {
			continue
		}
		dir := filepath.Join(m.root, m.site, r.Dest)
		switch r.Mode {
		case ModeBasename:
			return filepath.Join(dir, filepath.Base(path))
		case ModeStripPrefix:
			return filepath.Join(dir, strings.TrimPrefix(path, r.Prefix+"/"))
		default:
			return filepath.Join(dir, path)
		}
	}
	return filepath.Join(m.root, m.site, "lib/python3", path)
}

// hasPathPrefix matches on path-segment boundaries, like the classifier
// does, so "active_checks" does not match "active_checksums/foo".
func hasPathPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
