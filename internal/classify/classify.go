package classify

import "strings"

// Disposition is the effect a matching rule has on a changed path.
type Disposition int

const (
	// Allow marks a path as eligible for syncing even if a later rule blocks it.
	Allow Disposition = iota
	// Block marks a path as ineligible.
	Block
)

// Rule is one (prefix, disposition) entry of the classification table.
// Rules are evaluated in order and the first matching rule wins, so allow
// entries must precede the block entries they override.
type Rule struct {
	Prefix      string
	Disposition Disposition
}

// GUIPrefix is the sub-tree whose changes require the interactive UI
// services to be restarted in addition to the monitoring core.
const GUIPrefix = "cmk/gui"

// DefaultRules returns the built-in classification table: everything is
// eligible except the block-listed trees, with the frontend package
// allow-listed back in.
func DefaultRules() []Rule {
	return []Rule{
		{Prefix: "packages/cmk-frontend", Disposition: Allow},
		{Prefix: ".werks", Disposition: Block},
		{Prefix: "bin", Disposition: Block},
		{Prefix: "packages", Disposition: Block},
		{Prefix: "tests", Disposition: Block},
	}
}

// Result is the stable partition of one changed-path list. Eligible and
// Ineligible are disjoint, cover the whole input, and preserve its order.
type Result struct {
	Eligible   []string
	Ineligible []string
}

// AffectsInteractiveUI reports whether any eligible path belongs to the
// interactive UI sub-tree. It is a read-only view over the partition, so it
// can never disagree with the Eligible list it derives from.
func (r Result) AffectsInteractiveUI() bool {
	for _, p := range r.Eligible {
		if HasPathPrefix(p, GUIPrefix) {
			return true
		}
	}
	return false
}

// Classifier partitions repository-relative paths using an ordered rule table.
type Classifier struct {
	rules []Rule
}

// New creates a classifier. A nil rule table selects DefaultRules.
func New(rules []Rule) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// Classify partitions paths into eligible and ineligible. Every rule is
// evaluated per path with no cross-path interaction; the function is total
// over any input, including the empty list.
func (c *Classifier) Classify(paths []string) Result {
	res := Result{
		Eligible:   make([]string, 0, len(paths)),
		Ineligible: make([]string, 0, len(paths)),
	}
	for _, p := range paths {
		if c.eligible(p) {
			res.Eligible = append(res.Eligible, p)
		} else {
			res.Ineligible = append(res.Ineligible, p)
		}
	}
	return res
}

// eligible returns the disposition of the first matching rule. Paths that
// match no rule are eligible.
func (c *Classifier) eligible(path string) bool {
	for _, r := range c.rules {
		if HasPathPrefix(path, r.Prefix) {
			return r.Disposition == Allow
		}
	}
	return true
}

// HasPathPrefix reports whether path is prefix itself or lies underneath it.
// Matching is segment-aware: "bin" matches "bin/tool" but not "binocular/x".
func HasPathPrefix(path, prefix string) bool {
	if prefix == "" {
		return false
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
