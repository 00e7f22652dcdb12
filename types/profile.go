package types

import "fmt"

// RunProfile is a named set of run options loaded from a profile file.
// A profile may inherit options from other profiles; its own values win.
type RunProfile struct {
	ID             string   `yaml:"id" toml:"id"`
	Description    string   `yaml:"description,omitempty" toml:"description"`
	Inherits       []string `yaml:"inherits,omitempty" toml:"inherits"`
	LabelFilter    string   `yaml:"label_filter,omitempty" toml:"label_filter"`
	Filters        []string `yaml:"filters,omitempty" toml:"filters"`
	Suites         []string `yaml:"suites,omitempty" toml:"suites"`
	IncludePending *bool    `yaml:"include_pending,omitempty" toml:"include_pending"`
	FailOnFocus    *bool    `yaml:"fail_on_focus,omitempty" toml:"fail_on_focus"`
	DefaultTimeout string   `yaml:"default_timeout,omitempty" toml:"default_timeout"`
	Concurrency    int      `yaml:"concurrency,omitempty" toml:"concurrency"`
	Format         string   `yaml:"format,omitempty" toml:"format"`
}

// ResolveInherited merges options from the profiles named in Inherits, recursively.
// Scalars are taken from a parent only when unset on the child; name filters and
// suite names are merged with the child's entries first.
func (p *RunProfile) ResolveInherited(profiles map[string]RunProfile) error {
	return p.resolveInheritedRecursive(profiles, map[string]bool{p.ID: true})
}

func (p *RunProfile) resolveInheritedRecursive(profiles map[string]RunProfile, visiting map[string]bool) error {
	for _, parentID := range p.Inherits {
		if visiting[parentID] {
			return fmt.Errorf("circular inheritance detected for profile %q", parentID)
		}
		parent, ok := profiles[parentID]
		if !ok {
			return fmt.Errorf("profile %q inherits from non-existent profile %q", p.ID, parentID)
		}

		visiting[parentID] = true
		if err := parent.resolveInheritedRecursive(profiles, visiting); err != nil {
			return fmt.Errorf("resolving inheritance for parent profile %q: %w", parentID, err)
		}
		visiting[parentID] = false

		p.mergeFrom(&parent)
	}
	return nil
}

func (p *RunProfile) mergeFrom(parent *RunProfile) {
	if p.LabelFilter == "" {
		p.LabelFilter = parent.LabelFilter
	}
	if p.IncludePending == nil {
		p.IncludePending = parent.IncludePending
	}
	if p.FailOnFocus == nil {
		p.FailOnFocus = parent.FailOnFocus
	}
	if p.DefaultTimeout == "" {
		p.DefaultTimeout = parent.DefaultTimeout
	}
	if p.Concurrency == 0 {
		p.Concurrency = parent.Concurrency
	}
	if p.Format == "" {
		p.Format = parent.Format
	}
	p.Filters = mergeUnique(p.Filters, parent.Filters)
	p.Suites = mergeUnique(p.Suites, parent.Suites)
}

func mergeUnique(own, inherited []string) []string {
	if len(own)+len(inherited) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(own))
	merged := make([]string, 0, len(own)+len(inherited))
	for _, list := range [][]string{own, inherited} {
		for _, v := range list {
			if !seen[v] {
				seen[v] = true
				merged = append(merged, v)
			}
		}
	}
	return merged
}
