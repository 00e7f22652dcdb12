package types

import (
	"fmt"
	"strings"
	"time"
)

// PathSeparator joins scope and case names into a display path
const PathSeparator = " > "

// Location identifies the source position a node was declared at
type Location struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
}

func (l Location) IsZero() bool {
	return l.File == ""
}

func (l Location) String() string {
	if l.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// HookKind names one of the five lifecycle hooks a scope can register
type HookKind string

const (
	HookBeforeAll      HookKind = "before_all"
	HookBeforeEach     HookKind = "before_each"
	HookJustBeforeEach HookKind = "just_before_each"
	HookAfterEach      HookKind = "after_each"
	HookAfterAll       HookKind = "after_all"
)

// Hook is a single registered lifecycle action
type Hook struct {
	Kind     HookKind
	Fn       Action
	Location Location
}

// Hooks holds the lifecycle actions registered directly on one scope.
// Several hooks of the same kind run in registration order.
type Hooks struct {
	BeforeAll      []Hook
	BeforeEach     []Hook
	JustBeforeEach []Hook
	AfterEach      []Hook
	AfterAll       []Hook
}

// Add appends a hook to the list matching its kind
func (h *Hooks) Add(hook Hook) error {
	switch hook.Kind {
	case HookBeforeAll:
		h.BeforeAll = append(h.BeforeAll, hook)
	case HookBeforeEach:
		h.BeforeEach = append(h.BeforeEach, hook)
	case HookJustBeforeEach:
		h.JustBeforeEach = append(h.JustBeforeEach, hook)
	case HookAfterEach:
		h.AfterEach = append(h.AfterEach, hook)
	case HookAfterAll:
		h.AfterAll = append(h.AfterAll, hook)
	default:
		return fmt.Errorf("unknown hook kind %q", hook.Kind)
	}
	return nil
}

// NodeKind distinguishes the two kinds of scope children
type NodeKind string

const (
	NodeKindScope NodeKind = "scope"
	NodeKindCase  NodeKind = "case"
)

// Node is a child of a Scope: either a *Scope or a *Case
type Node interface {
	NodeName() string
	NodeKind() NodeKind
	Parent() *Scope
}

// Scope is a named grouping of cases and nested scopes.
type Scope struct {
	ID       int
	Name     string
	Labels   []string
	Focused  bool
	Pending  bool
	Hooks    Hooks
	Subject  SubjectProvider
	Location Location
	Children []Node

	parent *Scope
}

func (s *Scope) NodeName() string   { return s.Name }
func (s *Scope) NodeKind() NodeKind { return NodeKindScope }
func (s *Scope) Parent() *Scope     { return s.parent }

// AddScope appends a nested scope, preserving insertion order
func (s *Scope) AddScope(child *Scope) {
	child.parent = s
	s.Children = append(s.Children, child)
}

// AddCase appends a case, preserving insertion order
func (s *Scope) AddCase(c *Case) {
	c.scope = s
	s.Children = append(s.Children, c)
}

// Ancestry returns the chain of scopes from the suite root down to s
func (s *Scope) Ancestry() []*Scope {
	var chain []*Scope
	for cur := s; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// IsRoot reports whether s is a suite root
func (s *Scope) IsRoot() bool {
	return s.parent == nil
}

// Path returns the names of the non-root scopes from the top down to s
func (s *Scope) Path() []string {
	var names []string
	for _, sc := range s.Ancestry() {
		if sc.IsRoot() {
			continue
		}
		names = append(names, sc.Name)
	}
	return names
}

// Cases returns all cases under s in execution order
func (s *Scope) Cases() []*Case {
	var cases []*Case
	for _, child := range s.Children {
		switch n := child.(type) {
		case *Case:
			cases = append(cases, n)
		case *Scope:
			cases = append(cases, n.Cases()...)
		}
	}
	return cases
}

// Case is a single executable test: either a body or an ordered workflow of steps.
type Case struct {
	Name     string
	Body     Action
	Labels   []string
	Focused  bool
	Pending  bool
	Location Location

	// Retries is the number of extra attempts after a failure.
	Retries int
	// MustPassRepeatedly requires that many consecutive passes when > 0.
	MustPassRepeatedly int
	Timeout            time.Duration

	// Steps replaces Body for ordered workflows.
	Steps             []Step
	Ordered           bool
	ContinueOnFailure bool

	scope *Scope
}

func (c *Case) NodeName() string   { return c.Name }
func (c *Case) NodeKind() NodeKind { return NodeKindCase }
func (c *Case) Parent() *Scope     { return c.scope }

// Scope returns the owning scope
func (c *Case) Scope() *Scope {
	return c.scope
}

// Path returns the full path of scope names plus the case name
func (c *Case) Path() []string {
	var path []string
	if c.scope != nil {
		path = c.scope.Path()
	}
	return append(path, c.Name)
}

// FullPath returns the display form of Path
func (c *Case) FullPath() string {
	return JoinPath(c.Path())
}

// EffectiveLabels returns the union of the case's own labels and every ancestor's labels
func (c *Case) EffectiveLabels() []string {
	seen := make(map[string]bool)
	var labels []string
	add := func(ls []string) {
		for _, l := range ls {
			if !seen[l] {
				seen[l] = true
				labels = append(labels, l)
			}
		}
	}
	if c.scope != nil {
		for _, s := range c.scope.Ancestry() {
			add(s.Labels)
		}
	}
	add(c.Labels)
	return labels
}

// IsPending reports whether the case or any ancestor is pending
func (c *Case) IsPending() bool {
	if c.Pending {
		return true
	}
	for s := c.scope; s != nil; s = s.parent {
		if s.Pending {
			return true
		}
	}
	return false
}

// IsFocused reports whether the case or any ancestor is focused
func (c *Case) IsFocused() bool {
	if c.Focused {
		return true
	}
	for s := c.scope; s != nil; s = s.parent {
		if s.Focused {
			return true
		}
	}
	return false
}

// SubjectProvider returns the nearest ancestor's subject provider, or nil
func (c *Case) SubjectProvider() SubjectProvider {
	for s := c.scope; s != nil; s = s.parent {
		if s.Subject != nil {
			return s.Subject
		}
	}
	return nil
}

// Step is one named action of an ordered workflow
type Step struct {
	Name     string
	Fn       Action
	Location Location
}

// Suite is an independently built scope tree.
type Suite struct {
	Name     string
	Root     *Scope
	Location Location
}

// Cases returns every case of the suite in execution order
func (s *Suite) Cases() []*Case {
	if s.Root == nil {
		return nil
	}
	return s.Root.Cases()
}

// HasFocus reports whether any scope or case in the suite carries a focus marker
func (s *Suite) HasFocus() bool {
	if s.Root == nil {
		return false
	}
	return scopeHasFocus(s.Root)
}

func scopeHasFocus(s *Scope) bool {
	if s.Focused {
		return true
	}
	for _, child := range s.Children {
		switch n := child.(type) {
		case *Case:
			if n.Focused {
				return true
			}
		case *Scope:
			if scopeHasFocus(n) {
				return true
			}
		}
	}
	return false
}

// JoinPath renders a path for display, dropping anonymous elements
func JoinPath(path []string) string {
	parts := make([]string, 0, len(path))
	for _, p := range path {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, PathSeparator)
}
