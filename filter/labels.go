package filter

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ethereum-optimism/infra/op-spec/types"
)

const (
	orSeparator  = ","
	andSeparator = "+"
	negation     = "!"
)

type labelTerm struct {
	label   string
	negated bool
}

func (t labelTerm) match(labels map[string]bool) bool {
	return labels[t.label] != t.negated
}

func (t labelTerm) String() string {
	if t.negated {
		return negation + t.label
	}
	return t.label
}

// LabelFilter is a parsed label-filter expression: a disjunction of conjunctions.
// "+" binds tighter than ",", so "a+b,c" selects (a AND b) OR c.
type LabelFilter struct {
	groups [][]labelTerm
}

// ParseLabelFilter parses an expression. An empty or blank expression yields a nil
// filter, which matches everything.
func ParseLabelFilter(expr string) (*LabelFilter, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}

	f := &LabelFilter{}
	for _, rawGroup := range strings.Split(expr, orSeparator) {
		var group []labelTerm
		for _, rawTerm := range strings.Split(rawGroup, andSeparator) {
			term, err := parseTerm(rawTerm)
			if err != nil {
				return nil, types.NewConfigError(fmt.Sprintf("malformed label filter %q: %v", expr, err))
			}
			group = append(group, term)
		}
		f.groups = append(f.groups, group)
	}
	return f, nil
}

func parseTerm(raw string) (labelTerm, error) {
	token := strings.TrimSpace(raw)
	term := labelTerm{}
	if strings.HasPrefix(token, negation) {
		term.negated = true
		token = strings.TrimSpace(strings.TrimPrefix(token, negation))
	}
	if token == "" {
		return term, fmt.Errorf("empty label in %q", raw)
	}
	if strings.ContainsAny(token, negation) {
		return term, fmt.Errorf("unexpected %q in label %q", negation, token)
	}
	if strings.IndexFunc(token, unicode.IsSpace) >= 0 {
		return term, fmt.Errorf("label %q contains whitespace", token)
	}
	term.label = token
	return term, nil
}

// Match evaluates the filter against a case's effective label set
func (f *LabelFilter) Match(labels []string) bool {
	if f == nil {
		return true
	}
	set := make(map[string]bool, len(labels))
	for _, l := range labels {
		set[l] = true
	}
	for _, group := range f.groups {
		matched := true
		for _, term := range group {
			if !term.match(set) {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

// String renders the filter in canonical form
func (f *LabelFilter) String() string {
	if f == nil {
		return ""
	}
	groups := make([]string, len(f.groups))
	for i, group := range f.groups {
		terms := make([]string, len(group))
		for j, term := range group {
			terms[j] = term.String()
		}
		groups[i] = strings.Join(terms, andSeparator)
	}
	return strings.Join(groups, orSeparator)
}
