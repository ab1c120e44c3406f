package handler

import (
	"fmt"
	"regexp"

	"github.com/leapstack-labs/leaptable/pkg/core"
)

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// UnboundPlaceholderError is returned when a template references a name
// with no binding.
type UnboundPlaceholderError struct {
	Name string
}

func (e *UnboundPlaceholderError) Error() string {
	return fmt.Sprintf("no value bound for placeholder ${%s}", e.Name)
}

// Placeholders returns the distinct placeholder names of template in order
// of first appearance.
func Placeholders(template string) []string {
	var names []string
	seen := map[string]bool{}
	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Render substitutes every bound ${name} with the textual form of its value.
// No quoting or escaping is applied; placeholders without a binding are left
// untouched.
func Render(template string, bindings []core.Binding) string {
	values := bindingIndex(bindings)
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := match[2 : len(match)-1]
		if v, ok := values[name]; ok {
			return core.ValueString(v)
		}
		return match
	})
}

// Compile rewrites each ${name} occurrence into the backend's native marker
// and returns the argument list in marker order. marker receives the 1-based
// position of the occurrence.
func Compile(template string, bindings []core.Binding, marker func(n int) string) (string, []any, error) {
	values := bindingIndex(bindings)
	var (
		args    []any
		unbound string
	)
	query := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := match[2 : len(match)-1]
		v, ok := values[name]
		if !ok {
			if unbound == "" {
				unbound = name
			}
			return match
		}
		args = append(args, v)
		return marker(len(args))
	})
	if unbound != "" {
		return "", nil, &UnboundPlaceholderError{Name: unbound}
	}
	return query, args, nil
}

func bindingIndex(bindings []core.Binding) map[string]any {
	m := make(map[string]any, len(bindings))
	for _, b := range bindings {
		m[b.Name] = b.Value
	}
	return m
}
