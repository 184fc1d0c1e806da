package patch

import (
	"errors"
	"reflect"
	"testing"
)

func names(rules []Rule) []string {
	var out []string
	for _, r := range rules {
		out = append(out, r.Name)
	}
	return out
}

func TestOrder(t *testing.T) {
	tests := []struct {
		name     string
		rules    []Rule
		expected []string
	}{
		{
			name:     "declaration_order_kept",
			rules:    []Rule{{Name: "a"}, {Name: "b"}, {Name: "c"}},
			expected: []string{"a", "b", "c"},
		},
		{
			name:     "dependency_moved_first",
			rules:    []Rule{{Name: "page-title", After: []string{"title-prefix"}}, {Name: "breadcrumb"}, {Name: "title-prefix"}},
			expected: []string{"breadcrumb", "title-prefix", "page-title"},
		},
		{
			name: "chain",
			rules: []Rule{
				{Name: "c", After: []string{"b"}},
				{Name: "b", After: []string{"a"}},
				{Name: "a"},
			},
			expected: []string{"a", "b", "c"},
		},
		{
			name:     "empty",
			rules:    nil,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ordered, err := Order(tt.rules)
			if err != nil {
				t.Fatalf("Order() error: %v", err)
			}
			if got := names(ordered); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Order() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestOrderErrors(t *testing.T) {
	tests := []struct {
		name  string
		rules []Rule
		want  error
	}{
		{"cycle", []Rule{{Name: "a", After: []string{"b"}}, {Name: "b", After: []string{"a"}}}, ErrCycle},
		{"self_cycle", []Rule{{Name: "a", After: []string{"a"}}}, ErrCycle},
		{"unknown", []Rule{{Name: "a", After: []string{"missing"}}}, ErrUnknownDependency},
		{"duplicate", []Rule{{Name: "a"}, {Name: "a"}}, ErrDuplicateRule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Order(tt.rules); !errors.Is(err, tt.want) {
				t.Errorf("Order() error = %v, want %v", err, tt.want)
			}
		})
	}
}
