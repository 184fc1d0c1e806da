package patch

import (
	"regexp"
	"strings"
)

type Place int

const (
	Replace Place = iota
	Before
	After
)

// Marker locates an exact literal substring.
type Marker struct {
	Text  string
	Place Place
}

func (m Marker) Locate(content string) (Target, bool) {
	if m.Text == "" {
		return Target{}, false
	}
	i := strings.Index(content, m.Text)
	if i < 0 {
		return Target{}, false
	}
	switch m.Place {
	case Before:
		return Target{Start: i, End: i}, true
	case After:
		end := i + len(m.Text)
		return Target{Start: end, End: end}, true
	default:
		return Target{Start: i, End: i + len(m.Text), Text: m.Text}, true
	}
}

// Pattern locates the first match of Regexp. The target is the span of
// submatch Group, and Groups holds every submatch of the match.
type Pattern struct {
	Regexp *regexp.Regexp
	Group  int
}

func (p Pattern) Locate(content string) (Target, bool) {
	loc := p.Regexp.FindStringSubmatchIndex(content)
	if loc == nil || 2*p.Group+1 >= len(loc) || loc[2*p.Group] < 0 {
		return Target{}, false
	}
	groups := make([]string, len(loc)/2)
	for i := range groups {
		if loc[2*i] >= 0 {
			groups[i] = content[loc[2*i]:loc[2*i+1]]
		}
	}
	start, end := loc[2*p.Group], loc[2*p.Group+1]
	return Target{Start: start, End: end, Text: content[start:end], Groups: groups}, true
}

// End locates the end of the document.
type End struct{}

func (End) Locate(content string) (Target, bool) {
	return Target{Start: len(content), End: len(content)}, true
}

type firstOf []Locator

// FirstOf returns a locator that tries each locator in order.
func FirstOf(locators ...Locator) Locator {
	return firstOf(locators)
}

func (f firstOf) Locate(content string) (Target, bool) {
	for _, l := range f {
		if t, ok := l.Locate(content); ok {
			return t, true
		}
	}
	return Target{}, false
}

// Contains is an Applied predicate that looks for a literal marker.
func Contains(marker string) func(string, any) bool {
	return func(content string, _ any) bool {
		return strings.Contains(content, marker)
	}
}

// Static renders the same text regardless of payload or target.
func Static(text string) func(any, Target) (string, error) {
	return func(any, Target) (string, error) {
		return text, nil
	}
}
