package patch

// Patch Package Structure:
//
//   - patch.go   - Rule, Document, Apply and Status
//   - locate.go  - Marker, Pattern, End and FirstOf locators
//   - element.go - Structural locator over an HTML token stream
//   - order.go   - Dependency ordering of rules

import (
	"fmt"
	"path/filepath"
)

type Status int

const (
	// Applied means the rule spliced new text into the document.
	Applied Status = iota
	// AlreadyApplied means the rule's effect was already present.
	AlreadyApplied
	// NoTarget means the locator found no region to patch.
	NoTarget
)

func (s Status) String() string {
	switch s {
	case Applied:
		return "applied"
	case AlreadyApplied:
		return "already-applied"
	case NoTarget:
		return "no-target"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Document is the in-memory view of one file during a patch pass.
type Document struct {
	Path    string
	Key     string
	Content string
}

// Target is a located region of a document. Start == End denotes an
// insertion point.
type Target struct {
	Start  int
	End    int
	Text   string
	Groups []string
}

type Locator interface {
	Locate(content string) (Target, bool)
}

// Rule is a named, idempotent transformation of a document.
type Rule struct {
	Name string
	// After lists rules that must run before this one.
	After []string
	// Only restricts the rule to files whose base name matches one of
	// these glob patterns. Empty means every file.
	Only    []string
	Locator Locator
	// Applied reports whether the rule's effect is already in content.
	Applied func(content string, payload any) bool
	// Resolve supplies the payload for a document. Returning false means
	// there is nothing to inject.
	Resolve func(doc Document) (any, bool)
	Render  func(payload any, target Target) (string, error)
	// Repeat re-applies the rule until no target remains.
	Repeat bool
}

// AppliesTo reports whether the rule should be evaluated for path.
func (r Rule) AppliesTo(path string) bool {
	if len(r.Only) == 0 {
		return true
	}
	base := filepath.Base(path)
	for _, pattern := range r.Only {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

type Result struct {
	Content string
	Changed bool
	Status  Status
	// Count is the number of splices made; above one only for Repeat rules.
	Count int
}

// Apply runs rule once against content.
func Apply(content string, rule Rule, payload any) (Result, error) {
	unchanged := func(s Status) (Result, error) {
		return Result{Content: content, Status: s}, nil
	}

	if rule.Applied != nil && rule.Applied(content, payload) {
		return unchanged(AlreadyApplied)
	}

	target, ok := rule.Locator.Locate(content)
	if !ok {
		return unchanged(NoTarget)
	}

	replacement, err := rule.Render(payload, target)
	if err != nil {
		return Result{Content: content, Status: NoTarget}, fmt.Errorf("rendering %s: %w", rule.Name, err)
	}

	out := content[:target.Start] + replacement + content[target.End:]
	if out == content {
		return unchanged(AlreadyApplied)
	}
	return Result{Content: out, Changed: true, Status: Applied, Count: 1}, nil
}

// MaxRepeat bounds the splices a Repeat rule may make in one document.
const MaxRepeat = 1000

// ApplyRule runs rule against content, repeating while it keeps changing the
// document if rule.Repeat is set.
func ApplyRule(content string, rule Rule, payload any) (Result, error) {
	res, err := Apply(content, rule, payload)
	if err != nil || !rule.Repeat || !res.Changed {
		return res, err
	}

	for res.Count < MaxRepeat {
		next, err := Apply(res.Content, rule, payload)
		if err != nil {
			return res, err
		}
		if !next.Changed {
			return res, nil
		}
		res.Content = next.Content
		res.Count++
	}
	return res, fmt.Errorf("%s: gave up after %d repeats", rule.Name, MaxRepeat)
}
