package patcher

// Patcher Package Structure:
//
//   - patcher.go - Patcher, the per-document loop and the file store
//   - types.go   - RunContext, Result counters and the printed summary
//   - report.go  - Machine-readable JSON run report
//
// Documents are processed one at a time in enumeration order, and every
// rule for a document runs over the same in-memory buffer.

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"

	"castlepatch/corpus"
	"castlepatch/match"
	"castlepatch/patch"
)

// Store reads and writes documents.
type Store interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
}

// FileStore writes through a temporary file and rename, so a crash leaves
// either the old or the new document in place.
type FileStore struct{}

func (FileStore) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (FileStore) WriteFile(path string, data []byte) error {
	return atomic.WriteFile(path, bytes.NewReader(data))
}

type Patcher struct {
	ctx   RunContext
	rules []patch.Rule
	store Store
}

func New(ctx RunContext) *Patcher {
	return &Patcher{ctx: ctx, store: FileStore{}}
}

func (p *Patcher) WithRules(rules ...patch.Rule) *Patcher {
	p.rules = append(p.rules, rules...)
	return p
}

func (p *Patcher) WithStore(s Store) *Patcher {
	p.store = s
	return p
}

// Run makes one pass over the corpus. Per-document failures are counted and
// recorded in the report; the returned error is reserved for setup failures
// and cancellation.
func (p *Patcher) Run(ctx context.Context) (Result, *Report, error) {
	startTime := time.Now()
	result := Result{}
	result.SetStartTime(startTime)
	report := NewReport(p.ctx, startTime)

	rules, err := patch.Order(p.rules)
	if err != nil {
		return result, report, fmt.Errorf("error ordering rules: %w", err)
	}

	for path := range corpus.Enumerate(p.ctx.Root, p.ctx.Patterns) {
		if err := ctx.Err(); err != nil {
			slog.Info("Patch run cancelled", "after", result.DocumentsScanned)
			report.Finish(result)
			return result, report, err
		}

		doc, docResult := p.processDocument(path, rules)
		result = result.Add(docResult)
		report.Documents = append(report.Documents, doc)
	}

	slog.Info("Patch run finished", "scanned", result.DocumentsScanned, "written", result.Written, "errors", result.Errors)
	report.Finish(result)
	return result, report, nil
}

func (p *Patcher) processDocument(path string, rules []patch.Rule) (DocumentResult, Result) {
	result := Result{DocumentsScanned: 1}
	doc := DocumentResult{Path: p.relPath(path)}

	fail := func(err error) (DocumentResult, Result) {
		slog.Error("Error patching document", "path", doc.Path, "error", err)
		result.Errors++
		doc.State = Failed
		doc.Error = err.Error()
		return doc, result
	}

	data, err := p.store.ReadFile(path)
	if err != nil {
		return fail(fmt.Errorf("error reading file: %w", err))
	}

	original := string(data)
	content := original
	key := match.Normalize(filepath.Base(path))

	for _, rule := range rules {
		if !rule.AppliesTo(path) {
			continue
		}

		var payload any
		if rule.Resolve != nil {
			v, ok := rule.Resolve(patch.Document{Path: path, Key: key, Content: content})
			if !ok {
				result.NoPayload++
				doc.Rules = append(doc.Rules, RuleOutcome{Rule: rule.Name, Status: "no-payload"})
				slog.Debug("No catalog match", "path", doc.Path, "rule", rule.Name)
				continue
			}
			payload = v
		}

		res, err := patch.ApplyRule(content, rule, payload)
		if err != nil {
			return fail(err)
		}

		switch res.Status {
		case patch.NoTarget:
			slog.Warn("Target region not found", "path", doc.Path, "rule", rule.Name)
		case patch.AlreadyApplied:
			slog.Debug("Already applied", "path", doc.Path, "rule", rule.Name)
		case patch.Applied:
			slog.Debug("Applied rule", "path", doc.Path, "rule", rule.Name, "count", res.Count)
		}

		result.count(rule.Name, res.Status, res.Count)
		doc.Rules = append(doc.Rules, RuleOutcome{Rule: rule.Name, Status: res.Status.String(), Count: res.Count})
		content = res.Content
	}

	if content == original {
		result.Untouched++
		doc.State = Untouched
		return doc, result
	}

	if p.ctx.DryRun {
		slog.Info("Would write document", "path", doc.Path)
	} else {
		if err := p.store.WriteFile(path, []byte(content)); err != nil {
			return fail(fmt.Errorf("error writing file: %w", err))
		}
		slog.Info("Wrote document", "path", doc.Path)
	}
	result.Written++
	doc.State = Written
	return doc, result
}

func (p *Patcher) relPath(path string) string {
	root, err := filepath.Abs(p.ctx.Root)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
