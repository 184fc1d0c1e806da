package patcher

import (
	"errors"
	"os"
	"path/filepath"
	"time"
)

func CreateTestPage(dir, filename, content string) error {
	path := filepath.Join(dir, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}

func CreateTestPageWithModTime(dir, filename, content string, modTime time.Time) error {
	if err := CreateTestPage(dir, filename, content); err != nil {
		return err
	}
	path := filepath.Join(dir, filename)
	return os.Chtimes(path, modTime, modTime)
}

func CreateTestRunContext(root string, patterns []string, dryRun bool) RunContext {
	return RunContext{
		Root:     root,
		Patterns: patterns,
		DryRun:   dryRun,
	}
}

// FailingStore wraps FileStore and fails reads or writes of the named base
// file names.
type FailingStore struct {
	FileStore
	FailRead  map[string]bool
	FailWrite map[string]bool
	Writes    []string
}

var ErrInjected = errors.New("injected failure")

func (s *FailingStore) ReadFile(path string) ([]byte, error) {
	if s.FailRead[filepath.Base(path)] {
		return nil, ErrInjected
	}
	return s.FileStore.ReadFile(path)
}

func (s *FailingStore) WriteFile(path string, data []byte) error {
	if s.FailWrite[filepath.Base(path)] {
		return ErrInjected
	}
	s.Writes = append(s.Writes, filepath.Base(path))
	return s.FileStore.WriteFile(path, data)
}
