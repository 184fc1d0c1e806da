package patcher

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"
)

// Report is the machine-readable record of one pass.
type Report struct {
	RunID      string           `json:"run_id"`
	Root       string           `json:"root"`
	DryRun     bool             `json:"dry_run"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Totals     Totals           `json:"totals"`
	Documents  []DocumentResult `json:"documents"`
}

type Totals struct {
	Scanned        int            `json:"scanned"`
	Written        int            `json:"written"`
	Untouched      int            `json:"untouched"`
	Errors         int            `json:"errors"`
	Applied        int            `json:"applied"`
	AlreadyApplied int            `json:"already_applied"`
	NoTarget       int            `json:"no_target"`
	NoPayload      int            `json:"no_payload"`
	Rules          map[string]int `json:"rules,omitempty"`
}

func NewReport(ctx RunContext, startedAt time.Time) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		Root:      ctx.Root,
		DryRun:    ctx.DryRun,
		StartedAt: startedAt.UTC(),
		Documents: []DocumentResult{},
	}
}

func (r *Report) Finish(result Result) {
	r.FinishedAt = time.Now().UTC()
	r.Totals = Totals{
		Scanned:        result.DocumentsScanned,
		Written:        result.Written,
		Untouched:      result.Untouched,
		Errors:         result.Errors,
		Applied:        result.Applied,
		AlreadyApplied: result.AlreadyApplied,
		NoTarget:       result.NoTarget,
		NoPayload:      result.NoPayload,
		Rules:          result.RuleApplied,
	}
}

// WriteFile stores the report as indented JSON.
func (r *Report) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding report: %w", err)
	}
	data = append(data, '\n')
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("error writing report: %w", err)
	}
	return nil
}
