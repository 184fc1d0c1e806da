package patcher

import (
	"fmt"
	"sort"
	"time"

	"github.com/fatih/color"

	"castlepatch/patch"
)

type RunContext struct {
	Root     string
	Patterns []string
	DryRun   bool
}

// State is the terminal state of one document in a pass.
type State string

const (
	Written   State = "written"
	Untouched State = "untouched"
	Failed    State = "failed"
)

type RuleOutcome struct {
	Rule   string `json:"rule"`
	Status string `json:"status"`
	Count  int    `json:"count,omitempty"`
}

type DocumentResult struct {
	Path  string        `json:"path"`
	State State         `json:"state"`
	Rules []RuleOutcome `json:"rules,omitempty"`
	Error string        `json:"error,omitempty"`
}

type Result struct {
	DocumentsScanned int
	Written          int
	Untouched        int
	Errors           int
	Applied          int
	AlreadyApplied   int
	NoTarget         int
	NoPayload        int
	RuleApplied      map[string]int
	startTime        time.Time
}

func (r Result) Add(other Result) Result {
	sum := Result{
		DocumentsScanned: r.DocumentsScanned + other.DocumentsScanned,
		Written:          r.Written + other.Written,
		Untouched:        r.Untouched + other.Untouched,
		Errors:           r.Errors + other.Errors,
		Applied:          r.Applied + other.Applied,
		AlreadyApplied:   r.AlreadyApplied + other.AlreadyApplied,
		NoTarget:         r.NoTarget + other.NoTarget,
		NoPayload:        r.NoPayload + other.NoPayload,
		startTime:        r.startTime,
	}
	if len(r.RuleApplied)+len(other.RuleApplied) > 0 {
		sum.RuleApplied = make(map[string]int)
		for name, n := range r.RuleApplied {
			sum.RuleApplied[name] += n
		}
		for name, n := range other.RuleApplied {
			sum.RuleApplied[name] += n
		}
	}
	return sum
}

func (r *Result) SetStartTime(t time.Time) {
	r.startTime = t
}

// count records one rule outcome.
func (r *Result) count(rule string, st patch.Status, splices int) {
	switch st {
	case patch.Applied:
		r.Applied++
		if r.RuleApplied == nil {
			r.RuleApplied = make(map[string]int)
		}
		r.RuleApplied[rule] += splices
	case patch.AlreadyApplied:
		r.AlreadyApplied++
	case patch.NoTarget:
		r.NoTarget++
	}
}

func (r Result) PrintSummary(dryRun bool) {
	duration := time.Since(r.startTime)

	pastelMagenta := color.RGB(255, 182, 193).SprintFunc()
	pastelBlue := color.RGB(173, 216, 230).SprintFunc()
	pastelGreen := color.RGB(152, 251, 152).SprintFunc()
	pastelRed := color.RGB(255, 160, 160).SprintFunc()
	pastelYellow := color.RGB(255, 255, 224).SprintFunc()

	title := "Patching Complete!"
	if dryRun {
		title = "Dry Run Complete!"
	}
	fmt.Printf("\n✨  %s  ✨\n\n", pastelMagenta(title))
	fmt.Printf("Documents scanned:    %s\n", pastelBlue(r.DocumentsScanned))
	if dryRun {
		fmt.Printf("Would be written:     %s\n", pastelGreen(r.Written))
	} else {
		fmt.Printf("Documents written:    %s\n", pastelGreen(r.Written))
	}
	fmt.Printf("Documents untouched:  %s\n", pastelBlue(r.Untouched))
	fmt.Printf("Patches applied:      %s\n", pastelGreen(r.Applied))
	fmt.Printf("Already applied:      %s\n", pastelBlue(r.AlreadyApplied))
	fmt.Printf("No target:            %s\n", pastelYellow(r.NoTarget))
	fmt.Printf("No catalog match:     %s\n", pastelBlue(r.NoPayload))

	if r.Errors > 0 {
		fmt.Printf("Errors:               %s\n", pastelRed(r.Errors))
	} else {
		fmt.Printf("Errors:               %s\n", pastelGreen(0))
	}

	fmt.Printf("Duration:             %s\n", pastelYellow(duration.Round(time.Millisecond)))

	if len(r.RuleApplied) > 0 {
		type ruleCount struct {
			name  string
			count int
		}
		var rules []ruleCount
		for name, n := range r.RuleApplied {
			rules = append(rules, ruleCount{name, n})
		}
		sort.Slice(rules, func(i, j int) bool {
			if rules[i].count != rules[j].count {
				return rules[i].count > rules[j].count
			}
			return rules[i].name < rules[j].name
		})

		pastelRuleColors := []*color.Color{
			color.RGB(255, 182, 193),
			color.RGB(221, 160, 221),
			color.RGB(173, 216, 230),
			color.RGB(152, 251, 152),
			color.RGB(255, 228, 181),
			color.RGB(255, 255, 224),
		}

		fmt.Printf("\nRules (%d):\n", len(rules))
		for i := 0; i < len(rules); i += 3 {
			for j := 0; j < 3 && i+j < len(rules); j++ {
				rc := rules[i+j]
				hash := 0
				for _, c := range rc.name {
					hash = (hash*31 + int(c)) % len(pastelRuleColors)
				}
				colorFunc := pastelRuleColors[hash].SprintFunc()
				fmt.Printf(" %s", colorFunc(fmt.Sprintf("%s (%d)", rc.name, rc.count)))
			}
			fmt.Println()
		}
	}
}
