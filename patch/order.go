package patch

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownDependency = errors.New("unknown rule dependency")
	ErrCycle             = errors.New("rule dependency cycle")
	ErrDuplicateRule     = errors.New("duplicate rule name")
)

// Order sorts rules so that every rule runs after the rules named in its
// After list. Rules without ordering constraints keep declaration order.
func Order(rules []Rule) ([]Rule, error) {
	index := make(map[string]int, len(rules))
	for i, r := range rules {
		if _, dup := index[r.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRule, r.Name)
		}
		index[r.Name] = i
	}
	for _, r := range rules {
		for _, dep := range r.After {
			if _, ok := index[dep]; !ok {
				return nil, fmt.Errorf("%w: %s runs after %s", ErrUnknownDependency, r.Name, dep)
			}
		}
	}

	placed := make([]bool, len(rules))
	ordered := make([]Rule, 0, len(rules))
	for len(ordered) < len(rules) {
		progress := false
		for i, r := range rules {
			if placed[i] || !depsPlaced(r, index, placed) {
				continue
			}
			placed[i] = true
			ordered = append(ordered, r)
			progress = true
			break
		}
		if !progress {
			var stuck []string
			for i, r := range rules {
				if !placed[i] {
					stuck = append(stuck, r.Name)
				}
			}
			return nil, fmt.Errorf("%w: %s", ErrCycle, strings.Join(stuck, ", "))
		}
	}
	return ordered, nil
}

func depsPlaced(r Rule, index map[string]int, placed []bool) bool {
	for _, dep := range r.After {
		if !placed[index[dep]] {
			return false
		}
	}
	return true
}
