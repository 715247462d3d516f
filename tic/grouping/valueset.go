package grouping

import "fmt"

// valueSet is an insertion-order preserving set of non-empty strings. The
// ordering guarantee keeps "first value wins" and "Multiple (N)" display
// semantics reproducible across runs.
type valueSet struct {
	order []string
	seen  map[string]struct{}
}

func newValueSet() *valueSet {
	return &valueSet{seen: make(map[string]struct{})}
}

func (s *valueSet) Add(v string) {
	if v == "" {
		return
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.order = append(s.order, v)
}

func (s *valueSet) Len() int { return len(s.order) }

func (s *valueSet) First() string {
	if len(s.order) == 0 {
		return ""
	}
	return s.order[0]
}

func (s *valueSet) Values() []string { return s.order }

// Display collapses the set for grid display: the sole value, "Multiple (N)"
// when the group spans more than one distinct value, or "-" when none.
func (s *valueSet) Display() string {
	switch len(s.order) {
	case 0:
		return "-"
	case 1:
		return s.order[0]
	default:
		return fmt.Sprintf("Multiple (%d)", len(s.order))
	}
}
