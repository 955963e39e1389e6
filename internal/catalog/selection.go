package catalog

import "slices"

// Selection is a capped multi-select. Additions past Max are silently ignored.
type Selection struct {
	Max    int
	values []string
}

// NewSelection returns an empty selection capped at limit items.
func NewSelection(limit int, initial ...string) *Selection {
	s := &Selection{Max: limit}
	for _, v := range initial {
		s.Add(v)
	}
	return s
}

// Add appends value unless it is empty, already selected or the cap is reached.
// It reports whether the value was added.
func (s *Selection) Add(value string) bool {
	if value == "" || len(s.values) >= s.Max || slices.Contains(s.values, value) {
		return false
	}
	s.values = append(s.values, value)
	return true
}

// Remove drops value from the selection.
func (s *Selection) Remove(value string) {
	s.values = slices.DeleteFunc(s.values, func(v string) bool { return v == value })
}

// Full reports whether the cap has been reached.
func (s *Selection) Full() bool {
	return len(s.values) >= s.Max
}

// Values returns a copy of the selected values.
func (s *Selection) Values() []string {
	return slices.Clone(s.values)
}

// Cap trims values to at most limit distinct non-empty entries, keeping order.
func Cap(values []string, limit int) []string {
	return NewSelection(limit, values...).Values()
}
