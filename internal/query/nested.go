package query

import (
	"github.com/gcbaptista/go-shard-query/mapping"
)

// NestedScope tracks the nested object a query is currently built under.
type NestedScope struct {
	levels []*mapping.ObjectMapper
}

// Current returns the innermost nested object, or nil at the top level.
func (s *NestedScope) Current() *mapping.ObjectMapper {
	if len(s.levels) == 0 {
		return nil
	}
	return s.levels[len(s.levels)-1]
}

// NextLevel enters obj and returns the previous innermost object.
func (s *NestedScope) NextLevel(obj *mapping.ObjectMapper) *mapping.ObjectMapper {
	previous := s.Current()
	s.levels = append(s.levels, obj)
	return previous
}

// PreviousLevel leaves the innermost object and returns it.
func (s *NestedScope) PreviousLevel() *mapping.ObjectMapper {
	current := s.Current()
	if current != nil {
		s.levels = s.levels[:len(s.levels)-1]
	}
	return current
}

// Depth returns how many nested objects are open.
func (s *NestedScope) Depth() int {
	return len(s.levels)
}
