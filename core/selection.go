package core

import "fmt"

// CheckState is the derived "select all" checkbox state.
type CheckState int

const (
	Unchecked CheckState = iota
	Indeterminate
	Checked
)

func (c CheckState) String() string {
	switch c {
	case Checked:
		return "checked"
	case Indeterminate:
		return "indeterminate"
	default:
		return "unchecked"
	}
}

// Selection is the set of field names marked for removal. Members are always
// names of the snapshot it was created for.
type Selection struct {
	snap    *Snapshot
	members map[string]struct{}
}

// NewSelection returns an empty selection bound to snap.
func NewSelection(snap *Snapshot) *Selection {
	return &Selection{snap: snap, members: make(map[string]struct{})}
}

// Toggle adds name when included is true and removes it otherwise.
func (s *Selection) Toggle(name string, included bool) error {
	if !included {
		delete(s.members, name)
		return nil
	}
	if s.snap == nil || !s.snap.Has(name) {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	s.members[name] = struct{}{}
	return nil
}

// SelectAll marks every snapshot field.
func (s *Selection) SelectAll() {
	if s.snap == nil {
		return
	}
	for _, f := range s.snap.Fields {
		s.members[f.Name] = struct{}{}
	}
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.members = make(map[string]struct{})
}

// Contains reports whether name is selected.
func (s *Selection) Contains(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.members[name]
	return ok
}

// Len returns the number of selected names.
func (s *Selection) Len() int {
	if s == nil {
		return 0
	}
	return len(s.members)
}

// Names returns the selected names in snapshot order.
func (s *Selection) Names() []string {
	if s == nil || s.snap == nil {
		return nil
	}
	out := make([]string, 0, len(s.members))
	for _, f := range s.snap.Fields {
		if _, ok := s.members[f.Name]; ok {
			out = append(out, f.Name)
		}
	}
	return out
}

// State returns the derived select-all checkbox state.
func (s *Selection) State() CheckState {
	n := s.Len()
	total := 0
	if s != nil && s.snap != nil {
		total = s.snap.Len()
	}
	switch {
	case n == 0:
		return Unchecked
	case n == total:
		return Checked
	default:
		return Indeterminate
	}
}
