// Package roster drives participant selection for group chats: a filterable
// picker over the employee directory and the thread membership operations.
package roster

import (
	"strings"

	"github.com/averonhq/deskchat/internal/wire"
)

// Picker holds the directory entries shown in the add-participant dialog.
// Selection survives filter changes, so narrowing the query and widening it
// again does not lose checked entries.
type Picker struct {
	entries  []wire.Participant
	query    string
	selected map[string]bool
}

// NewPicker builds a picker over the given directory entries.
func NewPicker(entries []wire.Participant) *Picker {
	return &Picker{
		entries:  append([]wire.Participant(nil), entries...),
		selected: make(map[string]bool),
	}
}

// SetEntries replaces the directory, keeping selections that still exist.
func (p *Picker) SetEntries(entries []wire.Participant) {
	p.entries = append([]wire.Participant(nil), entries...)
	keep := make(map[string]bool, len(p.selected))
	for _, entry := range p.entries {
		if p.selected[entry.EmployeeCode] {
			keep[entry.EmployeeCode] = true
		}
	}
	p.selected = keep
}

// Filter sets the query applied by Visible. Matching is case-insensitive over
// name, employee code and role.
func (p *Picker) Filter(query string) {
	p.query = strings.ToLower(strings.TrimSpace(query))
}

// Visible returns the directory entries matching the current filter, in
// directory order.
func (p *Picker) Visible() []wire.Participant {
	if p.query == "" {
		return append([]wire.Participant(nil), p.entries...)
	}
	var out []wire.Participant
	for _, entry := range p.entries {
		if p.matches(entry) {
			out = append(out, entry)
		}
	}
	return out
}

func (p *Picker) matches(entry wire.Participant) bool {
	for _, field := range []string{entry.FullName, entry.EmployeeCode, entry.Role} {
		if strings.Contains(strings.ToLower(field), p.query) {
			return true
		}
	}
	return false
}

// Toggle flips the selection state of the given employee code. Codes not in
// the directory are ignored.
func (p *Picker) Toggle(employeeCode string) {
	for _, entry := range p.entries {
		if entry.EmployeeCode == employeeCode {
			if p.selected[employeeCode] {
				delete(p.selected, employeeCode)
			} else {
				p.selected[employeeCode] = true
			}
			return
		}
	}
}

// IsSelected reports whether the code is currently checked.
func (p *Picker) IsSelected(employeeCode string) bool {
	return p.selected[employeeCode]
}

// Selected returns the checked employee codes in directory order.
func (p *Picker) Selected() []string {
	var out []string
	for _, entry := range p.entries {
		if p.selected[entry.EmployeeCode] {
			out = append(out, entry.EmployeeCode)
		}
	}
	return out
}

// Clear drops all selections and the filter.
func (p *Picker) Clear() {
	p.selected = make(map[string]bool)
	p.query = ""
}
