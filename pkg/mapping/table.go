package mapping

import (
	"fmt"

	"github.com/odvcencio/rejar/pkg/descriptor"
)

// MemberKey identifies a member for rename lookup. Desc is empty for
// fields: field identity excludes the type under these resolution
// rules. Method descriptors in keys carry class names already
// translated into the table's target namespace.
type MemberKey struct {
	Owner string
	Name  string
	Desc  string
}

// Table is a directional view of a mapping set, immutable once built
// and safe for concurrent reads.
type Table struct {
	From string
	To   string

	Classes map[string]string
	Fields  map[MemberKey]string
	Methods map[MemberKey]string
}

// ClassName translates a class's internal name, passing unmapped names
// through unchanged.
func (t *Table) ClassName(name string) string {
	if renamed, ok := t.Classes[name]; ok {
		return renamed
	}
	return name
}

// Table materializes the from->to direction of the set. Owner columns
// are translated into the from namespace (the names a module being
// remapped actually references) and method descriptor keys into the to
// namespace.
func (s *Set) Table(from, to string) (*Table, error) {
	fi, err := s.namespaceIndex(from)
	if err != nil {
		return nil, fmt.Errorf("build table: %w", err)
	}
	ti, err := s.namespaceIndex(to)
	if err != nil {
		return nil, fmt.Errorf("build table: %w", err)
	}
	if fi == ti {
		return nil, fmt.Errorf("build table: identical namespaces %q", from)
	}

	// Class maps out of the primary namespace, needed to translate the
	// owner/descriptor columns of member rows.
	toFrom := make(map[string]string, len(s.classes))
	toTo := make(map[string]string, len(s.classes))
	t := &Table{
		From:    from,
		To:      to,
		Classes: make(map[string]string, len(s.classes)),
		Fields:  make(map[MemberKey]string, len(s.fields)),
		Methods: make(map[MemberKey]string, len(s.methods)),
	}
	for _, row := range s.classes {
		toFrom[row.names[0]] = row.names[fi]
		toTo[row.names[0]] = row.names[ti]
		t.Classes[row.names[fi]] = row.names[ti]
	}
	classTo := func(name string) string {
		if renamed, ok := toTo[name]; ok {
			return renamed
		}
		return name
	}
	classFrom := func(name string) string {
		if renamed, ok := toFrom[name]; ok {
			return renamed
		}
		return name
	}

	for _, row := range s.fields {
		key := MemberKey{Owner: classFrom(row.owner), Name: row.names[fi]}
		t.Fields[key] = row.names[ti]
	}
	for i, row := range s.methods {
		desc, err := descriptor.MapMethod(row.desc, classTo)
		if err != nil {
			return nil, fmt.Errorf("build table: method row %d (%s.%s): %w", i, row.owner, row.names[0], err)
		}
		key := MemberKey{Owner: classFrom(row.owner), Name: row.names[fi], Desc: desc}
		t.Methods[key] = row.names[ti]
	}
	return t, nil
}
