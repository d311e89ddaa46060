// Package mapping loads symbol mapping tables and resolves class and
// member renames between two naming namespaces, walking a class's
// ancestors for members declared on a supertype.
package mapping

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Set is a parsed multi-namespace mapping file. Rows store names per
// namespace; owner and descriptor columns are expressed in the first
// namespace, as the tiny v1 format defines them.
type Set struct {
	Namespaces []string

	classes []classRow
	fields  []memberRow
	methods []memberRow
}

type classRow struct {
	names []string
}

type memberRow struct {
	owner string
	desc  string
	names []string
}

// ParseTiny reads a tiny v1 mapping stream:
//
//	v1 <TAB> nsA <TAB> nsB [<TAB> ...]
//	CLASS  <TAB> nameA <TAB> nameB ...
//	FIELD  <TAB> owner <TAB> desc <TAB> nameA <TAB> nameB ...
//	METHOD <TAB> owner <TAB> desc <TAB> nameA <TAB> nameB ...
func ParseTiny(r io.Reader) (*Set, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read mappings: %w", err)
		}
		return nil, fmt.Errorf("read mappings: empty input")
	}
	header := strings.Split(sc.Text(), "\t")
	if len(header) < 3 || header[0] != "v1" {
		return nil, fmt.Errorf("read mappings: unsupported header %q", sc.Text())
	}
	s := &Set{Namespaces: header[1:]}
	n := len(s.Namespaces)

	lineNo := 1
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cols := strings.Split(line, "\t")
		switch cols[0] {
		case "CLASS":
			if len(cols) != 1+n {
				return nil, fmt.Errorf("read mappings: line %d: CLASS wants %d columns, got %d", lineNo, 1+n, len(cols))
			}
			s.classes = append(s.classes, classRow{names: cols[1:]})
		case "FIELD", "METHOD":
			if len(cols) != 3+n {
				return nil, fmt.Errorf("read mappings: line %d: %s wants %d columns, got %d", lineNo, cols[0], 3+n, len(cols))
			}
			row := memberRow{owner: cols[1], desc: cols[2], names: cols[3:]}
			if cols[0] == "FIELD" {
				s.fields = append(s.fields, row)
			} else {
				s.methods = append(s.methods, row)
			}
		default:
			return nil, fmt.Errorf("read mappings: line %d: unknown record %q", lineNo, cols[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read mappings: %w", err)
	}
	return s, nil
}

// Counts returns the number of class, field and method rows, for
// inspection output.
func (s *Set) Counts() (classes, fields, methods int) {
	return len(s.classes), len(s.fields), len(s.methods)
}

func (s *Set) namespaceIndex(ns string) (int, error) {
	for i, name := range s.Namespaces {
		if name == ns {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown namespace %q (have %s)", ns, strings.Join(s.Namespaces, ", "))
}
