package mapping

import (
	"fmt"

	"github.com/odvcencio/rejar/pkg/classfile"
	"github.com/odvcencio/rejar/pkg/descriptor"
)

// ClassBytes returns the raw class file bytes for an internal class
// name, or nil when the class cannot be found. Lookups are expected to
// be local (already-loaded archive contents) and synchronous.
type ClassBytes func(name string) []byte

// Resolver answers rename queries against one directional table,
// walking a class's superclass and interfaces for members the table
// keys under an ancestor. It keeps a read-through cache of parsed class
// headers and is not safe for concurrent use.
type Resolver struct {
	Table  *Table
	lookup ClassBytes

	// headers caches ancestor lookups; a nil value records a class
	// whose bytes could not be obtained or parsed, so the walk fails
	// closed exactly once per name.
	headers map[string]*classfile.Header
}

// NewResolver builds a resolver over a table and a class-bytes lookup.
// lookup may be nil, which disables the ancestor walk entirely.
func NewResolver(t *Table, lookup ClassBytes) *Resolver {
	return &Resolver{
		Table:   t,
		lookup:  lookup,
		headers: make(map[string]*classfile.Header),
	}
}

// Class translates a class's internal name; unmapped names pass through
// unchanged since not every referenced class participates in the
// namespace being translated.
func (r *Resolver) Class(name string) string {
	return r.Table.ClassName(name)
}

// MethodDesc rewrites the class names embedded in a method descriptor.
func (r *Resolver) MethodDesc(desc string) (string, error) {
	return descriptor.MapMethod(desc, r.Class)
}

// TypeDesc rewrites the class names embedded in a field/type descriptor.
func (r *Resolver) TypeDesc(desc string) (string, error) {
	return descriptor.MapType(desc, r.Class)
}

// Method resolves a method reference, returning the renamed method name
// and the rewritten descriptor. The lookup key uses the rewritten
// descriptor, since table keys carry target-namespace class names. On a
// direct miss the owner's ancestor chain is searched; a missing
// ancestor shortens the walk rather than failing.
func (r *Resolver) Method(owner, name, desc string) (string, string, error) {
	newDesc, err := r.MethodDesc(desc)
	if err != nil {
		return "", "", fmt.Errorf("resolve %s.%s: %w", owner, name, err)
	}
	key := MemberKey{Owner: owner, Name: name, Desc: newDesc}
	for _, ancestor := range r.ancestors(owner) {
		key.Owner = ancestor
		if renamed, ok := r.Table.Methods[key]; ok {
			return renamed, newDesc, nil
		}
	}
	return name, newDesc, nil
}

// Field resolves a field reference by owner and name, with the same
// ancestor-walk policy as Method. Field identity carries no descriptor.
func (r *Resolver) Field(owner, name string) string {
	key := MemberKey{Owner: owner, Name: name}
	for _, ancestor := range r.ancestors(owner) {
		key.Owner = ancestor
		if renamed, ok := r.Table.Fields[key]; ok {
			return renamed
		}
	}
	return name
}

// ancestors returns owner followed by its supertypes in breadth-first
// order, superclass before interfaces at each level. The walk stops
// along any branch whose class bytes cannot be obtained.
func (r *Resolver) ancestors(owner string) []string {
	chain := []string{owner}
	seen := map[string]bool{owner: true}
	for i := 0; i < len(chain); i++ {
		h := r.header(chain[i])
		if h == nil {
			continue
		}
		for _, next := range append([]string{h.Super}, h.Interfaces...) {
			if next != "" && !seen[next] {
				seen[next] = true
				chain = append(chain, next)
			}
		}
	}
	return chain
}

func (r *Resolver) header(name string) *classfile.Header {
	if h, ok := r.headers[name]; ok {
		return h
	}
	var h *classfile.Header
	if r.lookup != nil {
		if data := r.lookup(name); data != nil {
			if parsed, err := classfile.ParseHeader(data); err == nil {
				h = parsed
			}
		}
	}
	r.headers[name] = h
	return h
}
