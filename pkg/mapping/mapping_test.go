package mapping

import (
	"strings"
	"testing"

	"github.com/odvcencio/rejar/pkg/classfile"
)

const sampleTiny = "v1\tofficial\tnamed\n" +
	"CLASS\ta/Foo\tcom/example/Foo\n" +
	"CLASS\ta/Bar\tcom/example/Bar\n" +
	"CLASS\ta/Owner\tcom/example/Owner\n" +
	"FIELD\ta/Owner\tI\tfld\tcounter\n" +
	"METHOD\ta/Owner\t(La/Foo;)La/Bar;\tm\tconvert\n"

func parseSample(t *testing.T) *Set {
	t.Helper()
	set, err := ParseTiny(strings.NewReader(sampleTiny))
	if err != nil {
		t.Fatalf("ParseTiny: %v", err)
	}
	return set
}

func TestParseTiny(t *testing.T) {
	set := parseSample(t)
	if got, want := strings.Join(set.Namespaces, ","), "official,named"; got != want {
		t.Fatalf("Namespaces = %q, want %q", got, want)
	}
	classes, fields, methods := set.Counts()
	if classes != 3 || fields != 1 || methods != 1 {
		t.Fatalf("Counts = (%d, %d, %d), want (3, 1, 1)", classes, fields, methods)
	}
}

func TestParseTinyErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"bad-header", "v2\ta\tb\n"},
		{"single-namespace", "v1\tonly\n"},
		{"short-class", "v1\ta\tb\nCLASS\tx\n"},
		{"short-method", "v1\ta\tb\nMETHOD\towner\t()V\tx\n"},
		{"unknown-record", "v1\ta\tb\nWIDGET\tx\ty\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseTiny(strings.NewReader(tt.input)); err == nil {
				t.Fatal("expected parse error")
			}
		})
	}
}

func TestParseTinySkipsBlankAndComments(t *testing.T) {
	input := "v1\ta\tb\n\n# comment\nCLASS\tx\ty\n"
	set, err := ParseTiny(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseTiny: %v", err)
	}
	if classes, _, _ := set.Counts(); classes != 1 {
		t.Fatalf("classes = %d, want 1", classes)
	}
}

func TestTableMethodKeysUseTargetNamespaceDescriptors(t *testing.T) {
	set := parseSample(t)
	table, err := set.Table("official", "named")
	if err != nil {
		t.Fatalf("Table: %v", err)
	}

	key := MemberKey{Owner: "a/Owner", Name: "m", Desc: "(Lcom/example/Foo;)Lcom/example/Bar;"}
	if got := table.Methods[key]; got != "convert" {
		t.Fatalf("Methods[%+v] = %q, want convert", key, got)
	}
	if got := table.ClassName("a/Foo"); got != "com/example/Foo" {
		t.Fatalf("ClassName(a/Foo) = %q", got)
	}
	if got := table.ClassName("java/lang/String"); got != "java/lang/String" {
		t.Fatalf("unmapped class changed: %q", got)
	}
}

func TestTableReverseDirection(t *testing.T) {
	set := parseSample(t)
	table, err := set.Table("named", "official")
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	if got := table.ClassName("com/example/Foo"); got != "a/Foo" {
		t.Fatalf("ClassName = %q, want a/Foo", got)
	}
	// Owner key in the from namespace, descriptor key in the to namespace.
	key := MemberKey{Owner: "com/example/Owner", Name: "convert", Desc: "(La/Foo;)La/Bar;"}
	if got := table.Methods[key]; got != "m" {
		t.Fatalf("Methods[%+v] = %q, want m", key, got)
	}
	fkey := MemberKey{Owner: "com/example/Owner", Name: "counter"}
	if got := table.Fields[fkey]; got != "fld" {
		t.Fatalf("Fields[%+v] = %q, want fld", fkey, got)
	}
}

func TestTableUnknownNamespace(t *testing.T) {
	set := parseSample(t)
	if _, err := set.Table("official", "missing"); err == nil {
		t.Fatal("expected error for unknown namespace")
	}
	if _, err := set.Table("official", "official"); err == nil {
		t.Fatal("expected error for identical namespaces")
	}
}

// classBytes builds a minimal class file for ancestor-walk lookups.
func classBytes(t *testing.T, name, super string, ifaces ...string) []byte {
	t.Helper()
	p := classfile.NewPool()
	f := &classfile.File{Major: 52, Pool: p, Access: 0x0021}
	var err error
	if f.ThisClass, err = p.AddClass(name); err != nil {
		t.Fatalf("AddClass: %v", err)
	}
	if super != "" {
		if f.SuperClass, err = p.AddClass(super); err != nil {
			t.Fatalf("AddClass: %v", err)
		}
	}
	for _, iface := range ifaces {
		idx, err := p.AddClass(iface)
		if err != nil {
			t.Fatalf("AddClass: %v", err)
		}
		f.Interfaces = append(f.Interfaces, idx)
	}
	data, err := f.Write()
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	return data
}

func TestResolverAncestorFallback(t *testing.T) {
	table := &Table{
		From:    "official",
		To:      "named",
		Classes: map[string]string{},
		Fields:  map[MemberKey]string{},
		Methods: map[MemberKey]string{
			{Owner: "A", Name: "foo", Desc: "()V"}: "renamedFoo",
		},
	}
	classes := map[string][]byte{
		"B": classBytes(t, "B", "A"),
		"A": classBytes(t, "A", "java/lang/Object"),
	}
	r := NewResolver(table, func(name string) []byte { return classes[name] })

	name, desc, err := r.Method("B", "foo", "()V")
	if err != nil {
		t.Fatalf("Method: %v", err)
	}
	if name != "renamedFoo" || desc != "()V" {
		t.Fatalf("Method = (%q, %q), want (renamedFoo, ()V)", name, desc)
	}
}

func TestResolverWalksInterfaces(t *testing.T) {
	table := &Table{
		Classes: map[string]string{},
		Fields: map[MemberKey]string{
			{Owner: "Iface", Name: "CONST"}: "RENAMED",
		},
		Methods: map[MemberKey]string{},
	}
	classes := map[string][]byte{
		"Impl":  classBytes(t, "Impl", "java/lang/Object", "Iface"),
		"Iface": classBytes(t, "Iface", "java/lang/Object"),
	}
	r := NewResolver(table, func(name string) []byte { return classes[name] })

	if got := r.Field("Impl", "CONST"); got != "RENAMED" {
		t.Fatalf("Field = %q, want RENAMED", got)
	}
}

func TestResolverFailsClosedOnMissingAncestor(t *testing.T) {
	table := &Table{
		Classes: map[string]string{},
		Fields:  map[MemberKey]string{},
		Methods: map[MemberKey]string{
			{Owner: "A", Name: "foo", Desc: "()V"}: "renamedFoo",
		},
	}
	// B's bytes are unavailable, so the walk never reaches A.
	r := NewResolver(table, func(name string) []byte { return nil })

	name, _, err := r.Method("B", "foo", "()V")
	if err != nil {
		t.Fatalf("Method: %v", err)
	}
	if name != "foo" {
		t.Fatalf("Method = %q, want identity foo", name)
	}
}

func TestResolverLookupKeyUsesResolvedDescriptor(t *testing.T) {
	table := &Table{
		Classes: map[string]string{"old/Foo": "new/Foo"},
		Fields:  map[MemberKey]string{},
		Methods: map[MemberKey]string{
			// Keys carry target-namespace class names.
			{Owner: "old/Owner", Name: "m", Desc: "(Lnew/Foo;)V"}: "renamedM",
		},
	}
	r := NewResolver(table, nil)

	name, desc, err := r.Method("old/Owner", "m", "(Lold/Foo;)V")
	if err != nil {
		t.Fatalf("Method: %v", err)
	}
	if name != "renamedM" {
		t.Fatalf("Method name = %q, want renamedM", name)
	}
	if desc != "(Lnew/Foo;)V" {
		t.Fatalf("Method desc = %q, want (Lnew/Foo;)V", desc)
	}
}

func TestResolverMalformedDescriptorIsError(t *testing.T) {
	r := NewResolver(&Table{Classes: map[string]string{}, Fields: map[MemberKey]string{}, Methods: map[MemberKey]string{}}, nil)
	if _, _, err := r.Method("Owner", "m", "(Q)V"); err == nil {
		t.Fatal("expected descriptor error")
	}
}
