package descriptor

import (
	"errors"
	"testing"
)

func renamer(m map[string]string) MapFunc {
	return func(name string) string {
		if renamed, ok := m[name]; ok {
			return renamed
		}
		return name
	}
}

func TestMapMethodRewritesEmbeddedClasses(t *testing.T) {
	f := renamer(map[string]string{
		"OldPkg/Foo": "NewPkg/Foo",
		"OldPkg/Bar": "NewPkg/Bar",
	})
	got, err := MapMethod("(LOldPkg/Foo;)LOldPkg/Bar;", f)
	if err != nil {
		t.Fatalf("MapMethod: %v", err)
	}
	if want := "(LNewPkg/Foo;)LNewPkg/Bar;"; got != want {
		t.Fatalf("MapMethod = %q, want %q", got, want)
	}
}

func TestMapMethodLeavesOtherSyntaxUntouched(t *testing.T) {
	f := renamer(map[string]string{"a/B": "x/Y"})
	tests := []struct {
		desc string
		want string
	}{
		{"()V", "()V"},
		{"(IJ[[D)Z", "(IJ[[D)Z"},
		{"([La/B;I)La/B;", "([Lx/Y;I)Lx/Y;"},
		{"(Ljava/lang/String;)V", "(Ljava/lang/String;)V"},
	}
	for _, tt := range tests {
		got, err := MapMethod(tt.desc, f)
		if err != nil {
			t.Fatalf("MapMethod(%q): %v", tt.desc, err)
		}
		if got != tt.want {
			t.Errorf("MapMethod(%q) = %q, want %q", tt.desc, got, tt.want)
		}
	}
}

func TestMapTypeVariants(t *testing.T) {
	f := renamer(map[string]string{"a/B": "x/Y"})
	tests := []struct {
		desc string
		want string
	}{
		{"I", "I"},
		{"[[J", "[[J"},
		{"La/B;", "Lx/Y;"},
		{"[La/B;", "[Lx/Y;"},
	}
	for _, tt := range tests {
		got, err := MapType(tt.desc, f)
		if err != nil {
			t.Fatalf("MapType(%q): %v", tt.desc, err)
		}
		if got != tt.want {
			t.Errorf("MapType(%q) = %q, want %q", tt.desc, got, tt.want)
		}
	}
}

func TestMapMalformedDescriptors(t *testing.T) {
	identity := func(s string) string { return s }
	methodCases := []string{"", "I", "(I", "()", "(Q)V", "(I)VV", "(L;)V", "(Lfoo)V"}
	for _, desc := range methodCases {
		if _, err := MapMethod(desc, identity); !errors.Is(err, ErrMalformed) {
			t.Errorf("MapMethod(%q) err = %v, want ErrMalformed", desc, err)
		}
	}
	typeCases := []string{"", "V", "II", "Lfoo", "[", "X"}
	for _, desc := range typeCases {
		if _, err := MapType(desc, identity); !errors.Is(err, ErrMalformed) {
			t.Errorf("MapType(%q) err = %v, want ErrMalformed", desc, err)
		}
	}
}

func TestMapSignature(t *testing.T) {
	f := renamer(map[string]string{
		"old/Base": "new/Base",
		"old/Foo":  "new/Foo",
	})
	tests := []struct {
		sig  string
		want string
	}{
		{"Lold/Base;", "Lnew/Base;"},
		{"Ljava/util/List<Lold/Foo;>;", "Ljava/util/List<Lnew/Foo;>;"},
		{"<T:Ljava/lang/Object;>Lold/Base<TT;>;", "<T:Ljava/lang/Object;>Lnew/Base<TT;>;"},
		{"(Lold/Foo;)TT;", "(Lnew/Foo;)TT;"},
	}
	for _, tt := range tests {
		if got := MapSignature(tt.sig, f); got != tt.want {
			t.Errorf("MapSignature(%q) = %q, want %q", tt.sig, got, tt.want)
		}
	}
}

func TestMapSignatureIdentityIsStable(t *testing.T) {
	sigs := []string{
		"Lold/Base;",
		"<K:Ljava/lang/Object;V:Ljava/lang/Object;>Ljava/util/Map<TK;TV;>;",
	}
	for _, sig := range sigs {
		if got := MapSignature(sig, func(s string) string { return s }); got != sig {
			t.Errorf("identity MapSignature(%q) = %q", sig, got)
		}
	}
}
