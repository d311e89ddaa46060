package classfile

import (
	"fmt"
)

// Annotation is one annotation structure from a Runtime(In)Visible
// Annotations attribute.
type Annotation struct {
	Type  uint16 // Utf8 index of the annotation type descriptor
	Pairs []ElementPair
}

// ElementPair is one element_value_pair.
type ElementPair struct {
	Name  uint16 // Utf8 index of the element name
	Value ElementValue
}

// ElementValue is a tagged element_value union. Which fields are
// meaningful depends on Tag:
//
//	B C D F I J S Z s  -> Const (pool index of the constant)
//	e                  -> TypeName, ConstName (Utf8 indexes)
//	c                  -> Class (Utf8 index of a type descriptor)
//	@                  -> Nested
//	[                  -> Array
type ElementValue struct {
	Tag       byte
	Const     uint16
	TypeName  uint16
	ConstName uint16
	Class     uint16
	Nested    *Annotation
	Array     []ElementValue
}

// ParseAnnotations decodes the payload of a Runtime(In)Visible
// Annotations attribute.
func ParseAnnotations(data []byte) ([]Annotation, error) {
	r := &reader{data: data}
	count := int(r.u2())
	anns := make([]Annotation, 0, count)
	for i := 0; i < count && r.err == nil; i++ {
		anns = append(anns, parseAnnotation(r))
	}
	if r.err != nil {
		return nil, fmt.Errorf("parse annotations: %w", r.err)
	}
	if r.off != len(data) {
		return nil, fmt.Errorf("parse annotations: %d trailing bytes", len(data)-r.off)
	}
	return anns, nil
}

func parseAnnotation(r *reader) Annotation {
	a := Annotation{Type: r.u2()}
	count := int(r.u2())
	for i := 0; i < count && r.err == nil; i++ {
		a.Pairs = append(a.Pairs, ElementPair{
			Name:  r.u2(),
			Value: parseElementValue(r),
		})
	}
	return a
}

func parseElementValue(r *reader) ElementValue {
	v := ElementValue{Tag: r.u1()}
	switch v.Tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's':
		v.Const = r.u2()
	case 'e':
		v.TypeName = r.u2()
		v.ConstName = r.u2()
	case 'c':
		v.Class = r.u2()
	case '@':
		nested := parseAnnotation(r)
		v.Nested = &nested
	case '[':
		count := int(r.u2())
		for i := 0; i < count && r.err == nil; i++ {
			v.Array = append(v.Array, parseElementValue(r))
		}
	default:
		r.fail("unknown element_value tag %q", v.Tag)
	}
	return v
}

// MarshalAnnotations is the inverse of ParseAnnotations.
func MarshalAnnotations(anns []Annotation) []byte {
	w := &writer{}
	w.u2(uint16(len(anns)))
	for i := range anns {
		writeAnnotation(w, &anns[i])
	}
	return w.buf.Bytes()
}

func writeAnnotation(w *writer, a *Annotation) {
	w.u2(a.Type)
	w.u2(uint16(len(a.Pairs)))
	for i := range a.Pairs {
		w.u2(a.Pairs[i].Name)
		writeElementValue(w, &a.Pairs[i].Value)
	}
}

func writeElementValue(w *writer, v *ElementValue) {
	w.u1(v.Tag)
	switch v.Tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's':
		w.u2(v.Const)
	case 'e':
		w.u2(v.TypeName)
		w.u2(v.ConstName)
	case 'c':
		w.u2(v.Class)
	case '@':
		writeAnnotation(w, v.Nested)
	case '[':
		w.u2(uint16(len(v.Array)))
		for i := range v.Array {
			writeElementValue(w, &v.Array[i])
		}
	}
}

// BootstrapMethod is one entry of the BootstrapMethods attribute. Ref
// is a MethodHandle pool index; Args are arbitrary loadable constants.
type BootstrapMethod struct {
	Ref  uint16
	Args []uint16
}

// ParseBootstrapMethods decodes the payload of a BootstrapMethods
// attribute. The rewriter only reads it: the constants it points at are
// rewritten through the pool, which keeps these indices stable.
func ParseBootstrapMethods(data []byte) ([]BootstrapMethod, error) {
	r := &reader{data: data}
	count := int(r.u2())
	methods := make([]BootstrapMethod, 0, count)
	for i := 0; i < count && r.err == nil; i++ {
		bm := BootstrapMethod{Ref: r.u2()}
		argc := int(r.u2())
		for j := 0; j < argc && r.err == nil; j++ {
			bm.Args = append(bm.Args, r.u2())
		}
		methods = append(methods, bm)
	}
	if r.err != nil {
		return nil, fmt.Errorf("parse bootstrap methods: %w", r.err)
	}
	if r.off != len(data) {
		return nil, fmt.Errorf("parse bootstrap methods: %d trailing bytes", len(data)-r.off)
	}
	return methods, nil
}
