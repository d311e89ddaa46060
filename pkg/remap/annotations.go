package remap

import (
	"fmt"
	"strings"

	"github.com/odvcencio/rejar/pkg/classfile"
)

// rewriteAllAnnotations processes the runtime annotation attributes of
// the class and every member. Ordinary annotations get plain class-name
// substitution on their type descriptors; when the class carries the
// framework marker, string values additionally route through the target
// grammar.
func (rw *rewriter) rewriteAllAnnotations() error {
	if err := rw.rewriteAnnotationAttrs(rw.f.Attrs); err != nil {
		return err
	}
	for i := range rw.f.Fields {
		if err := rw.rewriteAnnotationAttrs(rw.f.Fields[i].Attrs); err != nil {
			return err
		}
	}
	for i := range rw.f.Methods {
		if err := rw.rewriteAnnotationAttrs(rw.f.Methods[i].Attrs); err != nil {
			return err
		}
	}
	return nil
}

func (rw *rewriter) rewriteAnnotationAttrs(attrs []classfile.Attribute) error {
	for _, attrName := range []string{classfile.AttrRuntimeVisibleAnnotations, classfile.AttrRuntimeInvisibleAnnotations} {
		attr := rw.f.AttrNamed(attrs, attrName)
		if attr == nil {
			continue
		}
		anns, err := classfile.ParseAnnotations(attr.Data)
		if err != nil {
			return err
		}
		dirty := false
		for i := range anns {
			changed, err := rw.rewriteAnnotation(&anns[i])
			if err != nil {
				return err
			}
			dirty = dirty || changed
		}
		if dirty {
			attr.Data = classfile.MarshalAnnotations(anns)
			rw.changed = true
		}
		if rw.err() != nil {
			return rw.err()
		}
	}
	return nil
}

func (rw *rewriter) rewriteAnnotation(ann *classfile.Annotation) (bool, error) {
	annType, err := rw.f.Pool.Utf8At(ann.Type)
	if err != nil {
		return false, err
	}
	changed := false
	newType, err := rw.mapClassElem(annType)
	if err != nil {
		return false, fmt.Errorf("annotation %s: %w", annType, err)
	}
	if newType != annType {
		ann.Type = rw.addUtf8(newType)
		changed = true
	}
	for i := range ann.Pairs {
		elem, err := rw.f.Pool.Utf8At(ann.Pairs[i].Name)
		if err != nil {
			return false, err
		}
		ch, err := rw.rewriteElementValue(&ann.Pairs[i].Value, annType, elem)
		if err != nil {
			return false, fmt.Errorf("annotation %s element %s: %w", annType, elem, err)
		}
		changed = changed || ch
	}
	return changed, nil
}

// rewriteElementValue rewrites one element_value. annType and elem are
// the original (pre-rewrite) annotation type descriptor and element
// name, which key the target-shape rules.
func (rw *rewriter) rewriteElementValue(v *classfile.ElementValue, annType, elem string) (bool, error) {
	switch v.Tag {
	case 'c':
		desc, err := rw.f.Pool.Utf8At(v.Class)
		if err != nil {
			return false, err
		}
		newDesc, err := rw.mapClassElem(desc)
		if err != nil {
			return false, err
		}
		if newDesc != desc {
			v.Class = rw.addUtf8(newDesc)
			return true, nil
		}
	case 'e':
		typeName, err := rw.f.Pool.Utf8At(v.TypeName)
		if err != nil {
			return false, err
		}
		newTypeName, err := rw.mapClassElem(typeName)
		if err != nil {
			return false, err
		}
		if newTypeName != typeName {
			v.TypeName = rw.addUtf8(newTypeName)
			return true, nil
		}
	case '@':
		return rw.rewriteAnnotation(v.Nested)
	case '[':
		changed := false
		for i := range v.Array {
			ch, err := rw.rewriteElementValue(&v.Array[i], annType, elem)
			if err != nil {
				return false, err
			}
			changed = changed || ch
		}
		return changed, nil
	case 's':
		return rw.rewriteStringValue(v, annType, elem)
	}
	return false, nil
}

// mapClassElem rewrites a class-valued element descriptor. Annotation
// class values may be primitives or void (Integer.TYPE, void.class),
// which carry no class reference.
func (rw *rewriter) mapClassElem(desc string) (string, error) {
	if len(desc) == 1 {
		return desc, nil
	}
	return rw.res.TypeDesc(desc)
}

func (rw *rewriter) rewriteStringValue(v *classfile.ElementValue, annType, elem string) (bool, error) {
	s, err := rw.f.Pool.Utf8At(v.Const)
	if err != nil {
		return false, err
	}

	// The marker's own "value"/"targets" members hold class names, not
	// member targets.
	if annType == rw.rules.Marker && (elem == "value" || elem == "targets") {
		internal := strings.ReplaceAll(s, ".", "/")
		renamed := rw.res.Class(internal)
		if renamed != internal {
			v.Const = rw.addUtf8(ownerStyled(renamed, s))
			return true, nil
		}
		return false, nil
	}

	if !rw.mixin {
		return false, nil
	}
	shape, listed := rw.rules.shapeFor(annType, elem)
	out, err := rw.rewriteTargetString(s, shape, listed)
	if err != nil {
		return false, fmt.Errorf("value %q: %w", s, err)
	}
	if out != s {
		v.Const = rw.addUtf8(out)
		return true, nil
	}
	return false, nil
}

// rewriteTargetString remaps one member target string. Strings that do
// not parse as either target shape pass through verbatim: not every
// string value is a symbol reference. A method-shaped string in a
// field-shaped element is the one fatal misclassification.
//
// allowImplicit permits owner-omitted method targets, which resolve
// against the remembered declared target class; elements not named by
// the rules only ever rewrite explicit-owner targets.
func (rw *rewriter) rewriteTargetString(s string, shape Shape, allowImplicit bool) (string, error) {
	t, err := ParseTarget(s)
	if err != nil {
		return s, nil
	}

	switch t.Kind {
	case TargetMethod:
		if shape == ShapeField {
			return "", fmt.Errorf("%w: method target where a field is required", ErrShapeMismatch)
		}
		owner := rw.implicit
		if t.ExplicitOwner {
			owner = ownerInternal(t.Owner)
		} else if !allowImplicit || owner == "" {
			return s, nil
		}
		newName, newDesc, err := rw.res.Method(owner, t.Name, t.Desc)
		if err != nil {
			// Parenthesized but not a resolvable descriptor; retain.
			return s, nil
		}
		t.Name, t.Desc = newName, newDesc
		if t.ExplicitOwner {
			t.Owner = ownerStyled(rw.res.Class(owner), t.Owner)
		}
		return t.String(), nil

	case TargetField:
		if shape == ShapeMethod {
			// Bare or undescribed names are legal in method elements;
			// without a descriptor there is nothing to resolve.
			return s, nil
		}
		owner := ownerInternal(t.Owner)
		t.Name = rw.res.Field(owner, t.Name)
		t.Owner = ownerStyled(rw.res.Class(owner), t.Owner)
		return t.String(), nil
	}
	return s, nil
}
