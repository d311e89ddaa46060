// Package remap rewrites every symbol reference in a class file from
// one mapping namespace to another: constant pool references, member
// declarations, lambda call-site metadata, and the textual member
// targets embedded in mixin annotation values.
//
// Attributes the rewriter does not model are carried verbatim. Class
// constants are renamed in place, so raw attributes referencing classes
// (InnerClasses, Code exception tables) stay consistent, but debug
// metadata holding its own Utf8 or NameAndType indices, such as
// LocalVariableTable and EnclosingMethod, keeps the pre-rename names
// and descriptors.
package remap

import (
	"errors"
	"fmt"
	"strings"
)

// Target grammar errors. ErrMalformedTarget marks a string that is not
// a valid member target; callers usually pass the original string
// through. ErrShapeMismatch marks a method-shaped value supplied where
// a field was required, which is fatal for the class being rewritten.
var (
	ErrMalformedTarget = errors.New("malformed target")
	ErrShapeMismatch   = errors.New("target shape mismatch")
)

// TargetKind discriminates the two member target shapes.
type TargetKind int

const (
	// TargetMethod is "name(desc)ret" or "owner.name(desc)ret".
	TargetMethod TargetKind = iota
	// TargetField is "owner.name".
	TargetField
)

// Target is a parsed member target string. Owner is kept verbatim (it
// may use dots or slashes as package separators); Desc includes the
// parentheses and return descriptor for methods and is empty for
// fields. ExplicitOwner records whether the source text named the
// owner, which owner-implicit method targets omit.
type Target struct {
	Kind          TargetKind
	Owner         string
	Name          string
	Desc          string
	ExplicitOwner bool
}

// ParseTarget classifies and parses a member target string. A string is
// method-shaped iff it contains both parentheses with '(' preceding
// ')'; a ')' before '(' or a lone parenthesis is malformed; anything
// without parentheses must be "owner.name" to parse as a field.
func ParseTarget(s string) (Target, error) {
	lparen := strings.IndexByte(s, '(')
	rparen := strings.IndexByte(s, ')')

	switch {
	case lparen >= 0 && rparen >= 0 && lparen < rparen:
		return parseMethodTarget(s, lparen, rparen)
	case lparen >= 0 || rparen >= 0:
		return Target{}, fmt.Errorf("%w: unbalanced parentheses in %q", ErrMalformedTarget, s)
	default:
		return parseFieldTarget(s)
	}
}

func parseMethodTarget(s string, lparen, rparen int) (Target, error) {
	if rparen == len(s)-1 {
		return Target{}, fmt.Errorf("%w: method target %q missing return descriptor", ErrMalformedTarget, s)
	}
	t := Target{Kind: TargetMethod, Desc: s[lparen:]}
	head := s[:lparen]
	if head == "" {
		return Target{}, fmt.Errorf("%w: method target %q missing name", ErrMalformedTarget, s)
	}
	if dot := strings.LastIndexByte(head, '.'); dot >= 0 {
		t.Owner = head[:dot]
		t.Name = head[dot+1:]
		t.ExplicitOwner = true
		if t.Owner == "" || t.Name == "" {
			return Target{}, fmt.Errorf("%w: method target %q has empty owner or name", ErrMalformedTarget, s)
		}
	} else {
		t.Name = head
	}
	return t, nil
}

func parseFieldTarget(s string) (Target, error) {
	dot := strings.LastIndexByte(s, '.')
	if dot <= 0 || dot == len(s)-1 {
		return Target{}, fmt.Errorf("%w: field target %q wants owner.name", ErrMalformedTarget, s)
	}
	return Target{
		Kind:          TargetField,
		Owner:         s[:dot],
		Name:          s[dot+1:],
		ExplicitOwner: true,
	}, nil
}

// String serializes the target back to its textual form; for any string
// ParseTarget accepted with an explicit owner, String is the exact
// inverse.
func (t Target) String() string {
	if t.ExplicitOwner {
		return t.Owner + "." + t.Name + t.Desc
	}
	return t.Name + t.Desc
}

// ownerInternal converts a target owner to the slash-delimited internal
// form used by mapping tables.
func ownerInternal(owner string) string {
	return strings.ReplaceAll(owner, ".", "/")
}

// ownerStyled renders an internal class name in the separator style of
// the original owner text, so rewriting preserves the author's form.
func ownerStyled(internal, original string) string {
	if strings.Contains(original, ".") && !strings.Contains(original, "/") {
		return strings.ReplaceAll(internal, "/", ".")
	}
	return internal
}
