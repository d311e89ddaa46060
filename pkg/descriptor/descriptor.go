// Package descriptor parses and rewrites JVM binary type descriptors.
//
// A field descriptor is a primitive code (B C D F I J S Z), an array
// dimension prefix ([), or an object type (Lpkg/Name;). A method
// descriptor is "(" {field descriptor} ")" followed by a return
// descriptor, where the return may additionally be V. The mapping
// functions locate every embedded class path and apply a rename
// callback to it, leaving all other syntax untouched.
package descriptor

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed indicates a descriptor that does not follow the binary
// descriptor grammar. Callers treat this as fatal for the class being
// processed.
var ErrMalformed = errors.New("malformed descriptor")

// MapFunc renames one slash-delimited class path. Returning the input
// unchanged is the identity rename.
type MapFunc func(name string) string

// MapType rewrites every class path embedded in a field/type descriptor.
func MapType(desc string, f MapFunc) (string, error) {
	var sb strings.Builder
	next, err := mapOne(desc, 0, &sb, f, false)
	if err != nil {
		return "", err
	}
	if next != len(desc) {
		return "", fmt.Errorf("%w: trailing bytes in %q", ErrMalformed, desc)
	}
	return sb.String(), nil
}

// MapMethod rewrites every class path embedded in a method descriptor.
func MapMethod(desc string, f MapFunc) (string, error) {
	if len(desc) == 0 || desc[0] != '(' {
		return "", fmt.Errorf("%w: method descriptor %q missing '('", ErrMalformed, desc)
	}
	var sb strings.Builder
	sb.WriteByte('(')
	i := 1
	for i < len(desc) && desc[i] != ')' {
		next, err := mapOne(desc, i, &sb, f, false)
		if err != nil {
			return "", err
		}
		i = next
	}
	if i >= len(desc) {
		return "", fmt.Errorf("%w: method descriptor %q missing ')'", ErrMalformed, desc)
	}
	sb.WriteByte(')')
	next, err := mapOne(desc, i+1, &sb, f, true)
	if err != nil {
		return "", err
	}
	if next != len(desc) {
		return "", fmt.Errorf("%w: trailing bytes in %q", ErrMalformed, desc)
	}
	return sb.String(), nil
}

// mapOne consumes a single type descriptor starting at i, writes its
// (possibly renamed) form to sb, and returns the index just past it.
func mapOne(desc string, i int, sb *strings.Builder, f MapFunc, allowVoid bool) (int, error) {
	if i >= len(desc) {
		return 0, fmt.Errorf("%w: truncated descriptor %q", ErrMalformed, desc)
	}
	switch c := desc[i]; c {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		sb.WriteByte(c)
		return i + 1, nil
	case 'V':
		if !allowVoid {
			return 0, fmt.Errorf("%w: void outside return position in %q", ErrMalformed, desc)
		}
		sb.WriteByte(c)
		return i + 1, nil
	case '[':
		sb.WriteByte(c)
		return mapOne(desc, i+1, sb, f, false)
	case 'L':
		end := strings.IndexByte(desc[i:], ';')
		if end < 0 {
			return 0, fmt.Errorf("%w: unterminated object type in %q", ErrMalformed, desc)
		}
		name := desc[i+1 : i+end]
		if name == "" {
			return 0, fmt.Errorf("%w: empty object type in %q", ErrMalformed, desc)
		}
		sb.WriteByte('L')
		sb.WriteString(f(name))
		sb.WriteByte(';')
		return i + end + 1, nil
	default:
		return 0, fmt.Errorf("%w: unexpected %q in %q", ErrMalformed, c, desc)
	}
}

// MapSignature rewrites class paths inside a generic signature
// attribute value. Signatures extend the descriptor grammar with type
// variables (TName;), wildcards, type arguments in angle brackets, and
// inner-class suffixes; this walk renames only the leading class path
// of each ClassTypeSignature and copies everything else verbatim. It is
// deliberately permissive: signatures are debug/reflection metadata and
// an unrecognized construct passes through unchanged rather than
// failing the class.
func MapSignature(sig string, f MapFunc) string {
	var sb strings.Builder
	i := 0
	for i < len(sig) {
		c := sig[i]
		if c != 'L' {
			sb.WriteByte(c)
			i++
			continue
		}
		// ClassTypeSignature: class path runs until '<', ';' or '.'.
		j := i + 1
		for j < len(sig) && sig[j] != '<' && sig[j] != ';' && sig[j] != '.' {
			j++
		}
		if j >= len(sig) || j == i+1 {
			sb.WriteString(sig[i:])
			return sb.String()
		}
		sb.WriteByte('L')
		sb.WriteString(f(sig[i+1 : j]))
		i = j
	}
	return sb.String()
}
