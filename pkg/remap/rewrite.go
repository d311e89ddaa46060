package remap

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/odvcencio/rejar/pkg/classfile"
	"github.com/odvcencio/rejar/pkg/descriptor"
	"github.com/odvcencio/rejar/pkg/mapping"
)

const lambdaMetafactory = "java/lang/invoke/LambdaMetafactory"

// Config drives one remap run. It is shared read-only across classes.
type Config struct {
	Resolver *mapping.Resolver

	// RenameSynthetics also applies the mapping table to synthetic
	// lambda body methods (lambda$...). Off by default: the interface
	// method a call site dispatches through is always renamed, the
	// local body name only on request, and the two never depend on
	// each other.
	RenameSynthetics bool

	// Rules selects the framework annotations carrying member target
	// strings. The zero value means DefaultRules.
	Rules Rules
}

func (c *Config) rules() Rules {
	if c.Rules.Marker == "" && c.Rules.Elements == nil {
		return DefaultRules()
	}
	return c.Rules
}

// Result is one rewritten class. Bytes aliases the input when nothing
// needed to change, so an identity mapping round-trips byte-for-byte.
type Result struct {
	Bytes   []byte
	OldName string
	NewName string
}

// Remap rewrites every symbol reference in one class file.
func Remap(cfg *Config, data []byte) (*Result, error) {
	f, err := classfile.Parse(data)
	if err != nil {
		return nil, err
	}
	rw := &rewriter{cfg: cfg, res: cfg.Resolver, rules: cfg.rules(), f: f}
	if err := rw.run(); err != nil {
		if rw.thisName != "" {
			return nil, fmt.Errorf("remap %s: %w", rw.thisName, err)
		}
		return nil, err
	}

	res := &Result{OldName: rw.thisName, NewName: rw.res.Class(rw.thisName)}
	if !rw.changed {
		res.Bytes = data
		return res, nil
	}
	out, err := f.Write()
	if err != nil {
		return nil, fmt.Errorf("remap %s: %w", rw.thisName, err)
	}
	res.Bytes = out
	return res, nil
}

// rewriter holds the per-class rewrite state. origClass snapshots the
// pool's class names before any mutation: member resolution must use
// the original owner for its ancestor walk, never the rewritten one.
type rewriter struct {
	cfg   *Config
	res   *mapping.Resolver
	rules Rules
	f     *classfile.File

	thisName  string
	origClass map[uint16]string
	bootstrap []classfile.BootstrapMethod

	// implicit is the original declared patch target class (internal
	// form), recorded from the first marker annotation occurrence and
	// threaded explicitly to owner-implicit target strings.
	implicit string
	mixin    bool

	changed bool
	poolErr error
}

func (rw *rewriter) run() error {
	if err := rw.snapshotClasses(); err != nil {
		return err
	}
	var err error
	if rw.thisName, err = rw.f.ThisName(); err != nil {
		return err
	}
	if err := rw.loadBootstrap(); err != nil {
		return err
	}
	rw.findMarker()

	if err := rw.rewriteMembers(); err != nil {
		return err
	}
	if err := rw.rewritePool(); err != nil {
		return err
	}
	if err := rw.rewriteSignatures(); err != nil {
		return err
	}
	return rw.rewriteAllAnnotations()
}

func (rw *rewriter) snapshotClasses() error {
	entries := rw.f.Pool.Entries()
	rw.origClass = make(map[uint16]string)
	for i := 1; i < len(entries); i++ {
		if cl, ok := entries[i].(*classfile.Class); ok {
			name, err := rw.f.Pool.Utf8At(cl.Name)
			if err != nil {
				return fmt.Errorf("class constant %d: %w", i, err)
			}
			rw.origClass[uint16(i)] = name
		}
	}
	return nil
}

func (rw *rewriter) loadBootstrap() error {
	attr := rw.f.AttrNamed(rw.f.Attrs, classfile.AttrBootstrapMethods)
	if attr == nil {
		return nil
	}
	methods, err := classfile.ParseBootstrapMethods(attr.Data)
	if err != nil {
		return err
	}
	rw.bootstrap = methods
	return nil
}

// findMarker scans the class-level annotations for the framework
// marker, recording the declared patch target class. The first class
// value wins, falling back to the first "targets" string.
func (rw *rewriter) findMarker() {
	for _, attrName := range []string{classfile.AttrRuntimeVisibleAnnotations, classfile.AttrRuntimeInvisibleAnnotations} {
		attr := rw.f.AttrNamed(rw.f.Attrs, attrName)
		if attr == nil {
			continue
		}
		anns, err := classfile.ParseAnnotations(attr.Data)
		if err != nil {
			continue // surfaced by the rewrite pass
		}
		for i := range anns {
			annType, err := rw.f.Pool.Utf8At(anns[i].Type)
			if err != nil || annType != rw.rules.Marker {
				continue
			}
			rw.mixin = true
			if rw.implicit == "" {
				rw.implicit = markerTarget(rw.f.Pool, &anns[i])
			}
		}
	}
}

func markerTarget(pool *classfile.Pool, ann *classfile.Annotation) string {
	byName := make(map[string]*classfile.ElementValue, len(ann.Pairs))
	for i := range ann.Pairs {
		if name, err := pool.Utf8At(ann.Pairs[i].Name); err == nil {
			byName[name] = &ann.Pairs[i].Value
		}
	}
	if v := firstElement(byName["value"]); v != nil && v.Tag == 'c' {
		if desc, err := pool.Utf8At(v.Class); err == nil &&
			strings.HasPrefix(desc, "L") && strings.HasSuffix(desc, ";") {
			return desc[1 : len(desc)-1]
		}
	}
	if v := firstElement(byName["targets"]); v != nil && v.Tag == 's' {
		if s, err := pool.Utf8At(v.Const); err == nil {
			return strings.ReplaceAll(s, ".", "/")
		}
	}
	return ""
}

// firstElement unwraps a one-deep array element value.
func firstElement(v *classfile.ElementValue) *classfile.ElementValue {
	if v == nil {
		return nil
	}
	if v.Tag == '[' {
		if len(v.Array) == 0 {
			return nil
		}
		return &v.Array[0]
	}
	return v
}

func isLambdaBody(name string) bool {
	return strings.HasPrefix(name, "lambda$")
}

// rewriteMembers renames the class's own field and method declarations
// and rewrites their descriptors.
func (rw *rewriter) rewriteMembers() error {
	for i := range rw.f.Fields {
		m := &rw.f.Fields[i]
		name, desc, err := rw.memberStrings(m)
		if err != nil {
			return err
		}
		newDesc, err := rw.res.TypeDesc(desc)
		if err != nil {
			return fmt.Errorf("field %s.%s: %w", rw.thisName, name, err)
		}
		rw.setMember(m, name, rw.res.Field(rw.thisName, name), desc, newDesc)
		if rw.err() != nil {
			return rw.err()
		}
	}
	for i := range rw.f.Methods {
		m := &rw.f.Methods[i]
		name, desc, err := rw.memberStrings(m)
		if err != nil {
			return err
		}
		var newName, newDesc string
		switch {
		case name == "<init>" || name == "<clinit>",
			isLambdaBody(name) && !rw.cfg.RenameSynthetics:
			newName = name
			newDesc, err = rw.res.MethodDesc(desc)
		default:
			newName, newDesc, err = rw.res.Method(rw.thisName, name, desc)
		}
		if err != nil {
			return fmt.Errorf("method %s.%s: %w", rw.thisName, name, err)
		}
		rw.setMember(m, name, newName, desc, newDesc)
		if rw.err() != nil {
			return rw.err()
		}
	}
	return nil
}

func (rw *rewriter) memberStrings(m *classfile.Member) (name, desc string, err error) {
	if name, err = rw.f.Pool.Utf8At(m.Name); err != nil {
		return "", "", err
	}
	if desc, err = rw.f.Pool.Utf8At(m.Desc); err != nil {
		return "", "", err
	}
	return name, desc, nil
}

func (rw *rewriter) setMember(m *classfile.Member, name, newName, desc, newDesc string) {
	if newName != name {
		m.Name = rw.addUtf8(newName)
	}
	if newDesc != desc {
		m.Desc = rw.addUtf8(newDesc)
	}
}

// err returns the first pool-growth failure recorded by addUtf8/addNAT;
// pool overflow is the only way those appends fail.
func (rw *rewriter) err() error { return rw.poolErr }

func (rw *rewriter) addUtf8(s string) uint16 {
	idx, err := rw.f.Pool.AddUtf8(s)
	if err != nil && rw.poolErr == nil {
		rw.poolErr = err
	}
	rw.changed = true
	return idx
}

func (rw *rewriter) addNAT(name, desc string) uint16 {
	idx, err := rw.f.Pool.AddNameAndType(name, desc)
	if err != nil && rw.poolErr == nil {
		rw.poolErr = err
	}
	rw.changed = true
	return idx
}

// rewritePool substitutes symbol references throughout the constant
// pool. Invokedynamic entries go first: lambda call-site resolution
// reads MethodType arguments that the second pass may redirect.
func (rw *rewriter) rewritePool() error {
	entries := rw.f.Pool.Entries()
	n := len(entries)

	for i := 1; i < n; i++ {
		d, ok := entries[i].(*classfile.DynamicConst)
		if !ok {
			continue
		}
		if err := rw.rewriteDynamic(d); err != nil {
			return err
		}
		if rw.err() != nil {
			return rw.err()
		}
	}

	for i := 1; i < n; i++ {
		switch c := entries[i].(type) {
		case *classfile.Class:
			name := rw.origClass[uint16(i)]
			var newName string
			var err error
			if strings.HasPrefix(name, "[") {
				// Array classes carry a full type descriptor as their name.
				newName, err = rw.res.TypeDesc(name)
				if err != nil {
					return fmt.Errorf("class constant %q: %w", name, err)
				}
			} else {
				newName = rw.res.Class(name)
			}
			if newName != name {
				c.Name = rw.addUtf8(newName)
			}
		case *classfile.Ref:
			if err := rw.rewriteRef(c); err != nil {
				return err
			}
		case *classfile.MethodType:
			desc, err := rw.f.Pool.Utf8At(c.Desc)
			if err != nil {
				return err
			}
			newDesc, err := rw.res.MethodDesc(desc)
			if err != nil {
				return fmt.Errorf("method type %q: %w", desc, err)
			}
			if newDesc != desc {
				c.Desc = rw.addUtf8(newDesc)
			}
		}
		if rw.err() != nil {
			return rw.err()
		}
	}
	return nil
}

func (rw *rewriter) natStrings(idx uint16) (name, desc string, err error) {
	c, err := rw.f.Pool.At(idx)
	if err != nil {
		return "", "", err
	}
	nat, ok := c.(*classfile.NameAndType)
	if !ok {
		return "", "", fmt.Errorf("constant %d: want NameAndType, got tag %d", idx, c.Tag())
	}
	if name, err = rw.f.Pool.Utf8At(nat.Name); err != nil {
		return "", "", err
	}
	if desc, err = rw.f.Pool.Utf8At(nat.Desc); err != nil {
		return "", "", err
	}
	return name, desc, nil
}

func (rw *rewriter) rewriteRef(ref *classfile.Ref) error {
	owner, ok := rw.origClass[ref.Class]
	if !ok {
		return fmt.Errorf("member ref: constant %d is not a class", ref.Class)
	}
	name, desc, err := rw.natStrings(ref.NameAndType)
	if err != nil {
		return err
	}

	var newName, newDesc string
	if ref.Kind == classfile.TagFieldref {
		newName = rw.res.Field(owner, name)
		newDesc, err = rw.res.TypeDesc(desc)
	} else if isLambdaBody(name) && !rw.cfg.RenameSynthetics {
		newName = name
		newDesc, err = rw.res.MethodDesc(desc)
	} else {
		newName, newDesc, err = rw.res.Method(owner, name, desc)
	}
	if err != nil {
		return fmt.Errorf("ref %s.%s: %w", owner, name, err)
	}
	if newName != name || newDesc != desc {
		ref.NameAndType = rw.addNAT(newName, newDesc)
	}
	return nil
}

// rewriteDynamic handles invokedynamic and dynamic constants. For a
// lambda call site the interface-facing (owner, name, descriptor)
// triple resolves like an ordinary method reference; the synthetic body
// the bootstrap arguments point at is covered by the ordinary ref
// rewrite under its own renaming rule.
func (rw *rewriter) rewriteDynamic(d *classfile.DynamicConst) error {
	name, desc, err := rw.natStrings(d.NameAndType)
	if err != nil {
		return err
	}

	var newName, newDesc string
	if d.Kind == classfile.TagInvokeDynamic {
		newDesc, err = rw.res.MethodDesc(desc)
		if err != nil {
			return fmt.Errorf("invokedynamic %s%s: %w", name, desc, err)
		}
		newName = name
		if iface, samDesc, ok := rw.lambdaSite(d, desc); ok {
			newName, _, err = rw.res.Method(iface, name, samDesc)
			if err != nil {
				return fmt.Errorf("invokedynamic %s.%s: %w", iface, name, err)
			}
		}
	} else {
		newName = name
		newDesc, err = rw.res.TypeDesc(desc)
		if err != nil {
			return fmt.Errorf("dynamic constant %s: %w", name, err)
		}
	}
	if newName != name || newDesc != desc {
		d.NameAndType = rw.addNAT(newName, newDesc)
	}
	return nil
}

// lambdaSite reports whether d is a LambdaMetafactory call site,
// returning the functional interface (the call-site return type) and
// the erased interface method descriptor (first bootstrap argument).
func (rw *rewriter) lambdaSite(d *classfile.DynamicConst, desc string) (iface, samDesc string, ok bool) {
	if int(d.Bootstrap) >= len(rw.bootstrap) {
		return "", "", false
	}
	bm := rw.bootstrap[d.Bootstrap]
	hc, err := rw.f.Pool.At(bm.Ref)
	if err != nil {
		return "", "", false
	}
	handle, ok2 := hc.(*classfile.MethodHandle)
	if !ok2 {
		return "", "", false
	}
	rc, err := rw.f.Pool.At(handle.Ref)
	if err != nil {
		return "", "", false
	}
	ref, ok2 := rc.(*classfile.Ref)
	if !ok2 || rw.origClass[ref.Class] != lambdaMetafactory {
		return "", "", false
	}
	if len(bm.Args) == 0 {
		return "", "", false
	}
	mc, err := rw.f.Pool.At(bm.Args[0])
	if err != nil {
		return "", "", false
	}
	mt, ok2 := mc.(*classfile.MethodType)
	if !ok2 {
		return "", "", false
	}
	samDesc, err = rw.f.Pool.Utf8At(mt.Desc)
	if err != nil {
		return "", "", false
	}
	rparen := strings.LastIndexByte(desc, ')')
	if rparen < 0 {
		return "", "", false
	}
	ret := desc[rparen+1:]
	if !strings.HasPrefix(ret, "L") || !strings.HasSuffix(ret, ";") {
		return "", "", false
	}
	return ret[1 : len(ret)-1], samDesc, true
}

// rewriteSignatures rewrites class names inside generic Signature
// attributes on the class and its members.
func (rw *rewriter) rewriteSignatures() error {
	rewrite := func(attrs []classfile.Attribute) error {
		attr := rw.f.AttrNamed(attrs, classfile.AttrSignature)
		if attr == nil {
			return nil
		}
		if len(attr.Data) != 2 {
			return fmt.Errorf("signature attribute: want 2 bytes, got %d", len(attr.Data))
		}
		sig, err := rw.f.Pool.Utf8At(binary.BigEndian.Uint16(attr.Data))
		if err != nil {
			return err
		}
		newSig := descriptor.MapSignature(sig, rw.res.Class)
		if newSig != sig {
			attr.Data = binary.BigEndian.AppendUint16(nil, rw.addUtf8(newSig))
		}
		return rw.err()
	}

	if err := rewrite(rw.f.Attrs); err != nil {
		return err
	}
	for i := range rw.f.Fields {
		if err := rewrite(rw.f.Fields[i].Attrs); err != nil {
			return err
		}
	}
	for i := range rw.f.Methods {
		if err := rewrite(rw.f.Methods[i].Attrs); err != nil {
			return err
		}
	}
	return nil
}
