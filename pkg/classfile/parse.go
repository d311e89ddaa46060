package classfile

import (
	"encoding/binary"
	"fmt"
)

// reader is a sticky-error big-endian cursor over the input bytes.
type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf(format, args...)
	}
}

func (r *reader) u1() uint8 {
	if r.err != nil {
		return 0
	}
	if r.off+1 > len(r.data) {
		r.fail("truncated at offset %d", r.off)
		return 0
	}
	v := r.data[r.off]
	r.off++
	return v
}

func (r *reader) u2() uint16 {
	if r.err != nil {
		return 0
	}
	if r.off+2 > len(r.data) {
		r.fail("truncated at offset %d", r.off)
		return 0
	}
	v := binary.BigEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

func (r *reader) u4() uint32 {
	if r.err != nil {
		return 0
	}
	if r.off+4 > len(r.data) {
		r.fail("truncated at offset %d", r.off)
		return 0
	}
	v := binary.BigEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *reader) u8() uint64 {
	if r.err != nil {
		return 0
	}
	if r.off+8 > len(r.data) {
		r.fail("truncated at offset %d", r.off)
		return 0
	}
	v := binary.BigEndian.Uint64(r.data[r.off:])
	r.off += 8
	return v
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.fail("truncated at offset %d (want %d bytes)", r.off, n)
		return nil
	}
	v := r.data[r.off : r.off+n]
	r.off += n
	return v
}

// parsePool reads the constant pool, dedup indexes included.
func parsePool(r *reader) *Pool {
	count := int(r.u2())
	pool := NewPool()
	for i := 1; i < count && r.err == nil; i++ {
		tag := r.u1()
		var c Const
		slots := 1
		switch tag {
		case TagUtf8:
			n := int(r.u2())
			raw := r.bytes(n)
			buf := make([]byte, len(raw))
			copy(buf, raw)
			c = &Utf8{Raw: buf}
		case TagInteger:
			c = &IntConst{Bits: r.u4()}
		case TagFloat:
			c = &FloatConst{Bits: r.u4()}
		case TagLong:
			c = &LongConst{Bits: r.u8()}
			slots = 2
		case TagDouble:
			c = &DoubleConst{Bits: r.u8()}
			slots = 2
		case TagClass:
			c = &Class{Name: r.u2()}
		case TagString:
			c = &StringConst{Value: r.u2()}
		case TagFieldref, TagMethodref, TagInterfaceMethodref:
			c = &Ref{Kind: tag, Class: r.u2(), NameAndType: r.u2()}
		case TagNameAndType:
			c = &NameAndType{Name: r.u2(), Desc: r.u2()}
		case TagMethodHandle:
			c = &MethodHandle{RefKind: r.u1(), Ref: r.u2()}
		case TagMethodType:
			c = &MethodType{Desc: r.u2()}
		case TagDynamic, TagInvokeDynamic:
			c = &DynamicConst{Kind: tag, Bootstrap: r.u2(), NameAndType: r.u2()}
		case TagModule:
			c = &ModuleConst{Name: r.u2()}
		case TagPackage:
			c = &PackageConst{Name: r.u2()}
		default:
			r.fail("constant %d: unknown tag %d", i, tag)
			continue
		}
		if r.err != nil {
			break
		}
		idx := uint16(len(pool.consts))
		pool.consts = append(pool.consts, c)
		pool.register(idx, c)
		if slots == 2 {
			pool.consts = append(pool.consts, nil)
			i++
		}
	}
	return pool
}

func parseAttrs(r *reader) []Attribute {
	count := int(r.u2())
	var attrs []Attribute
	for i := 0; i < count && r.err == nil; i++ {
		name := r.u2()
		n := int(r.u4())
		raw := r.bytes(n)
		buf := make([]byte, len(raw))
		copy(buf, raw)
		attrs = append(attrs, Attribute{Name: name, Data: buf})
	}
	return attrs
}

func parseMembers(r *reader) []Member {
	count := int(r.u2())
	var members []Member
	for i := 0; i < count && r.err == nil; i++ {
		members = append(members, Member{
			Access: r.u2(),
			Name:   r.u2(),
			Desc:   r.u2(),
			Attrs:  parseAttrs(r),
		})
	}
	return members
}

// Parse decodes a full class file.
func Parse(data []byte) (*File, error) {
	r := &reader{data: data}
	if magic := r.u4(); r.err == nil && magic != Magic {
		return nil, fmt.Errorf("bad class file magic %#x", magic)
	}

	f := &File{}
	f.Minor = r.u2()
	f.Major = r.u2()
	f.Pool = parsePool(r)
	f.Access = r.u2()
	f.ThisClass = r.u2()
	f.SuperClass = r.u2()

	ifCount := int(r.u2())
	for i := 0; i < ifCount && r.err == nil; i++ {
		f.Interfaces = append(f.Interfaces, r.u2())
	}

	f.Fields = parseMembers(r)
	f.Methods = parseMembers(r)
	f.Attrs = parseAttrs(r)

	if r.err != nil {
		return nil, fmt.Errorf("parse class file: %w", r.err)
	}
	if r.off != len(data) {
		return nil, fmt.Errorf("parse class file: %d trailing bytes", len(data)-r.off)
	}
	return f, nil
}

// Header is the inheritance-relevant slice of a class file.
type Header struct {
	Name       string
	Super      string // empty for java/lang/Object
	Interfaces []string
}

// ParseHeader decodes only as far as the interfaces list, for ancestor
// walks over classpath lookups.
func ParseHeader(data []byte) (*Header, error) {
	r := &reader{data: data}
	if magic := r.u4(); r.err == nil && magic != Magic {
		return nil, fmt.Errorf("bad class file magic %#x", magic)
	}
	r.u2() // minor
	r.u2() // major
	pool := parsePool(r)
	r.u2() // access
	thisClass := r.u2()
	superClass := r.u2()
	ifCount := int(r.u2())
	ifaces := make([]uint16, 0, ifCount)
	for i := 0; i < ifCount && r.err == nil; i++ {
		ifaces = append(ifaces, r.u2())
	}
	if r.err != nil {
		return nil, fmt.Errorf("parse class header: %w", r.err)
	}

	h := &Header{}
	var err error
	if h.Name, err = pool.ClassNameAt(thisClass); err != nil {
		return nil, fmt.Errorf("parse class header: this_class: %w", err)
	}
	if superClass != 0 {
		if h.Super, err = pool.ClassNameAt(superClass); err != nil {
			return nil, fmt.Errorf("parse class header: super_class: %w", err)
		}
	}
	for _, idx := range ifaces {
		name, err := pool.ClassNameAt(idx)
		if err != nil {
			return nil, fmt.Errorf("parse class header: interface: %w", err)
		}
		h.Interfaces = append(h.Interfaces, name)
	}
	return h, nil
}
