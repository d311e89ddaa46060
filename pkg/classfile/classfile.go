// Package classfile reads and writes JVM class files losslessly.
//
// The parse keeps every structure it does not need to understand as raw
// bytes, and writing an unmodified parse reproduces the input
// byte-for-byte. Constant pool mutation is append-with-dedup: adding a
// constant that already exists returns the existing index, so a rewrite
// that changes nothing leaves the file untouched.
package classfile

import (
	"errors"
	"fmt"
)

// Magic is the class file signature.
const Magic = 0xCAFEBABE

// Constant pool tags.
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
	TagInvokeDynamic      = 18
	TagModule             = 19
	TagPackage            = 20
)

// Attribute names the rewriter understands. Everything else stays raw.
const (
	AttrRuntimeVisibleAnnotations   = "RuntimeVisibleAnnotations"
	AttrRuntimeInvisibleAnnotations = "RuntimeInvisibleAnnotations"
	AttrBootstrapMethods            = "BootstrapMethods"
	AttrSignature                   = "Signature"
)

// ErrPoolOverflow indicates the constant pool exceeded 65535 slots.
var ErrPoolOverflow = errors.New("constant pool overflow")

// Const is one constant pool entry.
type Const interface {
	Tag() uint8
}

// Utf8 holds the raw modified-UTF-8 payload of a CONSTANT_Utf8 entry.
// Untouched entries round-trip their original bytes; entries created by
// the rewriter hold plain UTF-8, which coincides for the ASCII names a
// mapping table produces.
type Utf8 struct {
	Raw []byte
}

func (*Utf8) Tag() uint8 { return TagUtf8 }

func (u *Utf8) String() string { return string(u.Raw) }

// IntConst holds the raw bits of a CONSTANT_Integer entry.
type IntConst struct {
	Bits uint32
}

func (*IntConst) Tag() uint8 { return TagInteger }

// FloatConst holds the raw bits of a CONSTANT_Float entry.
type FloatConst struct {
	Bits uint32
}

func (*FloatConst) Tag() uint8 { return TagFloat }

// LongConst holds the raw bits of a CONSTANT_Long entry. It occupies
// two pool slots.
type LongConst struct {
	Bits uint64
}

func (*LongConst) Tag() uint8 { return TagLong }

// DoubleConst holds the raw bits of a CONSTANT_Double entry. It
// occupies two pool slots.
type DoubleConst struct {
	Bits uint64
}

func (*DoubleConst) Tag() uint8 { return TagDouble }

// Class references the Utf8 holding a class's internal name.
type Class struct {
	Name uint16
}

func (*Class) Tag() uint8 { return TagClass }

// StringConst references the Utf8 holding a string literal.
type StringConst struct {
	Value uint16
}

func (*StringConst) Tag() uint8 { return TagString }

// Ref is a CONSTANT_Fieldref, Methodref or InterfaceMethodref entry;
// Kind carries which of the three tags it was parsed with.
type Ref struct {
	Kind        uint8
	Class       uint16
	NameAndType uint16
}

func (r *Ref) Tag() uint8 { return r.Kind }

// NameAndType pairs a member name Utf8 with a descriptor Utf8.
type NameAndType struct {
	Name uint16
	Desc uint16
}

func (*NameAndType) Tag() uint8 { return TagNameAndType }

// MethodHandle wraps a ref entry with a reference kind.
type MethodHandle struct {
	RefKind uint8
	Ref     uint16
}

func (*MethodHandle) Tag() uint8 { return TagMethodHandle }

// MethodType references a method descriptor Utf8.
type MethodType struct {
	Desc uint16
}

func (*MethodType) Tag() uint8 { return TagMethodType }

// DynamicConst is a CONSTANT_Dynamic or InvokeDynamic entry; Kind
// carries which. Bootstrap indexes into the BootstrapMethods attribute.
type DynamicConst struct {
	Kind        uint8
	Bootstrap   uint16
	NameAndType uint16
}

func (d *DynamicConst) Tag() uint8 { return d.Kind }

// ModuleConst references the Utf8 holding a module name.
type ModuleConst struct {
	Name uint16
}

func (*ModuleConst) Tag() uint8 { return TagModule }

// PackageConst references the Utf8 holding a package name.
type PackageConst struct {
	Name uint16
}

func (*PackageConst) Tag() uint8 { return TagPackage }

// Pool is a constant pool. Index 0 is unused and the slot after a
// LongConst or DoubleConst entry is nil, per the class file format.
type Pool struct {
	consts []Const

	utf8Index  map[string]uint16
	classIndex map[uint16]uint16
	natIndex   map[uint32]uint16
}

// NewPool returns an empty pool with only the reserved zero slot.
func NewPool() *Pool {
	return &Pool{
		consts:     []Const{nil},
		utf8Index:  make(map[string]uint16),
		classIndex: make(map[uint16]uint16),
		natIndex:   make(map[uint32]uint16),
	}
}

// Size returns the pool slot count as written to the cp_count field.
func (p *Pool) Size() int { return len(p.consts) }

// At returns the entry at index i, or an error for index 0, the second
// slot of a long/double, or an out-of-range index.
func (p *Pool) At(i uint16) (Const, error) {
	if int(i) >= len(p.consts) || i == 0 {
		return nil, fmt.Errorf("constant pool index %d out of range", i)
	}
	c := p.consts[i]
	if c == nil {
		return nil, fmt.Errorf("constant pool index %d is an unusable slot", i)
	}
	return c, nil
}

// Utf8At returns the string value of the Utf8 entry at index i.
func (p *Pool) Utf8At(i uint16) (string, error) {
	c, err := p.At(i)
	if err != nil {
		return "", err
	}
	u, ok := c.(*Utf8)
	if !ok {
		return "", fmt.Errorf("constant pool index %d: want Utf8, got tag %d", i, c.Tag())
	}
	return u.String(), nil
}

// ClassNameAt returns the internal name referenced by the Class entry
// at index i.
func (p *Pool) ClassNameAt(i uint16) (string, error) {
	c, err := p.At(i)
	if err != nil {
		return "", err
	}
	cl, ok := c.(*Class)
	if !ok {
		return "", fmt.Errorf("constant pool index %d: want Class, got tag %d", i, c.Tag())
	}
	return p.Utf8At(cl.Name)
}

func (p *Pool) append(c Const, slots int) (uint16, error) {
	idx := len(p.consts)
	// cp_count is a u16 covering the reserved zero slot, so the highest
	// usable index is 0xFFFE.
	if idx+slots-1 > 0xFFFE {
		return 0, ErrPoolOverflow
	}
	p.consts = append(p.consts, c)
	for i := 1; i < slots; i++ {
		p.consts = append(p.consts, nil)
	}
	return uint16(idx), nil
}

// AddUtf8 returns the index of a Utf8 entry with the given value,
// appending one only if none exists.
func (p *Pool) AddUtf8(s string) (uint16, error) {
	if idx, ok := p.utf8Index[s]; ok {
		return idx, nil
	}
	if len(s) > 0xFFFF {
		return 0, fmt.Errorf("utf8 constant too long: %d bytes", len(s))
	}
	idx, err := p.append(&Utf8{Raw: []byte(s)}, 1)
	if err != nil {
		return 0, err
	}
	p.utf8Index[s] = idx
	return idx, nil
}

// AddClass returns the index of a Class entry naming the given internal
// name, appending the Utf8 and Class entries as needed.
func (p *Pool) AddClass(name string) (uint16, error) {
	nameIdx, err := p.AddUtf8(name)
	if err != nil {
		return 0, err
	}
	if idx, ok := p.classIndex[nameIdx]; ok {
		return idx, nil
	}
	idx, err := p.append(&Class{Name: nameIdx}, 1)
	if err != nil {
		return 0, err
	}
	p.classIndex[nameIdx] = idx
	return idx, nil
}

// AddNameAndType returns the index of a NameAndType entry for the given
// member name and descriptor, appending entries as needed.
func (p *Pool) AddNameAndType(name, desc string) (uint16, error) {
	nameIdx, err := p.AddUtf8(name)
	if err != nil {
		return 0, err
	}
	descIdx, err := p.AddUtf8(desc)
	if err != nil {
		return 0, err
	}
	key := uint32(nameIdx)<<16 | uint32(descIdx)
	if idx, ok := p.natIndex[key]; ok {
		return idx, nil
	}
	idx, err := p.append(&NameAndType{Name: nameIdx, Desc: descIdx}, 1)
	if err != nil {
		return 0, err
	}
	p.natIndex[key] = idx
	return idx, nil
}

// Add appends an arbitrary entry without dedup, reserving two slots for
// long/double constants. Used by tests and builders.
func (p *Pool) Add(c Const) (uint16, error) {
	slots := 1
	switch c.(type) {
	case *LongConst, *DoubleConst:
		slots = 2
	}
	idx, err := p.append(c, slots)
	if err != nil {
		return 0, err
	}
	p.register(idx, c)
	return idx, nil
}

// register records an entry in the dedup indexes. First occurrence
// wins, matching what a rewrite of an unmodified file must preserve.
func (p *Pool) register(idx uint16, c Const) {
	switch v := c.(type) {
	case *Utf8:
		if _, ok := p.utf8Index[v.String()]; !ok {
			p.utf8Index[v.String()] = idx
		}
	case *Class:
		if _, ok := p.classIndex[v.Name]; !ok {
			p.classIndex[v.Name] = idx
		}
	case *NameAndType:
		key := uint32(v.Name)<<16 | uint32(v.Desc)
		if _, ok := p.natIndex[key]; !ok {
			p.natIndex[key] = idx
		}
	}
}

// Entries returns the backing slice, index 0 and long/double padding
// slots included. Callers may mutate entries in place but must go
// through Add* to grow the pool.
func (p *Pool) Entries() []Const { return p.consts }

// Attribute is a named raw attribute payload.
type Attribute struct {
	Name uint16
	Data []byte
}

// Member is a field_info or method_info structure.
type Member struct {
	Access uint16
	Name   uint16
	Desc   uint16
	Attrs  []Attribute
}

// File is a parsed class file.
type File struct {
	Minor uint16
	Major uint16

	Pool *Pool

	Access     uint16
	ThisClass  uint16
	SuperClass uint16
	Interfaces []uint16

	Fields  []Member
	Methods []Member
	Attrs   []Attribute
}

// ThisName returns the internal name of the class itself.
func (f *File) ThisName() (string, error) {
	return f.Pool.ClassNameAt(f.ThisClass)
}

// AttrNamed returns a pointer to the first attribute with the given
// name, or nil.
func (f *File) AttrNamed(attrs []Attribute, name string) *Attribute {
	for i := range attrs {
		n, err := f.Pool.Utf8At(attrs[i].Name)
		if err == nil && n == name {
			return &attrs[i]
		}
	}
	return nil
}
