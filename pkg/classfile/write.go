package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

type writer struct {
	buf bytes.Buffer
}

func (w *writer) u1(v uint8)  { w.buf.WriteByte(v) }
func (w *writer) u2(v uint16) { w.buf.Write(binary.BigEndian.AppendUint16(nil, v)) }
func (w *writer) u4(v uint32) { w.buf.Write(binary.BigEndian.AppendUint32(nil, v)) }
func (w *writer) u8(v uint64) { w.buf.Write(binary.BigEndian.AppendUint64(nil, v)) }

func (w *writer) attrs(attrs []Attribute) {
	w.u2(uint16(len(attrs)))
	for _, a := range attrs {
		w.u2(a.Name)
		w.u4(uint32(len(a.Data)))
		w.buf.Write(a.Data)
	}
}

func (w *writer) members(members []Member) {
	w.u2(uint16(len(members)))
	for _, m := range members {
		w.u2(m.Access)
		w.u2(m.Name)
		w.u2(m.Desc)
		w.attrs(m.Attrs)
	}
}

// Write serializes the file. Writing an unmodified Parse result
// reproduces the original bytes exactly.
func (f *File) Write() ([]byte, error) {
	w := &writer{}
	w.u4(Magic)
	w.u2(f.Minor)
	w.u2(f.Major)

	consts := f.Pool.Entries()
	if len(consts) > 0xFFFF {
		return nil, ErrPoolOverflow
	}
	w.u2(uint16(len(consts)))
	for i := 1; i < len(consts); i++ {
		c := consts[i]
		if c == nil {
			continue // second slot of a long/double
		}
		w.u1(c.Tag())
		switch v := c.(type) {
		case *Utf8:
			if len(v.Raw) > 0xFFFF {
				return nil, fmt.Errorf("constant %d: utf8 too long: %d bytes", i, len(v.Raw))
			}
			w.u2(uint16(len(v.Raw)))
			w.buf.Write(v.Raw)
		case *IntConst:
			w.u4(v.Bits)
		case *FloatConst:
			w.u4(v.Bits)
		case *LongConst:
			w.u8(v.Bits)
		case *DoubleConst:
			w.u8(v.Bits)
		case *Class:
			w.u2(v.Name)
		case *StringConst:
			w.u2(v.Value)
		case *Ref:
			w.u2(v.Class)
			w.u2(v.NameAndType)
		case *NameAndType:
			w.u2(v.Name)
			w.u2(v.Desc)
		case *MethodHandle:
			w.u1(v.RefKind)
			w.u2(v.Ref)
		case *MethodType:
			w.u2(v.Desc)
		case *DynamicConst:
			w.u2(v.Bootstrap)
			w.u2(v.NameAndType)
		case *ModuleConst:
			w.u2(v.Name)
		case *PackageConst:
			w.u2(v.Name)
		default:
			return nil, fmt.Errorf("constant %d: unknown entry type %T", i, c)
		}
	}

	w.u2(f.Access)
	w.u2(f.ThisClass)
	w.u2(f.SuperClass)
	w.u2(uint16(len(f.Interfaces)))
	for _, idx := range f.Interfaces {
		w.u2(idx)
	}
	w.members(f.Fields)
	w.members(f.Methods)
	w.attrs(f.Attrs)

	return w.buf.Bytes(), nil
}
