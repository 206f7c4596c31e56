package loader

import (
	"encoding/binary"
	"errors"
	"fmt"

	"da/internal/typeset"
)

const classMagic = 0xCAFEBABE

// Access flags used by the loader.
const (
	accInterface  = 0x0200
	accAnnotation = 0x2000
	accEnum       = 0x4000
	accModule     = 0x8000
)

// Constant pool tags.
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

var errTruncated = errors.New("truncated class file")

// Member is a declared field or method.
type Member struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
}

// ClassFile is the structural header of a compiled class: everything up to and
// including the member tables. Code and other attributes are skipped.
type ClassFile struct {
	MajorVersion uint16
	MinorVersion uint16
	AccessFlags  uint16
	Name         string
	SuperName    string
	Interfaces   []string
	Fields       []Member
	Methods      []Member
}

type cpEntry struct {
	tag  byte
	utf8 string
	ref  uint16
}

type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.err = errTruncated
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u1() byte {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) u2() uint16 {
	if b := r.take(2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (r *reader) u4() uint32 {
	if b := r.take(4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

// ParseClassFile decodes the header of a JVM class file.
func ParseClassFile(data []byte) (*ClassFile, error) {
	r := &reader{data: data}
	if magic := r.u4(); r.err == nil && magic != classMagic {
		return nil, fmt.Errorf("bad magic 0x%08X", magic)
	}
	cf := &ClassFile{}
	cf.MinorVersion = r.u2()
	cf.MajorVersion = r.u2()

	pool, err := readConstantPool(r)
	if err != nil {
		return nil, err
	}

	cf.AccessFlags = r.u2()
	thisIdx := r.u2()
	superIdx := r.u2()
	if r.err != nil {
		return nil, r.err
	}

	if cf.Name, err = pool.className(thisIdx); err != nil {
		return nil, fmt.Errorf("this_class: %w", err)
	}
	if superIdx != 0 {
		if cf.SuperName, err = pool.className(superIdx); err != nil {
			return nil, fmt.Errorf("super_class: %w", err)
		}
	}

	count := int(r.u2())
	for i := 0; i < count && r.err == nil; i++ {
		name, err := pool.className(r.u2())
		if err != nil {
			return nil, fmt.Errorf("interface %d: %w", i, err)
		}
		cf.Interfaces = append(cf.Interfaces, name)
	}

	if cf.Fields, err = readMembers(r, pool); err != nil {
		return nil, fmt.Errorf("fields: %w", err)
	}
	if cf.Methods, err = readMembers(r, pool); err != nil {
		return nil, fmt.Errorf("methods: %w", err)
	}
	if r.err != nil {
		return nil, r.err
	}
	return cf, nil
}

type constantPool []cpEntry

func readConstantPool(r *reader) (constantPool, error) {
	count := int(r.u2())
	if r.err != nil {
		return nil, r.err
	}
	pool := make(constantPool, count)
	for i := 1; i < count; i++ {
		tag := r.u1()
		e := cpEntry{tag: tag}
		switch tag {
		case tagUtf8:
			n := int(r.u2())
			e.utf8 = string(r.take(n))
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			e.ref = r.u2()
		case tagInteger, tagFloat, tagFieldref, tagMethodref, tagInterfaceMethodref,
			tagNameAndType, tagDynamic, tagInvokeDynamic:
			r.take(4)
		case tagMethodHandle:
			r.take(3)
		case tagLong, tagDouble:
			r.take(8)
			pool[i] = e
			i++ // eight-byte constants occupy two slots
			continue
		default:
			if r.err == nil {
				return nil, fmt.Errorf("unknown constant pool tag %d at index %d", tag, i)
			}
		}
		if r.err != nil {
			return nil, r.err
		}
		pool[i] = e
	}
	return pool, r.err
}

func (p constantPool) utf8(idx uint16) (string, error) {
	if int(idx) <= 0 || int(idx) >= len(p) || p[idx].tag != tagUtf8 {
		return "", fmt.Errorf("constant #%d is not a Utf8 entry", idx)
	}
	return p[idx].utf8, nil
}

func (p constantPool) className(idx uint16) (string, error) {
	if int(idx) <= 0 || int(idx) >= len(p) || p[idx].tag != tagClass {
		return "", fmt.Errorf("constant #%d is not a Class entry", idx)
	}
	name, err := p.utf8(p[idx].ref)
	if err != nil {
		return "", err
	}
	return BinaryName(name), nil
}

func readMembers(r *reader, pool constantPool) ([]Member, error) {
	count := int(r.u2())
	members := make([]Member, 0, count)
	for i := 0; i < count && r.err == nil; i++ {
		flags := r.u2()
		nameIdx := r.u2()
		descIdx := r.u2()
		skipAttributes(r)
		if r.err != nil {
			break
		}
		name, err := pool.utf8(nameIdx)
		if err != nil {
			return nil, err
		}
		desc, err := pool.utf8(descIdx)
		if err != nil {
			return nil, err
		}
		members = append(members, Member{AccessFlags: flags, Name: name, Descriptor: desc})
	}
	return members, r.err
}

func skipAttributes(r *reader) {
	count := int(r.u2())
	for i := 0; i < count && r.err == nil; i++ {
		r.u2()
		r.take(int(r.u4()))
	}
}

// IsModuleInfo reports whether the class file describes a module rather than a type.
func (cf *ClassFile) IsModuleInfo() bool {
	return cf.AccessFlags&accModule != 0
}

// Descriptor converts the class file into a TypeDescriptor. Constructors and
// static initializers are not declared methods.
func (cf *ClassFile) Descriptor() (*typeset.TypeDescriptor, error) {
	d := &typeset.TypeDescriptor{
		Name:       cf.Name,
		SimpleName: SimpleName(cf.Name),
		Kind:       cf.kind(),
		Interfaces: append([]string(nil), cf.Interfaces...),
	}
	if cf.SuperName != typeset.RootType {
		d.Supertype = cf.SuperName
	}

	for _, f := range cf.Fields {
		t, err := FieldType(f.Descriptor)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		d.Fields = append(d.Fields, t)
	}

	for _, m := range cf.Methods {
		if m.Name == "<init>" || m.Name == "<clinit>" {
			continue
		}
		params, err := MethodParams(m.Descriptor)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", m.Name, err)
		}
		d.Methods = append(d.Methods, typeset.MethodSignature{Name: m.Name, Params: params})
	}
	return d, nil
}

func (cf *ClassFile) kind() typeset.Kind {
	switch {
	case cf.AccessFlags&(accInterface|accAnnotation) != 0:
		return typeset.KindInterface
	case cf.AccessFlags&accEnum != 0:
		return typeset.KindEnum
	case cf.SuperName == "java.lang.Record":
		return typeset.KindRecord
	default:
		return typeset.KindClass
	}
}
