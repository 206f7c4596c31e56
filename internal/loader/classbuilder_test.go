package loader

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// classSpec describes a class file to synthesize in tests. Names use the
// internal form (`shapes/Circle`).
type classSpec struct {
	name       string
	super      string // empty for none
	access     uint16
	interfaces []string
	fields     [][2]string // name, descriptor
	methods    [][2]string // name, descriptor
}

type poolBuilder struct {
	buf   bytes.Buffer
	count uint16
	utf8  map[string]uint16
	class map[string]uint16
}

func newPoolBuilder() *poolBuilder {
	return &poolBuilder{count: 1, utf8: map[string]uint16{}, class: map[string]uint16{}}
}

func (p *poolBuilder) utf(s string) uint16 {
	if idx, ok := p.utf8[s]; ok {
		return idx
	}
	p.buf.WriteByte(tagUtf8)
	_ = binary.Write(&p.buf, binary.BigEndian, uint16(len(s)))
	p.buf.WriteString(s)
	idx := p.count
	p.count++
	p.utf8[s] = idx
	return idx
}

func (p *poolBuilder) cls(name string) uint16 {
	if idx, ok := p.class[name]; ok {
		return idx
	}
	nameIdx := p.utf(name)
	p.buf.WriteByte(tagClass)
	_ = binary.Write(&p.buf, binary.BigEndian, nameIdx)
	idx := p.count
	p.count++
	p.class[name] = idx
	return idx
}

// long adds an eight-byte constant, which takes two pool slots.
func (p *poolBuilder) long(v int64) {
	p.buf.WriteByte(tagLong)
	_ = binary.Write(&p.buf, binary.BigEndian, v)
	p.count += 2
}

func buildClass(spec classSpec) []byte {
	pool := newPoolBuilder()
	pool.long(42)
	thisIdx := pool.cls(spec.name)
	var superIdx uint16
	if spec.super != "" {
		superIdx = pool.cls(spec.super)
	}
	var ifaces []uint16
	for _, i := range spec.interfaces {
		ifaces = append(ifaces, pool.cls(i))
	}
	type member struct{ name, desc uint16 }
	var fields, methods []member
	for _, f := range spec.fields {
		fields = append(fields, member{pool.utf(f[0]), pool.utf(f[1])})
	}
	for _, m := range spec.methods {
		methods = append(methods, member{pool.utf(m[0]), pool.utf(m[1])})
	}
	codeAttr := pool.utf("Code")

	var out bytes.Buffer
	w := func(v any) { _ = binary.Write(&out, binary.BigEndian, v) }
	w(uint32(classMagic))
	w(uint16(0))
	w(uint16(61))
	w(pool.count)
	out.Write(pool.buf.Bytes())
	access := spec.access
	if access == 0 {
		access = 0x0021
	}
	w(access)
	w(thisIdx)
	w(superIdx)
	w(uint16(len(ifaces)))
	for _, i := range ifaces {
		w(i)
	}
	w(uint16(len(fields)))
	for _, f := range fields {
		w(uint16(0x0002))
		w(f.name)
		w(f.desc)
		w(uint16(0))
	}
	w(uint16(len(methods)))
	for _, m := range methods {
		w(uint16(0x0001))
		w(m.name)
		w(m.desc)
		// one Code attribute with an opaque body
		w(uint16(1))
		w(codeAttr)
		w(uint32(3))
		out.Write([]byte{0x2a, 0xb1, 0x00})
	}
	w(uint16(0)) // class attributes
	return out.Bytes()
}

func writeClass(t *testing.T, dir string, file string, spec classSpec) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, file), buildClass(spec), 0o644); err != nil {
		t.Fatal(err)
	}
}
