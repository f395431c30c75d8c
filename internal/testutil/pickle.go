// Package testutil builds fixtures shared by the package tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Pickler writes a protocol 2 pickle stream opcode by opcode.
//
// It covers the handful of opcodes a skymap fixture needs: dicts, lists,
// tuples, ints, floats, strings, None and class instances.
type Pickler struct {
	buf bytes.Buffer
}

// NewPickler starts a protocol 2 stream.
func NewPickler() *Pickler {
	p := &Pickler{}
	p.buf.Write([]byte{0x80, 2})
	return p
}

// Bytes terminates the stream and returns it.
func (p *Pickler) Bytes() []byte {
	p.buf.WriteByte('.')
	return p.buf.Bytes()
}

// Str pushes a unicode string.
func (p *Pickler) Str(s string) *Pickler {
	p.buf.WriteByte('X')
	binary.Write(&p.buf, binary.LittleEndian, uint32(len(s)))
	p.buf.WriteString(s)
	return p
}

// Int pushes a 32-bit signed integer.
func (p *Pickler) Int(i int) *Pickler {
	p.buf.WriteByte('J')
	binary.Write(&p.buf, binary.LittleEndian, int32(i))
	return p
}

// Float pushes a double.
func (p *Pickler) Float(f float64) *Pickler {
	p.buf.WriteByte('G')
	binary.Write(&p.buf, binary.BigEndian, math.Float64bits(f))
	return p
}

// None pushes None.
func (p *Pickler) None() *Pickler {
	p.buf.WriteByte('N')
	return p
}

// Dict pushes a dict whose items are pushed by body as alternating keys and values.
func (p *Pickler) Dict(body func()) *Pickler {
	p.buf.WriteByte('}')
	p.buf.WriteByte('(')
	body()
	p.buf.WriteByte('u')
	return p
}

// List pushes a list whose elements are pushed by body.
func (p *Pickler) List(body func()) *Pickler {
	p.buf.WriteByte(']')
	p.buf.WriteByte('(')
	body()
	p.buf.WriteByte('e')
	return p
}

// Tuple pushes a tuple whose elements are pushed by body.
func (p *Pickler) Tuple(body func()) *Pickler {
	p.buf.WriteByte('(')
	body()
	p.buf.WriteByte('t')
	return p
}

// Floats pushes a tuple of floats.
func (p *Pickler) Floats(fs ...float64) *Pickler {
	return p.Tuple(func() {
		for _, f := range fs {
			p.Float(f)
		}
	})
}

// Object pushes an instance of module.name built with no constructor
// arguments and the dict state pushed by state.
func (p *Pickler) Object(module, name string, state func()) *Pickler {
	p.buf.WriteByte('c')
	p.buf.WriteString(module + "\n" + name + "\n")
	p.buf.WriteByte(')')
	p.buf.WriteByte(0x81)
	p.Dict(state)
	p.buf.WriteByte('b')
	return p
}

// Key pushes a string key followed by the value pushed by value.
func (p *Pickler) Key(k string, value func()) *Pickler {
	p.Str(k)
	value()
	return p
}

// FixtureTract describes one tract of a pickled skymap fixture.
type FixtureTract struct {
	ID       int
	Ring     int // Omitted from the pickle when negative
	Vertices [][]float64
}

// SkymapPickle encodes tracts as the dict form of a legacy skymap, with
// ring_sizes when sizes is non-nil.
func SkymapPickle(tracts []FixtureTract, sizes []int) []byte {
	p := NewPickler()
	p.Dict(func() {
		p.Key("tracts", func() {
			p.List(func() {
				for _, t := range tracts {
					p.Dict(func() { tractItems(p, t, "id", "vertices", "ring") })
				}
			})
		})
		if sizes != nil {
			p.Key("ring_sizes", func() {
				p.List(func() {
					for _, n := range sizes {
						p.Int(n)
					}
				})
			})
		}
	})
	return p.Bytes()
}

// SkymapObjectPickle encodes tracts the way the legacy RingsSkyMap classes
// pickle themselves: class instances with underscore-prefixed attributes.
func SkymapObjectPickle(tracts []FixtureTract) []byte {
	p := NewPickler()
	p.Object("lsst.skymap.ringsSkyMap", "RingsSkyMap", func() {
		p.Key("_tractInfoList", func() {
			p.List(func() {
				for _, t := range tracts {
					p.Object("lsst.skymap.tractInfo", "TractInfo", func() {
						tractItems(p, t, "_id", "_vertexCoordList", "_ring")
					})
				}
			})
		})
	})
	return p.Bytes()
}

func tractItems(p *Pickler, t FixtureTract, idKey, vertexKey, ringKey string) {
	p.Key(idKey, func() { p.Int(t.ID) })
	if t.Ring >= 0 {
		p.Key(ringKey, func() { p.Int(t.Ring) })
	}
	p.Key(vertexKey, func() {
		p.List(func() {
			for _, v := range t.Vertices {
				p.Floats(v...)
			}
		})
	})
}
