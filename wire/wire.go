// Package wire is the shared little-endian binary encoding used to
// serialize a Compiled program and an in-flight RunProgress (spec.md
// §6.3 "Binary... any efficient little-endian binary encoding"),
// grounded on the teacher's vm_encoder.go append-to-a-byte-slice style,
// generalized from a fixed opcode stream to the handful of value shapes
// the interpreter's heap and evaluator need to round-trip.
package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encoder appends fields to a growing byte slice.
type Encoder struct {
	buf []byte
}

func NewEncoder() *Encoder { return &Encoder{} }

func (e *Encoder) Bytes() []byte { return e.buf }

func (e *Encoder) U8(v uint8) { e.buf = append(e.buf, v) }

func (e *Encoder) Bool(v bool) {
	if v {
		e.U8(1)
	} else {
		e.U8(0)
	}
}

func (e *Encoder) I32(v int32) { e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(v)) }

func (e *Encoder) I64(v int64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, uint64(v)) }

func (e *Encoder) F64(v float64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(v)) }

// Blob writes a length-prefixed byte string.
func (e *Encoder) Blob(b []byte) {
	e.I32(int32(len(b)))
	e.buf = append(e.buf, b...)
}

func (e *Encoder) Str(s string) { e.Blob([]byte(s)) }

// Decoder reads fields back out of a byte slice written by Encoder, in
// the same order they were written.
type Decoder struct {
	buf []byte
	pos int
}

func NewDecoder(b []byte) *Decoder { return &Decoder{buf: b} }

func (d *Decoder) Done() bool { return d.pos >= len(d.buf) }

func (d *Decoder) need(n int) error {
	if d.pos+n > len(d.buf) {
		return fmt.Errorf("wire: truncated input (need %d bytes at offset %d, have %d)", n, d.pos, len(d.buf))
	}
	return nil
}

func (d *Decoder) U8() (uint8, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	v := d.buf[d.pos]
	d.pos++
	return v, nil
}

func (d *Decoder) Bool() (bool, error) {
	v, err := d.U8()
	return v != 0, err
}

func (d *Decoder) I32() (int32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	v := int32(binary.LittleEndian.Uint32(d.buf[d.pos:]))
	d.pos += 4
	return v, nil
}

func (d *Decoder) I64() (int64, error) {
	if err := d.need(8); err != nil {
		return 0, err
	}
	v := int64(binary.LittleEndian.Uint64(d.buf[d.pos:]))
	d.pos += 8
	return v, nil
}

func (d *Decoder) F64() (float64, error) {
	u, err := d.I64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(uint64(u)), nil
}

func (d *Decoder) Blob() ([]byte, error) {
	n, err := d.I32()
	if err != nil {
		return nil, err
	}
	if err := d.need(int(n)); err != nil {
		return nil, err
	}
	out := append([]byte(nil), d.buf[d.pos:d.pos+int(n)]...)
	d.pos += int(n)
	return out, nil
}

func (d *Decoder) Str() (string, error) {
	b, err := d.Blob()
	return string(b), err
}
