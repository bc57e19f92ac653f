package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// BinaryEncoder saves Inspectable values into a length-prefixed, little-
// endian wire format: every object is a uint32 byte-length prefix followed
// by its fields in declaration order; signed integers use zig-zag varints
// (spec §6's Inspector binary codec).
type BinaryEncoder struct {
	out *bytes.Buffer
}

// NewBinaryEncoder creates an encoder writing to a fresh buffer.
func NewBinaryEncoder() *BinaryEncoder {
	return &BinaryEncoder{out: &bytes.Buffer{}}
}

// Bytes returns everything encoded so far.
func (e *BinaryEncoder) Bytes() []byte { return e.out.Bytes() }

// Encode is sugar for v.Inspect(e) followed by Bytes().
func Encode(v Inspectable) ([]byte, error) {
	e := NewBinaryEncoder()
	if err := v.Inspect(e); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

func (e *BinaryEncoder) Object(name string) *ObjectVisitor {
	return newObjectVisitor(name, e.encodeFields)
}

func (e *BinaryEncoder) encodeFields(_ string, specs []*FieldSpec) error {
	body := &bytes.Buffer{}
	sub := &BinaryEncoder{out: body}
	for _, f := range specs {
		if err := sub.encodeValue(f.valueForEncode()); err != nil {
			return fmt.Errorf("encode field %q: %w", f.name, err)
		}
	}
	var lenPrefix [4]byte
	binary.LittleEndian.PutUint32(lenPrefix[:], uint32(body.Len()))
	e.out.Write(lenPrefix[:])
	e.out.Write(body.Bytes())
	return nil
}

func (e *BinaryEncoder) encodeValue(v any) error {
	switch x := v.(type) {
	case Inspectable:
		return x.Inspect(e)
	case bool:
		b := byte(0)
		if x {
			b = 1
		}
		e.out.WriteByte(b)
		return nil
	case int:
		return e.writeZigzag(int64(x))
	case int8:
		return e.writeZigzag(int64(x))
	case int16:
		return e.writeZigzag(int64(x))
	case int32:
		return e.writeZigzag(int64(x))
	case int64:
		return e.writeZigzag(x)
	case uint:
		return e.writeUvarint(uint64(x))
	case uint8:
		return e.writeUvarint(uint64(x))
	case uint16:
		return e.writeUvarint(uint64(x))
	case uint32:
		return e.writeUvarint(uint64(x))
	case uint64:
		return e.writeUvarint(x)
	case float32:
		return e.writeFloat(float64(x), 4)
	case float64:
		return e.writeFloat(x, 8)
	case string:
		return e.writeBytes([]byte(x))
	case []byte:
		return e.writeBytes(x)
	default:
		return fmt.Errorf("codec: unsupported binary field type %T", v)
	}
}

func (e *BinaryEncoder) writeZigzag(v int64) error {
	return e.writeUvarint(zigzagEncode(v))
}

func (e *BinaryEncoder) writeUvarint(v uint64) error {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	e.out.Write(buf[:n])
	return nil
}

func (e *BinaryEncoder) writeFloat(v float64, width int) error {
	if width == 4 {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(float32(v)))
		e.out.Write(buf[:])
		return nil
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	e.out.Write(buf[:])
	return nil
}

func (e *BinaryEncoder) writeBytes(b []byte) error {
	if err := e.writeUvarint(uint64(len(b))); err != nil {
		return err
	}
	e.out.Write(b)
	return nil
}

// BinaryDecoder loads values previously produced by BinaryEncoder.
type BinaryDecoder struct {
	in *bytes.Reader
}

// NewBinaryDecoder creates a decoder reading from data.
func NewBinaryDecoder(data []byte) *BinaryDecoder {
	return &BinaryDecoder{in: bytes.NewReader(data)}
}

// Decode is sugar for constructing a decoder and calling v.Inspect on it.
func Decode(data []byte, v Inspectable) error {
	return v.Inspect(NewBinaryDecoder(data))
}

func (d *BinaryDecoder) Object(name string) *ObjectVisitor {
	return newObjectVisitor(name, d.decodeFields)
}

func (d *BinaryDecoder) decodeFields(_ string, specs []*FieldSpec) error {
	var lenPrefix [4]byte
	if _, err := d.in.Read(lenPrefix[:]); err != nil {
		return fmt.Errorf("codec: read object length: %w", err)
	}
	bodyLen := binary.LittleEndian.Uint32(lenPrefix[:])
	body := make([]byte, bodyLen)
	if _, err := d.in.Read(body); err != nil {
		return fmt.Errorf("codec: read object body: %w", err)
	}
	sub := &BinaryDecoder{in: bytes.NewReader(body)}
	for _, f := range specs {
		if err := sub.decodeField(f); err != nil {
			return fmt.Errorf("decode field %q: %w", f.name, err)
		}
	}
	return nil
}

func (d *BinaryDecoder) decodeField(f *FieldSpec) error {
	if nested, ok := f.ptr.(Inspectable); ok && !f.hasGetSet {
		return nested.Inspect(d)
	}

	sample := f.valueForEncode()
	v, err := d.readValueLike(sample)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return f.assignFallbackOrMissing()
		}
		return err
	}
	return f.assignDecoded(v)
}

func (d *BinaryDecoder) readValueLike(sample any) (any, error) {
	switch sample.(type) {
	case bool:
		b, err := d.in.ReadByte()
		return b != 0, err
	case int:
		v, err := d.readZigzag()
		return int(v), err
	case int8:
		v, err := d.readZigzag()
		return int8(v), err
	case int16:
		v, err := d.readZigzag()
		return int16(v), err
	case int32:
		v, err := d.readZigzag()
		return int32(v), err
	case int64:
		return d.readZigzag()
	case uint:
		v, err := d.readUvarint()
		return uint(v), err
	case uint8:
		v, err := d.readUvarint()
		return uint8(v), err
	case uint16:
		v, err := d.readUvarint()
		return uint16(v), err
	case uint32:
		v, err := d.readUvarint()
		return uint32(v), err
	case uint64:
		return d.readUvarint()
	case float32:
		var buf [4]byte
		if _, err := d.in.Read(buf[:]); err != nil {
			return nil, err
		}
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[:])), nil
	case float64:
		var buf [8]byte
		if _, err := d.in.Read(buf[:]); err != nil {
			return nil, err
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(buf[:])), nil
	case string:
		b, err := d.readBytes()
		return string(b), err
	case []byte:
		return d.readBytes()
	default:
		return nil, fmt.Errorf("codec: unsupported binary field type %T", sample)
	}
}

func (d *BinaryDecoder) readZigzag() (int64, error) {
	v, err := d.readUvarint()
	if err != nil {
		return 0, err
	}
	return zigzagDecode(v), nil
}

func (d *BinaryDecoder) readUvarint() (uint64, error) {
	return binary.ReadUvarint(d.in)
}

func (d *BinaryDecoder) readBytes() ([]byte, error) {
	n, err := d.readUvarint()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := d.in.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func zigzagEncode(v int64) uint64 { return uint64((v << 1) ^ (v >> 63)) }
func zigzagDecode(v uint64) int64 { return int64(v>>1) ^ -int64(v&1) }
