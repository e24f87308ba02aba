package vm

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/fizz-lang/fizz/internal/object"
)

// Bytecode file format (.fzb):
// - Magic (4 bytes): 'F' 'Z' 'B' <epoch>
// - Version (1 byte)
// - Canonical-CBOR encoded chunk (deterministic encoding)

var bundleMagic = [4]byte{'F', 'Z', 'B', 0x01}

const bundleVersion byte = 0x01

var ErrBundleTooShort = errors.New("bytecode data too short")
var ErrBadMagic = errors.New("invalid magic number, expected FZB")
var ErrUnsupportedVersion = errors.New("unsupported bytecode version")

// cborEncMode uses canonical options so the same chunk always encodes to
// the same bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Constant pool entries are a closed set (literals, interned names and
// nested compiled functions), so the wire form tags each entry explicitly
// instead of relying on reflection over the Object interface.
const (
	wireInt uint8 = iota
	wireFloat
	wireString
	wireFunction
)

type wireConstant struct {
	Kind  uint8         `cbor:"1,keyasint"`
	Int   int64         `cbor:"2,keyasint,omitempty"`
	Float float64       `cbor:"3,keyasint,omitempty"`
	Str   string        `cbor:"4,keyasint,omitempty"`
	Fn    *wireCompiled `cbor:"5,keyasint,omitempty"`
}

type wireCompiled struct {
	Name         string     `cbor:"1,keyasint"`
	UpvalueCount int        `cbor:"2,keyasint"`
	Chunk        *wireChunk `cbor:"3,keyasint"`
}

type wireChunk struct {
	Code      []byte         `cbor:"1,keyasint"`
	Constants []wireConstant `cbor:"2,keyasint"`
	Lines     []int          `cbor:"3,keyasint"`
	Columns   []int          `cbor:"4,keyasint"`
	File      string         `cbor:"5,keyasint,omitempty"`
}

// EncodeBundle serializes a compiled chunk into the .fzb format.
func EncodeBundle(chunk *Chunk) ([]byte, error) {
	wire, err := chunkToWire(chunk)
	if err != nil {
		return nil, err
	}
	payload, err := cborEncMode.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("bundle encoding failed: %w", err)
	}

	out := make([]byte, 0, 5+len(payload))
	out = append(out, bundleMagic[:]...)
	out = append(out, bundleVersion)
	out = append(out, payload...)
	return out, nil
}

// DecodeBundle reads .fzb data back into an executable chunk.
// Short data, a bad magic number and an unsupported version are distinct
// errors so callers can tell truncation from corruption from skew.
func DecodeBundle(data []byte) (*Chunk, error) {
	if len(data) < 5 {
		return nil, ErrBundleTooShort
	}
	if data[0] != bundleMagic[0] || data[1] != bundleMagic[1] ||
		data[2] != bundleMagic[2] || data[3] != bundleMagic[3] {
		return nil, ErrBadMagic
	}
	if data[4] != bundleVersion {
		return nil, fmt.Errorf("%w: %d (this build supports version %d)",
			ErrUnsupportedVersion, data[4], bundleVersion)
	}

	var wire wireChunk
	if err := cbor.Unmarshal(data[5:], &wire); err != nil {
		return nil, fmt.Errorf("bundle decoding failed: %w", err)
	}
	return wireToChunk(&wire)
}

func chunkToWire(chunk *Chunk) (*wireChunk, error) {
	constants := make([]wireConstant, len(chunk.Constants))
	for i, c := range chunk.Constants {
		switch v := c.(type) {
		case *object.Integer:
			constants[i] = wireConstant{Kind: wireInt, Int: v.Value}
		case *object.Float:
			constants[i] = wireConstant{Kind: wireFloat, Float: v.Value}
		case *object.String:
			constants[i] = wireConstant{Kind: wireString, Str: v.Value}
		case *CompiledFunction:
			sub, err := chunkToWire(v.Chunk)
			if err != nil {
				return nil, err
			}
			constants[i] = wireConstant{Kind: wireFunction, Fn: &wireCompiled{
				Name:         v.Name,
				UpvalueCount: v.UpvalueCount,
				Chunk:        sub,
			}}
		default:
			return nil, fmt.Errorf("cannot serialize constant %T", c)
		}
	}
	return &wireChunk{
		Code:      chunk.Code,
		Constants: constants,
		Lines:     chunk.Lines,
		Columns:   chunk.Columns,
		File:      chunk.File,
	}, nil
}

func wireToChunk(wire *wireChunk) (*Chunk, error) {
	constants := make([]object.Object, len(wire.Constants))
	for i, c := range wire.Constants {
		switch c.Kind {
		case wireInt:
			constants[i] = &object.Integer{Value: c.Int}
		case wireFloat:
			constants[i] = &object.Float{Value: c.Float}
		case wireString:
			constants[i] = &object.String{Value: c.Str}
		case wireFunction:
			if c.Fn == nil || c.Fn.Chunk == nil {
				return nil, fmt.Errorf("malformed function constant at index %d", i)
			}
			sub, err := wireToChunk(c.Fn.Chunk)
			if err != nil {
				return nil, err
			}
			constants[i] = &CompiledFunction{
				Name:         c.Fn.Name,
				UpvalueCount: c.Fn.UpvalueCount,
				Chunk:        sub,
			}
		default:
			return nil, fmt.Errorf("unknown constant kind %d at index %d", c.Kind, i)
		}
	}
	return &Chunk{
		Code:      wire.Code,
		Constants: constants,
		Lines:     wire.Lines,
		Columns:   wire.Columns,
		File:      wire.File,
	}, nil
}
