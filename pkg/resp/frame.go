package resp

import (
	"bytes"
	"strconv"
)

// Kind identifies the variant of a Frame. Its value is the wire type byte.
type Kind byte

// Frame kinds.
const (
	KindSimpleString Kind = '+'
	KindError        Kind = '-'
	KindInteger      Kind = ':'
	KindBulkString   Kind = '$'
	KindArray        Kind = '*'
)

// String returns a readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindSimpleString:
		return "simple-string"
	case KindError:
		return "error"
	case KindInteger:
		return "integer"
	case KindBulkString:
		return "bulk-string"
	case KindArray:
		return "array"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Frame is one decoded protocol unit.
//
// Only the fields relevant to Kind are meaningful:
//   - SimpleString, Error: Str
//   - Integer: Int
//   - BulkString: Bulk, or Null for the null bulk string
//   - Array: Array (length fixed once decoded)
type Frame struct {
	Kind  Kind
	Str   string
	Int   int64
	Bulk  []byte
	Null  bool
	Array []Frame
}

// SimpleString returns a status reply frame.
func SimpleString(s string) Frame {
	return Frame{Kind: KindSimpleString, Str: s}
}

// Error returns an error reply frame.
func Error(msg string) Frame {
	return Frame{Kind: KindError, Str: msg}
}

// Integer returns an integer reply frame.
func Integer(n int64) Frame {
	return Frame{Kind: KindInteger, Int: n}
}

// Bulk returns a bulk string frame holding b. A nil b is stored as an empty
// payload; use NullBulk for the null bulk string.
func Bulk(b []byte) Frame {
	if b == nil {
		b = []byte{}
	}
	return Frame{Kind: KindBulkString, Bulk: b}
}

// BulkString returns a bulk string frame holding s.
func BulkString(s string) Frame {
	return Frame{Kind: KindBulkString, Bulk: []byte(s)}
}

// NullBulk returns the null bulk string ($-1).
func NullBulk() Frame {
	return Frame{Kind: KindBulkString, Null: true}
}

// Array returns an array frame of items.
func Array(items ...Frame) Frame {
	if items == nil {
		items = []Frame{}
	}
	return Frame{Kind: KindArray, Array: items}
}

// Command builds a request frame: an array of bulk strings.
func Command(args ...string) Frame {
	items := make([]Frame, len(args))
	for i, a := range args {
		items[i] = BulkString(a)
	}
	return Array(items...)
}

// IsError reports whether f is an error reply.
func (f Frame) IsError() bool {
	return f.Kind == KindError
}

// IsNull reports whether f is the null bulk string.
func (f Frame) IsNull() bool {
	return f.Kind == KindBulkString && f.Null
}

// Equal reports whether f and other describe the same frame.
func (f Frame) Equal(other Frame) bool {
	if f.Kind != other.Kind {
		return false
	}
	switch f.Kind {
	case KindSimpleString, KindError:
		return f.Str == other.Str
	case KindInteger:
		return f.Int == other.Int
	case KindBulkString:
		if f.Null || other.Null {
			return f.Null == other.Null
		}
		return bytes.Equal(f.Bulk, other.Bulk)
	case KindArray:
		if len(f.Array) != len(other.Array) {
			return false
		}
		for i := range f.Array {
			if !f.Array[i].Equal(other.Array[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}
