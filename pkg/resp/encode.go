package resp

import (
	"bufio"
	"strconv"
)

// invalidFrameReply is emitted for a Frame whose Kind is not a known variant.
const invalidFrameReply = "ERR invalid reply frame"

// AppendFrame appends the wire encoding of f to dst and returns the result.
func AppendFrame(dst []byte, f Frame) []byte {
	switch f.Kind {
	case KindSimpleString, KindError:
		dst = append(dst, byte(f.Kind))
		dst = append(dst, f.Str...)
		return append(dst, '\r', '\n')

	case KindInteger:
		dst = append(dst, ':')
		dst = strconv.AppendInt(dst, f.Int, 10)
		return append(dst, '\r', '\n')

	case KindBulkString:
		if f.Null {
			return append(dst, "$-1\r\n"...)
		}
		dst = append(dst, '$')
		dst = strconv.AppendInt(dst, int64(len(f.Bulk)), 10)
		dst = append(dst, '\r', '\n')
		dst = append(dst, f.Bulk...)
		return append(dst, '\r', '\n')

	case KindArray:
		dst = append(dst, '*')
		dst = strconv.AppendInt(dst, int64(len(f.Array)), 10)
		dst = append(dst, '\r', '\n')
		for _, item := range f.Array {
			dst = AppendFrame(dst, item)
		}
		return dst

	default:
		return AppendFrame(dst, Error(invalidFrameReply))
	}
}

// Encode returns the wire encoding of f.
func Encode(f Frame) []byte {
	return AppendFrame(nil, f)
}

// WriteFrame writes the encoding of f to w. The caller flushes.
func WriteFrame(w *bufio.Writer, f Frame) error {
	_, err := w.Write(AppendFrame(w.AvailableBuffer(), f))
	return err
}
