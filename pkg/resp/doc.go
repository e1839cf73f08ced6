// Package resp implements the RESP2 wire format used by jetkv.
//
// The codec is incremental and buffer oriented:
//
//   - Parser.Decode inspects a byte slice and returns one complete Frame
//     together with the number of bytes it occupied, ErrIncomplete when the
//     slice holds only a prefix of a frame, or an error wrapping ErrProtocol
//     or ErrLimitExceeded when the bytes can never form a valid frame.
//   - AppendFrame, Encode and WriteFrame serialize a Frame without I/O
//     beyond the supplied writer.
//
// ErrIncomplete never consumes input: callers keep the unread tail and call
// Decode again once more bytes have arrived. Decoding a partial frame does
// not allocate.
//
// Wire grammar (type byte is case-sensitive):
//
//	+<text>\r\n              simple string
//	-<text>\r\n              error
//	:<int>\r\n               integer
//	$<len>\r\n<bytes>\r\n    bulk string ($-1\r\n is null)
//	*<n>\r\n<frame>...       array of n frames
package resp
