package resp

import (
	"bytes"
	"errors"
	"fmt"
	"math"
)

// Protocol limits. They bound memory a single peer can make the server
// reserve before a frame is complete.
const (
	// DefaultMaxArrayLen limits the element count of one array.
	DefaultMaxArrayLen = 1024 * 1024

	// DefaultMaxBulkLen limits the payload of one bulk string (512MB).
	DefaultMaxBulkLen = 512 * 1024 * 1024

	// DefaultMaxLineLen limits a CRLF-terminated header or simple line (64KB).
	DefaultMaxLineLen = 64 * 1024

	// DefaultMaxDepth limits array nesting.
	DefaultMaxDepth = 32
)

var (
	// ErrIncomplete means the buffer holds only a prefix of a frame.
	// It is not a failure: retry with more bytes.
	ErrIncomplete = errors.New("resp: incomplete frame")

	// ErrProtocol marks bytes that can never form a valid frame.
	ErrProtocol = errors.New("resp: protocol error")

	// ErrLimitExceeded marks a frame that exceeds a Parser limit.
	ErrLimitExceeded = errors.New("resp: limit exceeded")
)

// Parser decodes frames from a byte slice. A zero field falls back to the
// matching Default* limit. Parser holds no state between calls and is safe
// for concurrent use.
type Parser struct {
	MaxArrayLen int
	MaxBulkLen  int
	MaxLineLen  int
	MaxDepth    int
}

var defaultParser Parser

// Decode decodes one frame from the start of buf using default limits.
func Decode(buf []byte) (Frame, int, error) {
	return defaultParser.Decode(buf)
}

// Decode decodes one frame from the start of buf.
//
// On success it returns the frame and the number of bytes consumed.
// It returns ErrIncomplete if buf ends before the frame does, and an error
// wrapping ErrProtocol or ErrLimitExceeded if buf is malformed. In both
// cases zero bytes are consumed. The returned frame does not alias buf.
func (p *Parser) Decode(buf []byte) (Frame, int, error) {
	// First pass validates and locates the end without allocating, so a
	// partial frame costs nothing but the scan.
	if _, _, err := p.decode(buf, 0, 0, false); err != nil {
		return Frame{}, 0, err
	}
	f, n, err := p.decode(buf, 0, 0, true)
	if err != nil {
		return Frame{}, 0, err
	}
	return f, n, nil
}

func (p *Parser) decode(buf []byte, pos, depth int, build bool) (Frame, int, error) {
	if pos >= len(buf) {
		return Frame{}, 0, ErrIncomplete
	}

	kind := Kind(buf[pos])
	switch kind {
	case KindSimpleString, KindError, KindInteger, KindBulkString, KindArray:
	default:
		return Frame{}, 0, fmt.Errorf("%w: unexpected type byte %q", ErrProtocol, buf[pos])
	}

	line, next, err := p.readLine(buf, pos+1)
	if err != nil {
		return Frame{}, 0, err
	}

	switch kind {
	case KindSimpleString, KindError:
		if !build {
			return Frame{Kind: kind}, next, nil
		}
		return Frame{Kind: kind, Str: string(line)}, next, nil

	case KindInteger:
		n, ok := parseInt(line)
		if !ok {
			return Frame{}, 0, fmt.Errorf("%w: invalid integer", ErrProtocol)
		}
		return Integer(n), next, nil

	case KindBulkString:
		n, ok := parseInt(line)
		if !ok {
			return Frame{}, 0, fmt.Errorf("%w: invalid bulk length", ErrProtocol)
		}
		if n == -1 {
			return NullBulk(), next, nil
		}
		if n < 0 {
			return Frame{}, 0, fmt.Errorf("%w: invalid bulk length %d", ErrProtocol, n)
		}
		if n > int64(p.maxBulkLen()) {
			return Frame{}, 0, fmt.Errorf("%w: bulk length %d exceeds limit %d", ErrLimitExceeded, n, p.maxBulkLen())
		}
		end := next + int(n)
		if len(buf) < end+2 {
			return Frame{}, 0, ErrIncomplete
		}
		if buf[end] != '\r' || buf[end+1] != '\n' {
			return Frame{}, 0, fmt.Errorf("%w: invalid bulk terminator", ErrProtocol)
		}
		if !build {
			return Frame{Kind: kind}, end + 2, nil
		}
		payload := make([]byte, n)
		copy(payload, buf[next:end])
		return Frame{Kind: kind, Bulk: payload}, end + 2, nil

	default: // KindArray
		n, ok := parseInt(line)
		if !ok || n < 0 {
			return Frame{}, 0, fmt.Errorf("%w: invalid array length", ErrProtocol)
		}
		if n > int64(p.maxArrayLen()) {
			return Frame{}, 0, fmt.Errorf("%w: array length %d exceeds limit %d", ErrLimitExceeded, n, p.maxArrayLen())
		}
		if n > 0 && depth+1 > p.maxDepth() {
			return Frame{}, 0, fmt.Errorf("%w: nesting depth exceeds limit %d", ErrLimitExceeded, p.maxDepth())
		}

		var items []Frame
		if build {
			items = make([]Frame, 0, n)
		}
		for i := int64(0); i < n; i++ {
			item, after, err := p.decode(buf, next, depth+1, build)
			if err != nil {
				return Frame{}, 0, err
			}
			if build {
				items = append(items, item)
			}
			next = after
		}
		if !build {
			return Frame{Kind: kind}, next, nil
		}
		return Frame{Kind: kind, Array: items}, next, nil
	}
}

// readLine returns the bytes between start and the next CRLF, and the offset
// just past the CRLF.
func (p *Parser) readLine(buf []byte, start int) ([]byte, int, error) {
	rest := buf[start:]
	i := bytes.IndexByte(rest, '\n')
	if i < 0 {
		if len(rest) > p.maxLineLen() {
			return nil, 0, fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, p.maxLineLen())
		}
		return nil, 0, ErrIncomplete
	}
	if i == 0 || rest[i-1] != '\r' {
		return nil, 0, fmt.Errorf("%w: missing CRLF", ErrProtocol)
	}
	if i-1 > p.maxLineLen() {
		return nil, 0, fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, p.maxLineLen())
	}
	return rest[:i-1], start + i + 1, nil
}

// parseInt parses a signed decimal with no leading '+' and no whitespace.
func parseInt(b []byte) (int64, bool) {
	if len(b) == 0 || len(b) > 20 {
		return 0, false
	}
	neg := false
	if b[0] == '-' {
		neg = true
		b = b[1:]
		if len(b) == 0 {
			return 0, false
		}
	}
	limit := uint64(math.MaxInt64)
	if neg {
		limit++
	}
	var u uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		d := uint64(c - '0')
		if u > (limit-d)/10 {
			return 0, false
		}
		u = u*10 + d
	}
	if neg {
		return -int64(u), true
	}
	return int64(u), true
}

func (p *Parser) maxArrayLen() int {
	if p.MaxArrayLen > 0 {
		return p.MaxArrayLen
	}
	return DefaultMaxArrayLen
}

func (p *Parser) maxBulkLen() int {
	if p.MaxBulkLen > 0 {
		return p.MaxBulkLen
	}
	return DefaultMaxBulkLen
}

func (p *Parser) maxLineLen() int {
	if p.MaxLineLen > 0 {
		return p.MaxLineLen
	}
	return DefaultMaxLineLen
}

func (p *Parser) maxDepth() int {
	if p.MaxDepth > 0 {
		return p.MaxDepth
	}
	return DefaultMaxDepth
}
