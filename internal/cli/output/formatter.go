package output

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/yndnr/jetkv/pkg/resp"
)

// Format represents the output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

// Formatter writes a reply frame to w.
type Formatter interface {
	Format(w io.Writer, reply resp.Frame) error
}

// NewFormatter creates a formatter for the given format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TextFormatter{}
	}
}

// Reply is the structured form of a frame used by the json and yaml
// formatters.
type Reply struct {
	Type  string  `json:"type" yaml:"type"`
	Value any     `json:"value,omitempty" yaml:"value,omitempty"`
	Items []Reply `json:"items,omitempty" yaml:"items,omitempty"`
}

// ToReply converts a frame to its structured form. Null bulk strings have
// type "nil" and no value; binary bulk payloads are kept as strings with
// invalid UTF-8 replaced.
func ToReply(f resp.Frame) Reply {
	switch f.Kind {
	case resp.KindSimpleString, resp.KindError:
		return Reply{Type: f.Kind.String(), Value: f.Str}
	case resp.KindInteger:
		return Reply{Type: f.Kind.String(), Value: f.Int}
	case resp.KindBulkString:
		if f.Null {
			return Reply{Type: "nil"}
		}
		return Reply{Type: f.Kind.String(), Value: strings.ToValidUTF8(string(f.Bulk), "�")}
	case resp.KindArray:
		items := make([]Reply, len(f.Array))
		for i, item := range f.Array {
			items[i] = ToReply(item)
		}
		return Reply{Type: f.Kind.String(), Items: items}
	default:
		return Reply{Type: f.Kind.String()}
	}
}

// TextFormatter renders replies the way redis-cli does.
type TextFormatter struct{}

// Format writes the text rendering of reply followed by a newline.
func (f *TextFormatter) Format(w io.Writer, reply resp.Frame) error {
	var b strings.Builder
	writeText(&b, reply, "")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeText(b *strings.Builder, f resp.Frame, indent string) {
	switch f.Kind {
	case resp.KindSimpleString:
		b.WriteString(f.Str)
	case resp.KindError:
		b.WriteString("(error) ")
		b.WriteString(f.Str)
	case resp.KindInteger:
		fmt.Fprintf(b, "(integer) %d", f.Int)
	case resp.KindBulkString:
		if f.Null {
			b.WriteString("(nil)")
		} else {
			b.WriteString(quote(f.Bulk))
		}
	case resp.KindArray:
		if len(f.Array) == 0 {
			b.WriteString("(empty array)")
			break
		}
		width := len(fmt.Sprint(len(f.Array)))
		for i, item := range f.Array {
			if i > 0 {
				b.WriteString(indent)
			}
			prefix := fmt.Sprintf("%*d) ", width, i+1)
			b.WriteString(prefix)
			writeText(b, item, indent+strings.Repeat(" ", len(prefix)))
			if i < len(f.Array)-1 {
				b.WriteByte('\n')
			}
		}
		if indent != "" {
			return
		}
	default:
		fmt.Fprintf(b, "(%s)", f.Kind)
	}
	if indent == "" {
		b.WriteByte('\n')
	}
}

// quote renders a bulk payload in double quotes, escaping control bytes
// and invalid UTF-8 as \xNN.
func quote(p []byte) string {
	var b strings.Builder
	b.WriteByte('"')
	for len(p) > 0 {
		r, size := utf8.DecodeRune(p)
		switch {
		case r == utf8.RuneError && size == 1:
			fmt.Fprintf(&b, "\\x%02x", p[0])
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString("\\n")
		case r == '\r':
			b.WriteString("\\r")
		case r == '\t':
			b.WriteString("\\t")
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, "\\x%02x", r)
		default:
			b.WriteRune(r)
		}
		p = p[size:]
	}
	b.WriteByte('"')
	return b.String()
}
