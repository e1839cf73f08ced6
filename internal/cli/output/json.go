package output

import (
	"encoding/json"
	"io"

	"github.com/yndnr/jetkv/pkg/resp"
)

// JSONFormatter formats replies as JSON.
type JSONFormatter struct{}

// Format formats reply as indented JSON.
func (f *JSONFormatter) Format(w io.Writer, reply resp.Frame) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(ToReply(reply))
}
