package logger

import (
	"log/slog"
	"strconv"
	"strings"
)

// MaxPayloadLen is the longest payload attribute logged verbatim.
const MaxPayloadLen = 64

// Attribute keys that carry client data.
var payloadKeys = []string{
	"value",
	"payload",
	"args",
}

// truncatePayload shortens client-supplied data so a large SET value cannot
// flood the log. The original length is kept in the marker.
func truncatePayload(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = truncatePayload(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}

	if a.Value.Kind() != slog.KindString || !isPayloadKey(a.Key) {
		return a
	}
	return slog.String(a.Key, Truncate(a.Value.String()))
}

// Truncate cuts s to MaxPayloadLen bytes, appending the original length.
func Truncate(s string) string {
	if len(s) <= MaxPayloadLen {
		return s
	}
	return s[:MaxPayloadLen] + "...(" + strconv.Itoa(len(s)) + " bytes)"
}

func isPayloadKey(key string) bool {
	key = strings.ToLower(key)
	for _, k := range payloadKeys {
		if key == k {
			return true
		}
	}
	return false
}
