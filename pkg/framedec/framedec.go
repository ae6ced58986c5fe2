// Package framedec decodes raw log batch blobs into message payloads.
//
// Collectors upload batches as newline-adjacent JSON envelopes shaped
// {"message": "<payload>", ...}, but two malformed encodings occur in the
// wild: whole-blob object runs concatenated without separators, and
// line-delimited objects with the occasional corrupt line. Both are
// tolerated; a blob that fits neither yields zero messages.
package framedec

import (
	"encoding/json"
	"strings"
)

// Mode reports which decode strategy produced the messages.
type Mode string

const (
	ModeEmpty   Mode = "empty"
	ModeWrapped Mode = "wrapped"
	ModeLines   Mode = "lines"
)

type envelope struct {
	Message string `json:"message"`
}

// Decode extracts the ordered message payloads from a batch blob. Wrapper
// repair is attempted first; on failure each line is parsed independently
// and bad lines are dropped. Decode never fails: an unparsable blob comes
// back as zero messages for the caller to flag.
func Decode(blob []byte) ([]string, Mode) {
	trimmed := strings.TrimSpace(string(blob))
	if trimmed == "" {
		return nil, ModeEmpty
	}
	if msgs, ok := decodeWrapped(trimmed); ok {
		return msgs, ModeWrapped
	}
	return decodeLines(trimmed), ModeLines
}

// decodeWrapped repairs abutting objects ("}{" runs) into a JSON array and
// projects the message field of each element.
func decodeWrapped(trimmed string) ([]string, bool) {
	repaired := "[" + strings.ReplaceAll(trimmed, "}{", "},{") + "]"
	var entries []envelope
	if err := json.Unmarshal([]byte(repaired), &entries); err != nil {
		return nil, false
	}
	msgs := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Message != "" {
			msgs = append(msgs, e.Message)
		}
	}
	return msgs, true
}

// decodeLines parses each line as its own envelope. A line that fails to
// parse or carries no message is skipped; no single line aborts the batch.
func decodeLines(trimmed string) []string {
	var msgs []string
	for _, line := range strings.Split(trimmed, "\n") {
		var e envelope
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		if e.Message != "" {
			msgs = append(msgs, e.Message)
		}
	}
	return msgs
}
