package poller

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"
)

const (
	fieldResult  = "result"
	fieldCookie  = "pagedResultsCookie"
	fieldPayload = "payload"
)

// DecodeError reports a response body that does not match the tail
// envelope.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode tail response: %s: %v", e.Reason, e.Err)
	}
	return "decode tail response: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err is or wraps a DecodeError.
func IsDecodeError(err error) bool {
	var decodeErr *DecodeError
	return errors.As(err, &decodeErr)
}

// Decode parses a tail response body. Envelope fields other than result and
// pagedResultsCookie are ignored; payloads are kept as raw JSON.
func Decode(body []byte) (Response, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Response{}, &DecodeError{Reason: "empty body"}
	}
	if trimmed[0] != '{' {
		return Response{}, &DecodeError{Reason: "body is not a JSON object"}
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return Response{}, &DecodeError{Reason: "invalid JSON", Err: err}
	}

	rawResult, ok := envelope[fieldResult]
	if !ok {
		return Response{}, &DecodeError{Reason: "missing " + fieldResult}
	}
	rawCookie, ok := envelope[fieldCookie]
	if !ok {
		return Response{}, &DecodeError{Reason: "missing " + fieldCookie}
	}

	var items []map[string]json.RawMessage
	if err := json.Unmarshal(rawResult, &items); err != nil || isNull(rawResult) {
		return Response{}, &DecodeError{Reason: fieldResult + " is not an array of objects", Err: err}
	}

	resp := Response{Entries: make([]Entry, 0, len(items))}
	for i, item := range items {
		payload, ok := item[fieldPayload]
		if !ok {
			return Response{}, &DecodeError{Reason: fmt.Sprintf("%s[%d] missing %s", fieldResult, i, fieldPayload)}
		}
		resp.Entries = append(resp.Entries, Entry{Payload: payload})
	}

	if !isNull(rawCookie) {
		var cookie string
		if err := json.Unmarshal(rawCookie, &cookie); err != nil {
			return Response{}, &DecodeError{Reason: fieldCookie + " is not a string", Err: err}
		}
		// encoding/json substitutes U+FFFD for these, which would forward a
		// cursor the server never issued.
		if !exactString(rawCookie) {
			return Response{}, &DecodeError{Reason: fieldCookie + " has invalid UTF-8 or an unpaired surrogate"}
		}
		if cookie != "" {
			resp.NextCursor = cookie
			resp.HasNext = true
		}
	}
	return resp, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// exactString reports whether the JSON string literal raw decodes without
// replacement characters being substituted.
func exactString(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if !utf8.Valid(raw) {
		return false
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' {
			continue
		}
		i++
		if i >= len(raw) || raw[i] != 'u' {
			continue
		}
		r, ok := hexRune(raw, i+1)
		if !ok {
			return false
		}
		i += 4
		switch {
		case utf16.IsSurrogate(r) && r < 0xDC00:
			if i+2 >= len(raw) || raw[i+1] != '\\' || raw[i+2] != 'u' {
				return false
			}
			low, ok := hexRune(raw, i+3)
			if !ok || utf16.DecodeRune(r, low) == utf8.RuneError {
				return false
			}
			i += 6
		case utf16.IsSurrogate(r):
			return false
		}
	}
	return true
}

func hexRune(raw []byte, at int) (rune, bool) {
	if at+4 > len(raw) {
		return 0, false
	}
	v, err := strconv.ParseUint(string(raw[at:at+4]), 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(v), true
}
