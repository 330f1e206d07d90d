// Package render writes tailed payloads to a terminal or pipe.
package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"
)

// Format selects how payloads are written.
type Format string

const (
	FormatAuto   Format = "auto"
	FormatPretty Format = "pretty"
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(value))); f {
	case "":
		return FormatAuto, nil
	case FormatAuto, FormatPretty, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want auto, pretty, json, or yaml)", value)
	}
}

// Resolve replaces FormatAuto with pretty when w is a terminal and json
// otherwise.
func Resolve(f Format, w io.Writer) Format {
	if f != FormatAuto {
		return f
	}
	if file, ok := w.(*os.File); ok && isTerminal(file.Fd()) {
		return FormatPretty
	}
	return FormatJSON
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Renderer writes one payload at a time. It is safe for concurrent use.
type Renderer struct {
	mu      sync.Mutex
	w       io.Writer
	format  Format
	written int
}

// New returns a renderer for w. FormatAuto is resolved against w.
func New(w io.Writer, f Format) *Renderer {
	return &Renderer{w: w, format: Resolve(f, w)}
}

// Format reports the resolved format.
func (r *Renderer) Format() Format {
	return r.format
}

// Render writes payload, a raw JSON value, followed by a newline.
func (r *Renderer) Render(payload json.RawMessage) error {
	var (
		out []byte
		err error
	)
	switch r.format {
	case FormatJSON:
		out, err = compactJSON(payload)
	case FormatYAML:
		out, err = yamlDocument(payload)
	default:
		out, err = prettyJSON(payload)
	}
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.format == FormatYAML && r.written > 0 {
		if _, err := io.WriteString(r.w, "---\n"); err != nil {
			return err
		}
	}
	if _, err := r.w.Write(out); err != nil {
		return err
	}
	r.written++
	return nil
}

func compactJSON(payload json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, payload); err != nil {
		return nil, fmt.Errorf("render json payload: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// prettyJSON indents objects and arrays and prints string payloads as plain
// text, which is how most text log lines arrive.
func prettyJSON(payload json.RawMessage) ([]byte, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, fmt.Errorf("render text payload: %w", err)
		}
		return []byte(strings.TrimRight(text, "\n") + "\n"), nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
		return nil, fmt.Errorf("render pretty payload: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// yamlDocument converts JSON to block-style YAML. The node tree is built
// from JSON tokens so key order and number literals survive, and JSON escapes
// never reach the YAML parser.
func yamlDocument(payload json.RawMessage) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	node, err := jsonNode(dec)
	if err != nil {
		return nil, fmt.Errorf("render yaml payload: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("render yaml payload: trailing data after JSON value")
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return nil, fmt.Errorf("render yaml payload: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("render yaml payload: %w", err)
	}
	return restoreSupplementary(buf.Bytes()), nil
}

func jsonNode(dec *json.Decoder) (*yaml.Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch v := tok.(type) {
	case json.Delim:
		kind, tag, closing := yaml.MappingNode, "!!map", json.Delim('}')
		if v == '[' {
			kind, tag, closing = yaml.SequenceNode, "!!seq", json.Delim(']')
		}
		node := &yaml.Node{Kind: kind, Tag: tag}
		for dec.More() {
			if kind == yaml.MappingNode {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", keyTok)
				}
				node.Content = append(node.Content, stringNode(key))
			}
			child, err := jsonNode(dec)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, child)
		}
		end, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if end != closing {
			return nil, fmt.Errorf("unexpected token %v", end)
		}
		return node, nil
	case string:
		return stringNode(v), nil
	case json.Number:
		return &yaml.Node{Kind: yaml.ScalarNode, Value: v.String()}, nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v)}, nil
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

// stringNode double-quotes any string holding a backslash or a rune outside
// the BMP, so every backslash in the encoded output starts an escape.
func stringNode(value string) *yaml.Node {
	node := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
	if strings.ContainsRune(value, '\\') || hasSupplementary(value) {
		node.Style = yaml.DoubleQuotedStyle
	}
	return node
}

func hasSupplementary(value string) bool {
	for _, r := range value {
		if r > 0xFFFF {
			return true
		}
	}
	return false
}

// restoreSupplementary rewrites the \UXXXXXXXX escapes yaml.v3 emits for
// runes above U+FFFF back into UTF-8, which double-quoted YAML allows.
func restoreSupplementary(out []byte) []byte {
	if !bytes.Contains(out, []byte(`\U`)) {
		return out
	}
	buf := make([]byte, 0, len(out))
	for i := 0; i < len(out); i++ {
		if out[i] != '\\' || i+1 >= len(out) {
			buf = append(buf, out[i])
			continue
		}
		if out[i+1] == 'U' && i+10 <= len(out) {
			if v, err := strconv.ParseUint(string(out[i+2:i+10]), 16, 32); err == nil && v > 0xFFFF && v <= unicode.MaxRune {
				buf = utf8.AppendRune(buf, rune(v))
				i += 9
				continue
			}
		}
		buf = append(buf, out[i], out[i+1])
		i++
	}
	return buf
}
