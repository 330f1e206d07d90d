package render_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"fidctail/internal/render"
)

func TestParseFormat(t *testing.T) {
	tests := map[string]render.Format{
		"":       render.FormatAuto,
		"auto":   render.FormatAuto,
		" JSON ": render.FormatJSON,
		"pretty": render.FormatPretty,
		"yaml":   render.FormatYAML,
	}
	for input, want := range tests {
		got, err := render.ParseFormat(input)
		if err != nil {
			t.Fatalf("ParseFormat(%q): %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseFormat(%q): expected %q, got %q", input, want, got)
		}
	}
	if _, err := render.ParseFormat("xml"); err == nil {
		t.Fatal("expected error for xml")
	}
}

func TestAutoResolvesToJSONForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	r := render.New(&buf, render.FormatAuto)
	if r.Format() != render.FormatJSON {
		t.Fatalf("expected json for a buffer, got %q", r.Format())
	}
}

func TestRenderJSONIsCompactOnePerLine(t *testing.T) {
	var buf bytes.Buffer
	r := render.New(&buf, render.FormatJSON)
	for _, payload := range []string{`{ "msg" : "a" }`, `"text line"`, `42`} {
		if err := r.Render(json.RawMessage(payload)); err != nil {
			t.Fatalf("Render: %v", err)
		}
	}
	want := "{\"msg\":\"a\"}\n\"text line\"\n42\n"
	if buf.String() != want {
		t.Fatalf("unexpected output:\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestRenderPretty(t *testing.T) {
	var buf bytes.Buffer
	r := render.New(&buf, render.FormatPretty)
	if err := r.Render(json.RawMessage(`{"msg":"a","n":[1,2]}`)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if err := r.Render(json.RawMessage(`"plain line\n"`)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "{\n  \"msg\": \"a\",\n  \"n\": [\n    1,\n    2\n  ]\n}\nplain line\n"
	if buf.String() != want {
		t.Fatalf("unexpected output:\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestRenderYAMLSeparatesDocuments(t *testing.T) {
	var buf bytes.Buffer
	r := render.New(&buf, render.FormatYAML)
	if err := r.Render(json.RawMessage(`{"level":"ERROR","count":12345678901234567890,"id":"007"}`)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if err := r.Render(json.RawMessage(`{"msg":"b"}`)); err != nil {
		t.Fatalf("Render: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"level: ERROR\n",
		"count: 12345678901234567890\n",
		"id: \"007\"\n",
		"---\nmsg: b\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.HasPrefix(out, "---") {
		t.Fatalf("did not expect a leading separator:\n%s", out)
	}
}

func TestRenderYAMLHandlesJSONEscapes(t *testing.T) {
	tests := map[string]struct {
		payload string
		want    string
	}{
		"escaped solidus":       {payload: `{"path":"a\/b"}`, want: "path: a/b\n"},
		"supplementary rune":    {payload: `{"emoji":"😀","pair":"\ud83d\ude00"}`, want: "emoji: \"😀\"\npair: \"😀\"\n"},
		"literal backslash":     {payload: `{"dir":"C:\\x\\U0001F600"}`, want: "dir: \"C:\\\\x\\\\U0001F600\"\n"},
		"key order and numbers": {payload: `{"z":1.50,"a":[true,null,-0]}`, want: "z: 1.50\na:\n  - true\n  - null\n  - -0\n"},
		"string payload":        {payload: `"a\/b"`, want: "a/b\n"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := render.New(&buf, render.FormatYAML).Render(json.RawMessage(tt.payload)); err != nil {
				t.Fatalf("Render: %v", err)
			}
			if buf.String() != tt.want {
				t.Fatalf("unexpected yaml:\n%q\nwant\n%q", buf.String(), tt.want)
			}
		})
	}
}

func TestRenderRejectsInvalidPayload(t *testing.T) {
	for _, format := range []render.Format{render.FormatJSON, render.FormatPretty, render.FormatYAML} {
		r := render.New(&bytes.Buffer{}, format)
		if err := r.Render(json.RawMessage(`{"broken"`)); err == nil {
			t.Fatalf("%s: expected error", format)
		}
	}
}
