package poller_test

import (
	"errors"
	"net/url"
	"testing"

	"fidctail/internal/poller"
)

func TestBuildRequestFirstPollOmitsCursor(t *testing.T) {
	req := poller.BuildRequest("am-core", poller.State{})
	if req.HasCursor {
		t.Fatalf("expected no cursor on first poll, got %+v", req)
	}
	query := req.Query()
	if _, ok := query[poller.ParamCursor]; ok {
		t.Fatalf("expected %s to be absent, got %v", poller.ParamCursor, query)
	}
	if got := query.Get(poller.ParamSource); got != "am-core" {
		t.Fatalf("unexpected source: %q", got)
	}
}

func TestBuildRequestForwardsCursorVerbatim(t *testing.T) {
	cursors := []string{
		"XYZ",
		"eyJfc29ydEtleXMiOiJ0aW1lc3RhbXAiLCJ0aW1lc3RhbXAiOiIyMDI2LTEwLTE1VDEwOjAwOjAwLjAwMFoifQ==",
		"a b&c=d/e?f#g%20",
		" leading and trailing ",
		"ünïcødé☃",
	}
	for _, cursor := range cursors {
		req := poller.BuildRequest("idm-core", poller.Resume(cursor))
		if !req.HasCursor || req.Cursor != cursor {
			t.Fatalf("cursor %q: unexpected request %+v", cursor, req)
		}
		decoded, err := url.ParseQuery(req.Query().Encode())
		if err != nil {
			t.Fatalf("cursor %q: parse encoded query: %v", cursor, err)
		}
		if got := decoded.Get(poller.ParamCursor); got != cursor {
			t.Fatalf("cursor round trip: expected %q, got %q", cursor, got)
		}
	}
}

func TestResumeEmptyCursorIsUninitialized(t *testing.T) {
	st := poller.Resume("")
	if st.Phase() != poller.PhaseUninitialized {
		t.Fatalf("expected uninitialized, got %s", st)
	}
	if _, ok := st.Cursor(); ok {
		t.Fatal("expected no cursor")
	}
}

func TestApplyResponseEmptyPageAdvances(t *testing.T) {
	st := poller.Resume("C1")
	next, entries := poller.ApplyResponse(st, poller.Response{NextCursor: "C2", HasNext: true})
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
	cursor, ok := next.Cursor()
	if !ok || cursor != "C2" {
		t.Fatalf("expected Cursored(C2), got %s", next)
	}
	if next.Exhausted() {
		t.Fatal("did not expect exhausted state")
	}
}

func TestApplyResponseWithoutCookieIsExhausted(t *testing.T) {
	next, _ := poller.ApplyResponse(poller.Resume("C1"), poller.Response{})
	if !next.Exhausted() {
		t.Fatal("expected exhausted state")
	}
	if next.Phase() != poller.PhaseUninitialized {
		t.Fatalf("expected uninitialized phase, got %s", next.Phase())
	}
	if poller.BuildRequest("am-core", next).HasCursor {
		t.Fatal("expected next request to omit the cursor")
	}
}

func TestApplyResponseDoesNotDeduplicate(t *testing.T) {
	resp, err := poller.Decode([]byte(`{"result":[{"payload":"one"}],"pagedResultsCookie":"C1"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	first, firstEntries := poller.ApplyResponse(poller.State{}, resp)
	second, secondEntries := poller.ApplyResponse(first, resp)

	if first == second {
		t.Fatalf("expected second fold to produce a different state, both %s", first)
	}
	if second.Pages() != first.Pages()+1 {
		t.Fatalf("expected page count to advance, got %d then %d", first.Pages(), second.Pages())
	}
	if len(firstEntries) != 1 || len(secondEntries) != 1 {
		t.Fatalf("expected entries to be returned on both folds, got %d and %d", len(firstEntries), len(secondEntries))
	}
}

// A sequence of attempts where some fail must leave the cursor at the last
// successful page.
func TestNoSkipOnFailedPolls(t *testing.T) {
	attempts := []struct {
		body string
		ok   bool
	}{
		{body: `<html>bad gateway</html>`},
		{body: `{"result":[],"pagedResultsCookie":"C1"}`, ok: true},
		{body: `{"result":[]}`},
		{body: `{"pagedResultsCookie":"C9"}`},
		{body: `{"result":[{"payload":1}],"pagedResultsCookie":"C2"}`, ok: true},
		{body: `[]`},
	}

	var st poller.State
	var sent []string
	for i, attempt := range attempts {
		req := poller.BuildRequest("am-core", st)
		sent = append(sent, req.Cursor)

		resp, err := poller.Decode([]byte(attempt.body))
		if attempt.ok != (err == nil) {
			t.Fatalf("attempt %d: unexpected decode result: %v", i, err)
		}
		if err != nil {
			if !poller.IsDecodeError(err) {
				t.Fatalf("attempt %d: expected DecodeError, got %T", i, err)
			}
			continue
		}
		st, _ = poller.ApplyResponse(st, resp)
	}

	cursor, ok := st.Cursor()
	if !ok || cursor != "C2" {
		t.Fatalf("expected Cursored(C2), got %s", st)
	}
	want := []string{"", "", "C1", "C1", "C1", "C2"}
	for i := range want {
		if sent[i] != want[i] {
			t.Fatalf("attempt %d sent cursor %q, want %q (all: %q)", i, sent[i], want[i], sent)
		}
	}
}

func TestEndToEndScenario(t *testing.T) {
	body := `{"result":[{"payload":{"msg":"a"}},{"payload":{"msg":"b"}}],"pagedResultsCookie":"XYZ"}`
	resp, err := poller.Decode([]byte(body))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	st, entries := poller.ApplyResponse(poller.State{}, resp)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if string(entries[0].Payload) != `{"msg":"a"}` || string(entries[1].Payload) != `{"msg":"b"}` {
		t.Fatalf("unexpected payloads: %s, %s", entries[0].Payload, entries[1].Payload)
	}
	if got := st.String(); got != `cursored("XYZ")` {
		t.Fatalf("unexpected state: %s", got)
	}

	req := poller.BuildRequest("am-core", st)
	if got := req.Query().Get(poller.ParamCursor); got != "XYZ" {
		t.Fatalf("expected cursor XYZ, got %q", got)
	}
}

func TestDecodeErrorUnwraps(t *testing.T) {
	_, err := poller.Decode([]byte(`{"result":`))
	var decodeErr *poller.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if decodeErr.Unwrap() == nil {
		t.Fatal("expected wrapped JSON syntax error")
	}
}
