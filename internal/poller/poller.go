package poller

import (
	"encoding/json"
	"fmt"
	"net/url"
)

const (
	// ParamSource names the log source query parameter.
	ParamSource = "source"
	// ParamCursor names the paged-results cookie query parameter.
	ParamCursor = "_pagedResultsCookie"
)

// Phase reports whether a State holds a cursor.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseCursored
)

func (p Phase) String() string {
	switch p {
	case PhaseCursored:
		return "cursored"
	default:
		return "uninitialized"
	}
}

// State is the poller's position in the log stream. The zero value is the
// uninitialized state used for the first poll.
type State struct {
	cursor    string
	held      bool
	exhausted bool
	pages     uint64
}

// Resume returns a state positioned at cursor. An empty cursor yields the
// uninitialized state.
func Resume(cursor string) State {
	if cursor == "" {
		return State{}
	}
	return State{cursor: cursor, held: true}
}

// Cursor returns the held cursor and whether one is present.
func (s State) Cursor() (string, bool) {
	return s.cursor, s.held
}

func (s State) Phase() Phase {
	if s.held {
		return PhaseCursored
	}
	return PhaseUninitialized
}

// Exhausted reports that the last applied page carried no continuation
// cookie. The next request built from this state omits the cursor.
func (s State) Exhausted() bool {
	return s.exhausted
}

// Pages counts the responses folded into this state.
func (s State) Pages() uint64 {
	return s.pages
}

func (s State) String() string {
	if !s.held {
		return PhaseUninitialized.String()
	}
	return fmt.Sprintf("%s(%q)", PhaseCursored, s.cursor)
}

// Request carries the parameters of a single poll.
type Request struct {
	Source    string
	Cursor    string
	HasCursor bool
}

// Query encodes the request as URL query values. The cursor parameter is
// omitted entirely when no cursor is held.
func (r Request) Query() url.Values {
	values := url.Values{}
	values.Set(ParamSource, r.Source)
	if r.HasCursor {
		values.Set(ParamCursor, r.Cursor)
	}
	return values
}

// Entry is one element of a page. Payload holds the raw JSON value of the
// element's payload field exactly as the server sent it.
type Entry struct {
	Payload json.RawMessage
}

// Response is a decoded page.
type Response struct {
	Entries    []Entry
	NextCursor string
	HasNext    bool
}

// BuildRequest returns the request for the next poll of source.
func BuildRequest(source string, st State) Request {
	req := Request{Source: source}
	if cursor, ok := st.Cursor(); ok {
		req.Cursor = cursor
		req.HasCursor = true
	}
	return req
}

// ApplyResponse folds a successfully decoded page into st. The returned
// state holds resp's continuation cookie regardless of how many entries the
// page carried. A page without a continuation cookie returns an exhausted,
// uninitialized state. Entries are returned in server order.
func ApplyResponse(st State, resp Response) (State, []Entry) {
	next := State{pages: st.pages + 1}
	if resp.HasNext && resp.NextCursor != "" {
		next.cursor = resp.NextCursor
		next.held = true
	} else {
		next.exhausted = true
	}
	entries := make([]Entry, len(resp.Entries))
	copy(entries, resp.Entries)
	return next, entries
}
