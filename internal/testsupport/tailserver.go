package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

const (
	TestKeyID     = "test-key-id"
	TestKeySecret = "test-key-secret"
)

// TailReply is one scripted response from TailServer.
type TailReply struct {
	Status int
	Body   string
}

// Page builds a 200 reply carrying payloads and the given cookie.
func Page(cookie string, payloads ...string) TailReply {
	return TailReply{Status: http.StatusOK, Body: pageBody(payloads, cookie)}
}

// EndPage builds a 200 reply whose cookie is null.
func EndPage(payloads ...string) TailReply {
	return TailReply{Status: http.StatusOK, Body: pageBody(payloads, nil)}
}

func pageBody(payloads []string, cookie any) string {
	result := make([]map[string]json.RawMessage, 0, len(payloads))
	for _, p := range payloads {
		result = append(result, map[string]json.RawMessage{"payload": json.RawMessage(p)})
	}
	body, err := json.Marshal(map[string]any{
		"result":             result,
		"resultCount":        len(result),
		"pagedResultsCookie": cookie,
	})
	if err != nil {
		panic(err)
	}
	return string(body)
}

// TailRequest records what a client sent.
type TailRequest struct {
	Source    string
	Cursor    string
	HasCursor bool
	KeyID     string
	Secret    string
}

// TailServer is a scripted stand-in for the monitoring tail endpoint. Once
// the script is used up it serves empty end-of-stream pages.
type TailServer struct {
	*httptest.Server

	mu       sync.Mutex
	replies  []TailReply
	requests []TailRequest
}

// NewTailServer starts a server that answers with replies in order and
// rejects requests that do not carry TestKeyID and TestKeySecret.
func NewTailServer(t testing.TB, replies ...TailReply) *TailServer {
	t.Helper()

	srv := &TailServer{replies: replies}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /monitoring/logs/tail", srv.handle)
	srv.Server = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func (s *TailServer) handle(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	_, hasCursor := query["_pagedResultsCookie"]
	req := TailRequest{
		Source:    query.Get("source"),
		Cursor:    query.Get("_pagedResultsCookie"),
		HasCursor: hasCursor,
		KeyID:     r.Header.Get("x-api-key"),
		Secret:    r.Header.Get("x-api-secret"),
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	reply := EndPage()
	if len(s.replies) > 0 {
		reply = s.replies[0]
		s.replies = s.replies[1:]
	}
	s.mu.Unlock()

	if req.KeyID != TestKeyID || req.Secret != TestKeySecret {
		http.Error(w, `{"code":401,"reason":"Unauthorized"}`, http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(reply.Body))
}

// Requests returns a copy of the requests received so far.
func (s *TailServer) Requests() []TailRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TailRequest, len(s.requests))
	copy(out, s.requests)
	return out
}
