package webdriver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"slotsniper/internal/automation"
)

// driverStub simulates just enough of the protocol for the client under test.
type driverStub struct {
	mu       sync.Mutex
	sessions int
	deleted  int
	clicks   []string
	elements map[string][]string // selector -> element ids
	url      string
	scripts  int
}

func (d *driverStub) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /session", func(w http.ResponseWriter, r *http.Request) {
		d.mu.Lock()
		d.sessions++
		n := d.sessions
		d.mu.Unlock()
		writeValue(w, map[string]any{"sessionId": sessionName(n)})
	})
	mux.HandleFunc("DELETE /session/{sid}", func(w http.ResponseWriter, r *http.Request) {
		d.mu.Lock()
		d.deleted++
		d.mu.Unlock()
		writeValue(w, nil)
	})
	mux.HandleFunc("POST /session/{sid}/url", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			URL string `json:"url"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		d.mu.Lock()
		d.url = body.URL
		d.mu.Unlock()
		writeValue(w, nil)
	})
	mux.HandleFunc("GET /session/{sid}/url", func(w http.ResponseWriter, r *http.Request) {
		d.mu.Lock()
		defer d.mu.Unlock()
		writeValue(w, d.url)
	})
	mux.HandleFunc("POST /session/{sid}/element", func(w http.ResponseWriter, r *http.Request) {
		sel := readSelector(r)
		d.mu.Lock()
		ids := d.elements[sel]
		d.mu.Unlock()
		if len(ids) == 0 {
			writeError(w, http.StatusNotFound, "no such element", "no element matching "+sel)
			return
		}
		writeValue(w, map[string]string{elementKey: ids[0]})
	})
	mux.HandleFunc("POST /session/{sid}/elements", func(w http.ResponseWriter, r *http.Request) {
		sel := readSelector(r)
		d.mu.Lock()
		ids := d.elements[sel]
		d.mu.Unlock()
		out := make([]map[string]string, len(ids))
		for i, id := range ids {
			out[i] = map[string]string{elementKey: id}
		}
		writeValue(w, out)
	})
	mux.HandleFunc("POST /session/{sid}/element/{eid}/click", func(w http.ResponseWriter, r *http.Request) {
		d.mu.Lock()
		d.clicks = append(d.clicks, r.PathValue("eid"))
		d.mu.Unlock()
		writeValue(w, nil)
	})
	mux.HandleFunc("GET /session/{sid}/element/{eid}/text", func(w http.ResponseWriter, r *http.Request) {
		writeValue(w, "text-of-"+r.PathValue("eid"))
	})
	mux.HandleFunc("GET /session/{sid}/element/{eid}/attribute/{name}", func(w http.ResponseWriter, r *http.Request) {
		writeValue(w, r.PathValue("eid")+":"+r.PathValue("name"))
	})
	mux.HandleFunc("POST /session/{sid}/execute/sync", func(w http.ResponseWriter, r *http.Request) {
		d.mu.Lock()
		d.scripts++
		d.mu.Unlock()
		writeValue(w, nil)
	})
	return mux
}

func sessionName(n int) string {
	return "sess-" + strings.Repeat("a", n)
}

func readSelector(r *http.Request) string {
	var body struct {
		Value string `json:"value"`
	}
	json.NewDecoder(r.Body).Decode(&body)
	return body.Value
}

func writeValue(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"value": v})
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"value": map[string]string{"error": code, "message": msg},
	})
}

func newTestSession(t *testing.T, stub *driverStub) *Session {
	t.Helper()
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)
	s, err := Dial(context.Background(), Config{ServerURL: srv.URL})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func TestDialOpensSession(t *testing.T) {
	stub := &driverStub{}
	s := newTestSession(t, stub)
	if stub.sessions != 1 {
		t.Fatalf("sessions = %d, want 1", stub.sessions)
	}
	if !s.IsResponsive(context.Background()) {
		t.Fatal("fresh session not responsive")
	}
}

func TestNavigateAndCurrentURL(t *testing.T) {
	stub := &driverStub{}
	s := newTestSession(t, stub)
	ctx := context.Background()

	if err := s.Navigate(ctx, "https://rec.example/pages/login"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	url, err := s.CurrentURL(ctx)
	if err != nil {
		t.Fatalf("CurrentURL: %v", err)
	}
	if url != "https://rec.example/pages/login" {
		t.Fatalf("url = %q", url)
	}
}

func TestWaitForTimesOut(t *testing.T) {
	stub := &driverStub{}
	s := newTestSession(t, stub)

	start := time.Now()
	_, err := s.WaitFor(context.Background(), "[data-test-id=missing]", 50*time.Millisecond)
	if err != automation.ErrWaitTimeout {
		t.Fatalf("err = %v, want ErrWaitTimeout", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("wait did not respect the timeout")
	}
}

func TestWaitForFindsElement(t *testing.T) {
	stub := &driverStub{elements: map[string][]string{"[data-test-id=ok]": {"e1"}}}
	s := newTestSession(t, stub)

	el, err := s.WaitFor(context.Background(), "[data-test-id=ok]", time.Second)
	if err != nil {
		t.Fatalf("WaitFor: %v", err)
	}
	if el.Selector() != "[data-test-id=ok]" {
		t.Fatalf("selector = %q", el.Selector())
	}
}

func TestElementInteractions(t *testing.T) {
	stub := &driverStub{elements: map[string][]string{".card": {"e1", "e2"}}}
	s := newTestSession(t, stub)
	ctx := context.Background()

	els, err := s.FindAll(ctx, nil, ".card")
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(els) != 2 {
		t.Fatalf("found %d elements, want 2", len(els))
	}

	if err := s.Click(ctx, els[0]); err != nil {
		t.Fatalf("Click: %v", err)
	}
	if len(stub.clicks) != 1 || stub.clicks[0] != "e1" {
		t.Fatalf("clicks = %v", stub.clicks)
	}

	text, err := s.ReadText(ctx, els[1])
	if err != nil || text != "text-of-e2" {
		t.Fatalf("ReadText = %q, %v", text, err)
	}
	attr, err := s.ReadAttribute(ctx, els[1], "data-space")
	if err != nil || attr != "e2:data-space" {
		t.Fatalf("ReadAttribute = %q, %v", attr, err)
	}

	if err := s.SetValueAndDispatchEvent(ctx, els[0], "2026-03-14"); err != nil {
		t.Fatalf("SetValueAndDispatchEvent: %v", err)
	}
	if stub.scripts != 1 {
		t.Fatalf("scripts = %d, want 1", stub.scripts)
	}
}

func TestRestartReplacesSession(t *testing.T) {
	stub := &driverStub{}
	s := newTestSession(t, stub)

	before := s.session()
	if err := s.Restart(context.Background()); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if stub.deleted != 1 || stub.sessions != 2 {
		t.Fatalf("deleted = %d sessions = %d", stub.deleted, stub.sessions)
	}
	if s.session() == before {
		t.Fatal("session id unchanged after restart")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	stub := &driverStub{}
	s := newTestSession(t, stub)

	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if stub.deleted != 1 {
		t.Fatalf("deleted = %d, want 1", stub.deleted)
	}
	if s.IsResponsive(context.Background()) {
		t.Fatal("closed session reported responsive")
	}
}
