// Package webdriver implements automation.Session over the W3C WebDriver
// protocol, speaking plain JSON over HTTP to a driver service (chromedriver,
// geckodriver, or a Selenium grid).
package webdriver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"slotsniper/internal/automation"
)

// elementKey is the W3C element identifier field.
const elementKey = "element-6066-11e4-a52e-4f735466cecf"

// pollEvery is the WaitFor re-check cadence.
const pollEvery = 250 * time.Millisecond

// Config describes the driver endpoint and the browser session to request.
type Config struct {
	// ServerURL is the WebDriver endpoint, e.g. http://localhost:9515.
	ServerURL string
	// BrowserName goes into the session capabilities. Default "chrome".
	BrowserName string
	// Headless asks for a headless browser.
	Headless bool
	// RequestTimeout bounds each protocol call.
	RequestTimeout time.Duration
}

func (c Config) withDefaults() Config {
	c.ServerURL = strings.TrimRight(c.ServerURL, "/")
	if c.BrowserName == "" {
		c.BrowserName = "chrome"
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	return c
}

// Session is a live browser session behind a WebDriver service.
type Session struct {
	cfg  Config
	http *http.Client

	mu        sync.Mutex
	sessionID string
}

// Dial opens a browser session against the driver service.
func Dial(ctx context.Context, cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()
	if cfg.ServerURL == "" {
		return nil, errors.New("webdriver: server url is required")
	}
	s := &Session{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.RequestTimeout},
	}
	if err := s.open(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) open(ctx context.Context) error {
	alwaysMatch := map[string]any{"browserName": s.cfg.BrowserName}
	if s.cfg.Headless && s.cfg.BrowserName == "chrome" {
		alwaysMatch["goog:chromeOptions"] = map[string]any{
			"args": []string{"--headless=new", "--disable-gpu"},
		}
	}
	var resp struct {
		Value struct {
			SessionID string `json:"sessionId"`
		} `json:"value"`
	}
	err := s.do(ctx, http.MethodPost, "/session", map[string]any{
		"capabilities": map[string]any{"alwaysMatch": alwaysMatch},
	}, &resp)
	if err != nil {
		return fmt.Errorf("webdriver: open session: %w", err)
	}
	if resp.Value.SessionID == "" {
		return errors.New("webdriver: driver returned no session id")
	}
	s.mu.Lock()
	s.sessionID = resp.Value.SessionID
	s.mu.Unlock()
	return nil
}

// Close ends the browser session.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	id := s.sessionID
	s.sessionID = ""
	s.mu.Unlock()
	if id == "" {
		return nil
	}
	return s.do(ctx, http.MethodDelete, "/session/"+id, nil, nil)
}

func (s *Session) session() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

type element struct {
	id       string
	selector string
}

func (e *element) Selector() string { return e.selector }

func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.do(ctx, http.MethodPost, "/session/"+s.session()+"/url", map[string]string{"url": url}, nil)
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var resp struct {
		Value string `json:"value"`
	}
	if err := s.do(ctx, http.MethodGet, "/session/"+s.session()+"/url", nil, &resp); err != nil {
		return "", err
	}
	return resp.Value, nil
}

// WaitFor polls for the selector until it appears or the timeout elapses.
func (s *Session) WaitFor(ctx context.Context, selector string, timeout time.Duration) (automation.Element, error) {
	deadline := time.Now().Add(timeout)
	for {
		el, err := s.findOne(ctx, selector)
		if err == nil {
			return el, nil
		}
		if !isNoSuchElement(err) {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, automation.ErrWaitTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollEvery):
		}
	}
}

func (s *Session) findOne(ctx context.Context, selector string) (*element, error) {
	var resp struct {
		Value map[string]string `json:"value"`
	}
	err := s.do(ctx, http.MethodPost, "/session/"+s.session()+"/element",
		map[string]string{"using": "css selector", "value": selector}, &resp)
	if err != nil {
		return nil, err
	}
	id := resp.Value[elementKey]
	if id == "" {
		return nil, errNoSuchElement
	}
	return &element{id: id, selector: selector}, nil
}

func (s *Session) FindAll(ctx context.Context, root automation.Element, selector string) ([]automation.Element, error) {
	path := "/session/" + s.session() + "/elements"
	if root != nil {
		el, ok := root.(*element)
		if !ok {
			return nil, errors.New("webdriver: foreign element handle")
		}
		path = "/session/" + s.session() + "/element/" + el.id + "/elements"
	}
	var resp struct {
		Value []map[string]string `json:"value"`
	}
	err := s.do(ctx, http.MethodPost, path,
		map[string]string{"using": "css selector", "value": selector}, &resp)
	if err != nil {
		return nil, err
	}
	out := make([]automation.Element, 0, len(resp.Value))
	for _, entry := range resp.Value {
		if id := entry[elementKey]; id != "" {
			out = append(out, &element{id: id, selector: selector})
		}
	}
	return out, nil
}

func (s *Session) Click(ctx context.Context, el automation.Element) error {
	handle, ok := el.(*element)
	if !ok {
		return errors.New("webdriver: foreign element handle")
	}
	return s.do(ctx, http.MethodPost,
		"/session/"+s.session()+"/element/"+handle.id+"/click", map[string]any{}, nil)
}

func (s *Session) ReadText(ctx context.Context, el automation.Element) (string, error) {
	handle, ok := el.(*element)
	if !ok {
		return "", errors.New("webdriver: foreign element handle")
	}
	var resp struct {
		Value string `json:"value"`
	}
	err := s.do(ctx, http.MethodGet,
		"/session/"+s.session()+"/element/"+handle.id+"/text", nil, &resp)
	return resp.Value, err
}

func (s *Session) ReadAttribute(ctx context.Context, el automation.Element, name string) (string, error) {
	handle, ok := el.(*element)
	if !ok {
		return "", errors.New("webdriver: foreign element handle")
	}
	var resp struct {
		Value string `json:"value"`
	}
	err := s.do(ctx, http.MethodGet,
		"/session/"+s.session()+"/element/"+handle.id+"/attribute/"+name, nil, &resp)
	return resp.Value, err
}

// SetValueAndDispatchEvent assigns the value via script and fires a bubbling
// change event. Typing with sendKeys does not trigger the remote's reactive
// form bindings; direct assignment plus a synthetic event does.
func (s *Session) SetValueAndDispatchEvent(ctx context.Context, el automation.Element, value string) error {
	handle, ok := el.(*element)
	if !ok {
		return errors.New("webdriver: foreign element handle")
	}
	script := `
		var el = arguments[0];
		el.value = arguments[1];
		el.dispatchEvent(new Event('input', {bubbles: true}));
		el.dispatchEvent(new Event('change', {bubbles: true}));`
	return s.do(ctx, http.MethodPost, "/session/"+s.session()+"/execute/sync", map[string]any{
		"script": script,
		"args":   []any{map[string]string{elementKey: handle.id}, value},
	}, nil)
}

// IsResponsive probes the driver's status endpoint and the session's URL.
func (s *Session) IsResponsive(ctx context.Context) bool {
	if s.session() == "" {
		return false
	}
	_, err := s.CurrentURL(ctx)
	return err == nil
}

// Restart drops the current browser session and opens a fresh one.
func (s *Session) Restart(ctx context.Context) error {
	_ = s.Close(ctx)
	return s.open(ctx)
}

var errNoSuchElement = errors.New("webdriver: no such element")

func isNoSuchElement(err error) bool {
	return errors.Is(err, errNoSuchElement)
}

// wireError is the W3C error envelope.
type wireError struct {
	Value struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	} `json:"value"`
}

func (s *Session) do(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("webdriver: marshal request: %w", err)
		}
		payload = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.cfg.ServerURL+path, payload)
	if err != nil {
		return fmt.Errorf("webdriver: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("webdriver: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("webdriver: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var we wireError
		if json.Unmarshal(raw, &we) == nil && we.Value.Error == "no such element" {
			return errNoSuchElement
		}
		if we.Value.Error != "" {
			return fmt.Errorf("webdriver: %s: %s", we.Value.Error, we.Value.Message)
		}
		return fmt.Errorf("webdriver: %s %s: status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("webdriver: decode response: %w", err)
		}
	}
	return nil
}

var _ automation.Session = (*Session)(nil)
