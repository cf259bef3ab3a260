// Package automationtest provides a scripted in-memory automation.Session
// for tests. Pages are static element trees; click hooks mutate the fake to
// simulate remote behavior.
package automationtest

import (
	"context"
	"strings"
	"sync"
	"time"

	"slotsniper/internal/automation"
)

// Element is a node in a scripted page.
type Element struct {
	Sel      string
	Text     string
	Attrs    map[string]string
	Children []*Element
}

func (e *Element) Selector() string { return e.Sel }

// El is a convenience constructor for scripted trees.
func El(sel, text string, children ...*Element) *Element {
	return &Element{Sel: sel, Text: text, Children: children}
}

// Session is a scripted automation session.
type Session struct {
	mu sync.Mutex

	URL   string
	Doc   []*Element
	Pages map[string][]*Element // swapped in on Navigate, keyed by URL

	// OnClick hooks run after a click on the element with that selector.
	OnClick map[string]func(s *Session)

	Unresponsive bool
	FailRestart  bool

	Clicks     []string
	Navigates  []string
	SetValues  map[string]string
	Restarts   int
	WaitProbes []string
}

func NewSession() *Session {
	return &Session{
		Pages:     map[string][]*Element{},
		OnClick:   map[string]func(s *Session){},
		SetValues: map[string]string{},
	}
}

func (s *Session) Navigate(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Navigates = append(s.Navigates, url)
	s.URL = url
	if doc, ok := s.Pages[url]; ok {
		s.Doc = doc
	}
	return nil
}

func (s *Session) WaitFor(_ context.Context, selector string, _ time.Duration) (automation.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.WaitProbes = append(s.WaitProbes, selector)
	if el := findFirst(s.Doc, selector); el != nil {
		return el, nil
	}
	return nil, automation.ErrWaitTimeout
}

func (s *Session) FindAll(_ context.Context, root automation.Element, selector string) ([]automation.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var scope []*Element
	if root == nil {
		scope = s.Doc
	} else {
		scope = root.(*Element).Children
	}
	var out []automation.Element
	for _, el := range findAll(scope, selector) {
		out = append(out, el)
	}
	return out, nil
}

func (s *Session) Click(_ context.Context, el automation.Element) error {
	s.mu.Lock()
	sel := el.Selector()
	s.Clicks = append(s.Clicks, sel)
	hook := s.OnClick[sel]
	s.mu.Unlock()
	if hook != nil {
		hook(s)
	}
	return nil
}

func (s *Session) ReadText(_ context.Context, el automation.Element) (string, error) {
	return el.(*Element).Text, nil
}

func (s *Session) ReadAttribute(_ context.Context, el automation.Element, name string) (string, error) {
	fe := el.(*Element)
	if fe.Attrs == nil {
		return "", nil
	}
	return fe.Attrs[name], nil
}

func (s *Session) SetValueAndDispatchEvent(_ context.Context, el automation.Element, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SetValues[el.Selector()] = value
	return nil
}

func (s *Session) CurrentURL(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.URL, nil
}

func (s *Session) IsResponsive(context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.Unresponsive
}

func (s *Session) Restart(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Restarts++
	if s.FailRestart {
		return automation.ErrWaitTimeout
	}
	s.Unresponsive = false
	return nil
}

// SwapDoc replaces the current document, simulating a page transition
// triggered by remote-side behavior rather than navigation.
func (s *Session) SwapDoc(doc []*Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Doc = doc
}

// AppendDoc adds elements to the current document (e.g. a success banner).
func (s *Session) AppendDoc(els ...*Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Doc = append(s.Doc, els...)
}

func (s *Session) SetURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.URL = url
}

func findFirst(scope []*Element, selector string) *Element {
	for _, el := range scope {
		if match(el, selector) {
			return el
		}
		if found := findFirst(el.Children, selector); found != nil {
			return found
		}
	}
	return nil
}

func findAll(scope []*Element, selector string) []*Element {
	var out []*Element
	for _, el := range scope {
		if match(el, selector) {
			out = append(out, el)
		}
		out = append(out, findAll(el.Children, selector)...)
	}
	return out
}

func match(el *Element, selector string) bool {
	return strings.EqualFold(el.Sel, selector)
}

var _ automation.Session = (*Session)(nil)
