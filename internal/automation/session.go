// Package automation defines the capabilities the booking core consumes from
// a browser-automation collaborator. The core never touches a real browser;
// concrete drivers implement Session out of tree.
package automation

import (
	"context"
	"errors"
	"time"
)

// ErrWaitTimeout is returned by WaitFor when the selector never appears
// within the given timeout.
var ErrWaitTimeout = errors.New("automation: wait timed out")

// Element is an opaque handle to a rendered page element. Handles are only
// valid until the next navigation.
type Element interface {
	Selector() string
}

// Session is a live automation session against the remote system's
// browser-rendered interface. All blocking calls honor ctx.
type Session interface {
	Navigate(ctx context.Context, url string) error

	// WaitFor blocks until an element matching selector is present and
	// interactable, or the timeout elapses (ErrWaitTimeout).
	WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error)

	// FindAll returns every current match under root; a nil root searches
	// the whole document. An empty result is not an error.
	FindAll(ctx context.Context, root Element, selector string) ([]Element, error)

	Click(ctx context.Context, el Element) error
	ReadText(ctx context.Context, el Element) (string, error)
	ReadAttribute(ctx context.Context, el Element, name string) (string, error)

	// SetValueAndDispatchEvent assigns value to a form control and fires a
	// bubbling change event, the way date pickers on the remote expect.
	SetValueAndDispatchEvent(ctx context.Context, el Element, value string) error

	CurrentURL(ctx context.Context) (string, error)

	// IsResponsive reports whether the underlying session still answers.
	IsResponsive(ctx context.Context) bool

	// Restart tears the session down and brings up a fresh one. The previous
	// element handles become invalid.
	Restart(ctx context.Context) error
}
