package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"slotsniper/internal/automation"
	"slotsniper/internal/model"
)

// ErrAuthenticationFailed marks a hard failure: credentials rejected or the
// login flow broke. Retrying without operator action cannot help.
var ErrAuthenticationFailed = errors.New("remote: authentication failed")

// Auth owns the remote session's login state. One Auth per Session; callers
// serialize through it.
type Auth struct {
	sess        automation.Session
	creds       automation.CredentialProvider
	catalog     Catalog
	logger      *slog.Logger
	waitTimeout time.Duration

	mu    sync.Mutex
	state model.AuthState
}

func NewAuth(sess automation.Session, creds automation.CredentialProvider, catalog Catalog, logger *slog.Logger) *Auth {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auth{
		sess:        sess,
		creds:       creds,
		catalog:     catalog,
		logger:      logger,
		waitTimeout: defaultWaitTimeout,
		state:       model.AuthUnknown,
	}
}

func (a *Auth) State() model.AuthState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Auth) setState(s model.AuthState) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// Check inspects the current page without navigating or clicking. It reports
// authenticated when the account menu is rendered and unauthenticated when
// the login header is. Neither present means the answer is unknown, which
// callers must treat as not authenticated.
func (a *Auth) Check(ctx context.Context) (bool, error) {
	a.setState(model.AuthChecking)

	menu, err := a.sess.FindAll(ctx, nil, selAccountMenu)
	if err != nil {
		a.setState(model.AuthUnknown)
		return false, fmt.Errorf("remote: auth check: %w", err)
	}
	if len(menu) > 0 {
		a.setState(model.AuthAuthenticated)
		return true, nil
	}
	a.setState(model.AuthUnauthenticated)
	return false, nil
}

// EnsureAuthenticated brings the session to an authenticated state, restarting
// an unresponsive session first. A failed login returns
// ErrAuthenticationFailed; the caller must not retry it blindly.
func (a *Auth) EnsureAuthenticated(ctx context.Context) error {
	if !a.sess.IsResponsive(ctx) {
		a.logger.Warn("automation session unresponsive, restarting")
		if err := a.sess.Restart(ctx); err != nil {
			a.setState(model.AuthUnknown)
			return fmt.Errorf("%w: session restart: %v", ErrAuthenticationFailed, err)
		}
		a.setState(model.AuthUnknown)
	}

	ok, err := a.Check(ctx)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return a.login(ctx)
}

func (a *Auth) login(ctx context.Context) error {
	creds, err := a.creds.Get(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	if err := a.sess.Navigate(ctx, a.catalog.LoginURL()); err != nil {
		return fmt.Errorf("%w: navigate login: %v", ErrAuthenticationFailed, err)
	}
	if _, err := a.sess.WaitFor(ctx, selLoginHeader, a.waitTimeout); err != nil {
		return fmt.Errorf("%w: login page never rendered: %v", ErrAuthenticationFailed, err)
	}

	// Federated login hands off to the identity provider's form.
	if err := a.clickWhenReady(ctx, selFederatedLogin); err != nil {
		return err
	}
	if err := a.fillWhenReady(ctx, selUsernameInput, creds.Identity); err != nil {
		return err
	}
	if err := a.fillWhenReady(ctx, selPasswordInput, creds.Secret); err != nil {
		return err
	}
	if err := a.clickWhenReady(ctx, selLoginSubmit); err != nil {
		return err
	}

	if _, err := a.sess.WaitFor(ctx, selAccountMenu, a.waitTimeout); err != nil {
		a.setState(model.AuthUnauthenticated)
		return fmt.Errorf("%w: no authenticated page after submit", ErrAuthenticationFailed)
	}
	a.setState(model.AuthAuthenticated)
	a.logger.Info("authenticated against remote", "identity", creds.Identity)
	return nil
}

func (a *Auth) clickWhenReady(ctx context.Context, selector string) error {
	el, err := a.sess.WaitFor(ctx, selector, a.waitTimeout)
	if err != nil {
		return fmt.Errorf("%w: waiting for %s: %v", ErrAuthenticationFailed, selector, err)
	}
	if err := a.sess.Click(ctx, el); err != nil {
		return fmt.Errorf("%w: clicking %s: %v", ErrAuthenticationFailed, selector, err)
	}
	return nil
}

func (a *Auth) fillWhenReady(ctx context.Context, selector, value string) error {
	el, err := a.sess.WaitFor(ctx, selector, a.waitTimeout)
	if err != nil {
		return fmt.Errorf("%w: waiting for %s: %v", ErrAuthenticationFailed, selector, err)
	}
	if err := a.sess.SetValueAndDispatchEvent(ctx, el, value); err != nil {
		return fmt.Errorf("%w: filling %s: %v", ErrAuthenticationFailed, selector, err)
	}
	return nil
}
