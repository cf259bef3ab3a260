package remote

import (
	"context"
	"errors"
	"testing"

	"slotsniper/internal/automation"
	"slotsniper/internal/automation/automationtest"
	"slotsniper/internal/model"
)

func testCreds() automation.CredentialProvider {
	return automation.StaticCredentialProvider{
		Credentials: automation.Credentials{Identity: "netid-123", Secret: "hunter2"},
	}
}

// loginPages wires a fake remote whose login flow succeeds.
func loginPages(sess *automationtest.Session, catalog Catalog) {
	sess.Pages[catalog.LoginURL()] = []*automationtest.Element{
		automationtest.El(selLoginHeader, "Sign in"),
		automationtest.El(selFederatedLogin, "Institutional login"),
	}
	sess.OnClick[selFederatedLogin] = func(s *automationtest.Session) {
		s.SwapDoc([]*automationtest.Element{
			automationtest.El(selUsernameInput, ""),
			automationtest.El(selPasswordInput, ""),
			automationtest.El(selLoginSubmit, "Sign in"),
		})
	}
	sess.OnClick[selLoginSubmit] = func(s *automationtest.Session) {
		s.SwapDoc([]*automationtest.Element{
			automationtest.El(selAccountMenu, "netid-123"),
		})
	}
}

func TestCheckIsSideEffectFree(t *testing.T) {
	sess := automationtest.NewSession()
	sess.SwapDoc([]*automationtest.Element{automationtest.El(selLoginHeader, "Sign in")})
	auth := NewAuth(sess, testCreds(), DefaultCatalog("https://booking.example"), nil)

	ok, err := auth.Check(context.Background())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if ok {
		t.Fatal("login page reported as authenticated")
	}
	if len(sess.Clicks) != 0 || len(sess.Navigates) != 0 {
		t.Fatalf("Check caused side effects: clicks=%v navigates=%v", sess.Clicks, sess.Navigates)
	}
	if auth.State() != model.AuthUnauthenticated {
		t.Fatalf("state = %s, want unauthenticated", auth.State())
	}
}

func TestEnsureAuthenticatedLogsIn(t *testing.T) {
	catalog := DefaultCatalog("https://booking.example")
	sess := automationtest.NewSession()
	loginPages(sess, catalog)
	auth := NewAuth(sess, testCreds(), catalog, nil)

	if err := auth.EnsureAuthenticated(context.Background()); err != nil {
		t.Fatalf("EnsureAuthenticated: %v", err)
	}
	if auth.State() != model.AuthAuthenticated {
		t.Fatalf("state = %s, want authenticated", auth.State())
	}
	if got := sess.SetValues[selUsernameInput]; got != "netid-123" {
		t.Fatalf("username = %q", got)
	}
	if got := sess.SetValues[selPasswordInput]; got != "hunter2" {
		t.Fatalf("password = %q", got)
	}
}

func TestEnsureAuthenticatedSkipsLoginWhenAlreadyIn(t *testing.T) {
	catalog := DefaultCatalog("https://booking.example")
	sess := automationtest.NewSession()
	sess.SwapDoc([]*automationtest.Element{automationtest.El(selAccountMenu, "netid-123")})
	auth := NewAuth(sess, testCreds(), catalog, nil)

	if err := auth.EnsureAuthenticated(context.Background()); err != nil {
		t.Fatalf("EnsureAuthenticated: %v", err)
	}
	if len(sess.Navigates) != 0 {
		t.Fatalf("unnecessary navigation for authenticated session: %v", sess.Navigates)
	}
}

func TestLoginRejectionIsHardFailure(t *testing.T) {
	catalog := DefaultCatalog("https://booking.example")
	sess := automationtest.NewSession()
	loginPages(sess, catalog)
	// The remote bounces back to the credential form instead of the
	// authenticated page.
	sess.OnClick[selLoginSubmit] = func(s *automationtest.Session) {
		s.SwapDoc([]*automationtest.Element{
			automationtest.El(selUsernameInput, ""),
			automationtest.El(selPasswordInput, ""),
			automationtest.El(selLoginSubmit, "Sign in"),
		})
	}
	auth := NewAuth(sess, testCreds(), catalog, nil)

	err := auth.EnsureAuthenticated(context.Background())
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("err = %v, want ErrAuthenticationFailed", err)
	}
	if auth.State() != model.AuthUnauthenticated {
		t.Fatalf("state = %s, want unauthenticated", auth.State())
	}
}

func TestMissingCredentialsIsHardFailure(t *testing.T) {
	catalog := DefaultCatalog("https://booking.example")
	sess := automationtest.NewSession()
	sess.SwapDoc([]*automationtest.Element{automationtest.El(selLoginHeader, "Sign in")})
	auth := NewAuth(sess, automation.StaticCredentialProvider{}, catalog, nil)

	err := auth.EnsureAuthenticated(context.Background())
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("err = %v, want ErrAuthenticationFailed", err)
	}
}

func TestUnresponsiveSessionIsRestarted(t *testing.T) {
	catalog := DefaultCatalog("https://booking.example")
	sess := automationtest.NewSession()
	loginPages(sess, catalog)
	sess.Unresponsive = true
	auth := NewAuth(sess, testCreds(), catalog, nil)

	if err := auth.EnsureAuthenticated(context.Background()); err != nil {
		t.Fatalf("EnsureAuthenticated: %v", err)
	}
	if sess.Restarts != 1 {
		t.Fatalf("restarts = %d, want 1", sess.Restarts)
	}
	if auth.State() != model.AuthAuthenticated {
		t.Fatalf("state = %s, want authenticated after restart and login", auth.State())
	}
}

func TestFailedRestartIsHardFailure(t *testing.T) {
	catalog := DefaultCatalog("https://booking.example")
	sess := automationtest.NewSession()
	sess.Unresponsive = true
	sess.FailRestart = true
	auth := NewAuth(sess, testCreds(), catalog, nil)

	err := auth.EnsureAuthenticated(context.Background())
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("err = %v, want ErrAuthenticationFailed", err)
	}
}
