package remote

import (
	"log/slog"
	"testing"
)

func TestCatalogFromEnvRequiresBaseURL(t *testing.T) {
	t.Setenv("REMOTE_BASE_URL", "")
	if _, err := CatalogFromEnv(slog.Default()); err == nil {
		t.Fatal("expected error without REMOTE_BASE_URL")
	}
}

func TestCatalogFromEnvDefaults(t *testing.T) {
	t.Setenv("REMOTE_BASE_URL", "https://booking.example/")
	t.Setenv("REMOTE_LOCATIONS_JSON", "")

	c, err := CatalogFromEnv(slog.Default())
	if err != nil {
		t.Fatalf("CatalogFromEnv: %v", err)
	}
	if c.LoginURL() != "https://booking.example/pages/login" {
		t.Fatalf("login url = %q", c.LoginURL())
	}
	if _, ok := c.Lookup("hall-x1"); !ok {
		t.Fatal("default catalog missing hall-x1")
	}
}

func TestCatalogFromEnvOverride(t *testing.T) {
	t.Setenv("REMOTE_BASE_URL", "https://booking.example")
	t.Setenv("REMOTE_LOCATIONS_JSON",
		`[{"name":"pool","path":"/swim","filter_text":"Pool","sub_locations":["lane-1"]}]`)

	c, err := CatalogFromEnv(slog.Default())
	if err != nil {
		t.Fatalf("CatalogFromEnv: %v", err)
	}
	loc, ok := c.Lookup("pool")
	if !ok {
		t.Fatal("override catalog missing pool")
	}
	if c.ListingURL(loc) != "https://booking.example/swim" {
		t.Fatalf("listing url = %q", c.ListingURL(loc))
	}
	if _, ok := c.Lookup("hall-x1"); ok {
		t.Fatal("override should replace the default set")
	}
}

func TestCatalogFromEnvRejectsMalformedOverride(t *testing.T) {
	t.Setenv("REMOTE_BASE_URL", "https://booking.example")
	t.Setenv("REMOTE_LOCATIONS_JSON", `[{"path":"/x"}]`)
	if _, err := CatalogFromEnv(slog.Default()); err == nil {
		t.Fatal("expected error for location entry without a name")
	}
}
