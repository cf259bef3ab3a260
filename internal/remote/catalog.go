package remote

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Location describes how one bookable venue is reached and filtered on the
// remote interface.
type Location struct {
	Name         string   `json:"name"`
	Path         string   `json:"path"`
	FilterText   string   `json:"filter_text"`
	SubLocations []string `json:"sub_locations,omitempty"`
}

// Catalog maps location names to their remote pages. It is static per
// deployment; the remote does not expose a discovery endpoint.
type Catalog struct {
	BaseURL   string
	LoginPath string
	locations map[string]Location
}

// DefaultCatalog covers the venues the system was originally pointed at.
func DefaultCatalog(baseURL string) Catalog {
	c := Catalog{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		LoginPath: "/pages/login",
		locations: map[string]Location{},
	}
	for _, loc := range []Location{
		{Name: "hall-x1", Path: "/booking", FilterText: "Hall X1"},
		{Name: "hall-x2", Path: "/booking", FilterText: "Hall X2", SubLocations: []string{"court-1", "court-2"}},
		{Name: "fitness", Path: "/booking", FilterText: "Fitness"},
	} {
		c.locations[loc.Name] = loc
	}
	return c
}

// CatalogFromEnv builds the catalog from REMOTE_BASE_URL and, when set,
// REMOTE_LOCATIONS_JSON (an array of Location objects replacing the default
// set). A malformed override is rejected rather than partially applied.
func CatalogFromEnv(logger *slog.Logger) (Catalog, error) {
	base := os.Getenv("REMOTE_BASE_URL")
	if base == "" {
		return Catalog{}, fmt.Errorf("remote: REMOTE_BASE_URL is required")
	}
	c := DefaultCatalog(base)
	if path := os.Getenv("REMOTE_LOGIN_PATH"); path != "" {
		c.LoginPath = path
	}

	raw := os.Getenv("REMOTE_LOCATIONS_JSON")
	if raw == "" {
		return c, nil
	}
	var locs []Location
	if err := json.Unmarshal([]byte(raw), &locs); err != nil {
		return Catalog{}, fmt.Errorf("remote: parse REMOTE_LOCATIONS_JSON: %w", err)
	}
	if len(locs) == 0 {
		return Catalog{}, fmt.Errorf("remote: REMOTE_LOCATIONS_JSON is empty")
	}
	c.locations = map[string]Location{}
	for _, loc := range locs {
		if loc.Name == "" || loc.Path == "" {
			return Catalog{}, fmt.Errorf("remote: location entry missing name or path")
		}
		c.locations[loc.Name] = loc
	}
	logger.Info("location catalog loaded from environment", "locations", len(locs))
	return c, nil
}

func (c Catalog) Lookup(name string) (Location, bool) {
	loc, ok := c.locations[name]
	return loc, ok
}

// Names returns the configured location names in no particular order.
func (c Catalog) Names() []string {
	out := make([]string, 0, len(c.locations))
	for name := range c.locations {
		out = append(out, name)
	}
	return out
}

func (c Catalog) LoginURL() string { return c.BaseURL + c.LoginPath }

func (c Catalog) ListingURL(loc Location) string { return c.BaseURL + loc.Path }
