package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"slotsniper/internal/automation/automationtest"
	"slotsniper/internal/model"
)

var listingDate = time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

type fakeLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (l *fakeLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.keys = append(l.keys, key)
	return l.allow, l.err
}

func slotCard(start string, children ...*automationtest.Element) *automationtest.Element {
	kids := append([]*automationtest.Element{
		automationtest.El(selSlotStartTime, start),
	}, children...)
	return automationtest.El(selSlotCard, "", kids...)
}

// listingClient wires a fake remote rendering the given slot cards.
func listingClient(t *testing.T, limiter Limiter, cards ...*automationtest.Element) (*Client, *automationtest.Session) {
	t.Helper()
	catalog := DefaultCatalog("https://booking.example")
	loc, _ := catalog.Lookup("hall-x1")

	sess := automationtest.NewSession()
	sess.Pages[catalog.ListingURL(loc)] = []*automationtest.Element{
		automationtest.El(selDatePicker, ""),
		automationtest.El(selTagFilterInput, ""),
		automationtest.El(selSlotList, "", cards...),
	}
	auth := NewAuth(sess, testCreds(), catalog, nil)
	return NewClient(sess, auth, catalog, limiter, nil), sess
}

func TestFetchListingParsesCards(t *testing.T) {
	full := slotCard("10:00",
		automationtest.El(selSlotSpotsFull, "Full"),
		automationtest.El(selSlotCapacity, "Full"))
	dimmed := slotCard("11:00")
	dimmed.Attrs = map[string]string{"class": "slot-card opacity-50"}

	client, sess := listingClient(t, nil,
		slotCard("09:00", automationtest.El(selSlotCapacity, "5 spots left")),
		full,
		dimmed,
	)

	slots, err := client.FetchListing(context.Background(), "hall-x1", listingDate)
	if err != nil {
		t.Fatalf("FetchListing: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("got %d slots, want 3", len(slots))
	}

	if got := sess.SetValues[selDatePicker]; got != "2026-03-14" {
		t.Fatalf("date filter = %q", got)
	}
	if got := sess.SetValues[selTagFilterInput]; got != "Hall X1" {
		t.Fatalf("tag filter = %q", got)
	}

	first := slots[0]
	if first.Time != model.NewTimeOfDay(9, 0) || !first.Bookable() {
		t.Fatalf("first slot = %+v, want bookable 09:00", first.Slot)
	}
	if first.RemainingCapacity == nil || *first.RemainingCapacity != 5 {
		t.Fatalf("first slot capacity = %v, want 5", first.RemainingCapacity)
	}

	second := slots[1]
	if !second.MarkedFull || second.Bookable() {
		t.Fatalf("second slot = %+v, want full and unbookable", second.Slot)
	}
	if second.RemainingCapacity == nil || *second.RemainingCapacity != 0 {
		t.Fatalf("second slot capacity = %v, want 0", second.RemainingCapacity)
	}

	third := slots[2]
	if third.Available || third.Bookable() {
		t.Fatalf("third slot = %+v, want dimmed and unbookable", third.Slot)
	}
}

func TestFetchListingSkipsUnparsableCards(t *testing.T) {
	client, _ := listingClient(t, nil,
		slotCard("not a time"),
		slotCard("12:00"),
	)

	slots, err := client.FetchListing(context.Background(), "hall-x1", listingDate)
	if err != nil {
		t.Fatalf("FetchListing: %v", err)
	}
	if len(slots) != 1 || slots[0].Time != model.NewTimeOfDay(12, 0) {
		t.Fatalf("slots = %v, want only the 12:00 card", slots)
	}
}

func TestFetchListingEmptyWhenListNeverRenders(t *testing.T) {
	catalog := DefaultCatalog("https://booking.example")
	loc, _ := catalog.Lookup("hall-x1")
	sess := automationtest.NewSession()
	sess.Pages[catalog.ListingURL(loc)] = []*automationtest.Element{
		automationtest.El(selDatePicker, ""),
		automationtest.El(selTagFilterInput, ""),
	}
	client := NewClient(sess, NewAuth(sess, testCreds(), catalog, nil), catalog, nil, nil)

	slots, err := client.FetchListing(context.Background(), "hall-x1", listingDate)
	if err != nil {
		t.Fatalf("FetchListing: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("got %d slots, want none", len(slots))
	}
}

func TestFetchListingUnknownLocation(t *testing.T) {
	client, _ := listingClient(t, nil)
	_, err := client.FetchListing(context.Background(), "nowhere", listingDate)
	if !errors.Is(err, ErrUnknownLocation) {
		t.Fatalf("err = %v, want ErrUnknownLocation", err)
	}
}

func TestFetchListingThrottled(t *testing.T) {
	limiter := &fakeLimiter{allow: false}
	client, _ := listingClient(t, limiter, slotCard("09:00"))

	_, err := client.FetchListing(context.Background(), "hall-x1", listingDate)
	if !errors.Is(err, ErrThrottled) {
		t.Fatalf("err = %v, want ErrThrottled", err)
	}
	if len(limiter.keys) != 1 || limiter.keys[0] != "probe:hall-x1" {
		t.Fatalf("limiter keys = %v", limiter.keys)
	}
}

func TestFetchListingLimiterFailsOpen(t *testing.T) {
	limiter := &fakeLimiter{err: errors.New("redis down")}
	client, _ := listingClient(t, limiter, slotCard("09:00"))

	slots, err := client.FetchListing(context.Background(), "hall-x1", listingDate)
	if err != nil {
		t.Fatalf("FetchListing: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("got %d slots, want 1 despite limiter outage", len(slots))
	}
}

func TestParseSpots(t *testing.T) {
	five := 5
	one := 1
	zero := 0
	cases := []struct {
		in   string
		want *int
	}{
		{"5 spots left", &five},
		{"1 spot left", &one},
		{"Full", &zero},
		{" full ", &zero},
		{"", nil},
		{"unknown", nil},
		{"-3 spots left", nil},
	}
	for _, tc := range cases {
		got := parseSpots(tc.in)
		switch {
		case got == nil && tc.want == nil:
		case got == nil || tc.want == nil || *got != *tc.want:
			t.Errorf("parseSpots(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
