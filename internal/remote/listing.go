package remote

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"slotsniper/internal/automation"
	"slotsniper/internal/model"
)

// ListedSlot pairs a parsed slot with its rendered card. The card handle is
// only valid until the next navigation or listing fetch.
type ListedSlot struct {
	model.Slot
	card automation.Element
}

// FetchListing navigates to the location's listing page, applies the date
// and location filters, and parses every rendered slot card. Cards that fail
// to parse are skipped with a warning rather than failing the whole fetch.
func (c *Client) FetchListing(ctx context.Context, location string, date time.Time) ([]ListedSlot, error) {
	loc, ok := c.catalog.Lookup(location)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLocation, location)
	}
	if err := c.allowProbe(ctx, location); err != nil {
		return nil, err
	}

	if err := c.sess.Navigate(ctx, c.catalog.ListingURL(loc)); err != nil {
		return nil, fmt.Errorf("remote: open listing: %w", err)
	}

	picker, err := c.sess.WaitFor(ctx, selDatePicker, c.waitTimeout)
	if err != nil {
		return nil, fmt.Errorf("remote: date picker: %w", err)
	}
	if err := c.sess.SetValueAndDispatchEvent(ctx, picker, date.Format(model.DateFormat)); err != nil {
		return nil, fmt.Errorf("remote: set date: %w", err)
	}

	filter, err := c.sess.WaitFor(ctx, selTagFilterInput, c.waitTimeout)
	if err != nil {
		return nil, fmt.Errorf("remote: tag filter: %w", err)
	}
	if err := c.sess.SetValueAndDispatchEvent(ctx, filter, loc.FilterText); err != nil {
		return nil, fmt.Errorf("remote: set filter: %w", err)
	}

	// Some locations render an extra toggle that collapses sub-spaces.
	// Missing is fine.
	if toggle, err := c.sess.WaitFor(ctx, selAllSpacesToggle, toggleWaitTimeout); err == nil {
		if err := c.sess.Click(ctx, toggle); err != nil {
			return nil, fmt.Errorf("remote: all-spaces toggle: %w", err)
		}
	} else if !errors.Is(err, automation.ErrWaitTimeout) {
		return nil, fmt.Errorf("remote: all-spaces toggle: %w", err)
	}

	list, err := c.sess.WaitFor(ctx, selSlotList, c.waitTimeout)
	if err != nil {
		if errors.Is(err, automation.ErrWaitTimeout) {
			// No list at all means nothing is offered for this date.
			return nil, nil
		}
		return nil, fmt.Errorf("remote: slot list: %w", err)
	}

	cards, err := c.sess.FindAll(ctx, list, selSlotCard)
	if err != nil {
		return nil, fmt.Errorf("remote: slot cards: %w", err)
	}

	observed := time.Now()
	out := make([]ListedSlot, 0, len(cards))
	for _, card := range cards {
		slot, err := c.parseCard(ctx, card, loc, date, observed)
		if err != nil {
			c.logger.Warn("skipping unparsable slot card", "location", location, "error", err)
			continue
		}
		out = append(out, ListedSlot{Slot: slot, card: card})
	}
	return out, nil
}

func (c *Client) parseCard(ctx context.Context, card automation.Element, loc Location, date time.Time, observed time.Time) (model.Slot, error) {
	starts, err := c.sess.FindAll(ctx, card, selSlotStartTime)
	if err != nil {
		return model.Slot{}, err
	}
	if len(starts) == 0 {
		return model.Slot{}, errors.New("no start time element")
	}
	raw, err := c.sess.ReadText(ctx, starts[0])
	if err != nil {
		return model.Slot{}, err
	}
	start, err := model.ParseTimeOfDay(strings.TrimSpace(raw))
	if err != nil {
		return model.Slot{}, err
	}

	slot := model.Slot{
		Location:     loc.Name,
		Date:         date,
		Time:         start,
		Available:    true,
		LastObserved: observed,
	}

	// A dimmed card is not offered for booking at all.
	if class, err := c.sess.ReadAttribute(ctx, card, "class"); err == nil &&
		strings.Contains(class, "opacity-50") {
		slot.Available = false
	}

	fulls, err := c.sess.FindAll(ctx, card, selSlotSpotsFull)
	if err != nil {
		return model.Slot{}, err
	}
	slot.MarkedFull = len(fulls) > 0

	caps, err := c.sess.FindAll(ctx, card, selSlotCapacity)
	if err != nil {
		return model.Slot{}, err
	}
	if len(caps) > 0 {
		text, err := c.sess.ReadText(ctx, caps[0])
		if err != nil {
			return model.Slot{}, err
		}
		slot.RemainingCapacity = parseSpots(text)
	}

	if sub, err := c.sess.ReadAttribute(ctx, card, "data-space"); err == nil && sub != "" {
		slot.SubLocation = sub
	}
	return slot, nil
}

// parseSpots extracts the remaining count from capacity text like
// "5 spots left", "1 spot left" or "Full". Unrecognized text yields nil,
// meaning unknown.
func parseSpots(text string) *int {
	text = strings.TrimSpace(text)
	if strings.EqualFold(text, "Full") {
		zero := 0
		return &zero
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 {
		return nil
	}
	return &n
}
