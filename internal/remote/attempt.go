package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"slotsniper/internal/automation"
)

// Commit attempts to claim a listed slot: book on the card, confirm in the
// details pane, then verify the success markers. The returned reference is
// the remote's confirmation text when it exposes one.
//
// An expired verification wait returns ErrVerificationTimeout. At that point
// the booking may have landed anyway; callers must treat the slot as spent
// for the current pass.
func (c *Client) Commit(ctx context.Context, slot ListedSlot) (string, error) {
	if slot.card == nil {
		return "", fmt.Errorf("%w: stale card handle", ErrSlotUnbookable)
	}

	books, err := c.sess.FindAll(ctx, slot.card, selSlotBook)
	if err != nil {
		return "", fmt.Errorf("remote: book button: %w", err)
	}
	if len(books) == 0 {
		return "", fmt.Errorf("%w: no book action on card", ErrSlotUnbookable)
	}
	if err := c.sess.Click(ctx, books[0]); err != nil {
		return "", fmt.Errorf("remote: click book: %w", err)
	}

	confirm, err := c.sess.WaitFor(ctx, selConfirmBook, c.waitTimeout)
	if err != nil {
		if errors.Is(err, automation.ErrWaitTimeout) {
			// No details pane means the slot was taken between render and
			// click. Nothing was committed.
			return "", fmt.Errorf("%w: confirm pane never opened", ErrSlotUnbookable)
		}
		return "", fmt.Errorf("remote: confirm pane: %w", err)
	}
	if err := c.sess.Click(ctx, confirm); err != nil {
		return "", fmt.Errorf("remote: click confirm: %w", err)
	}

	// Past this point the claim is in flight. Only the success markers tell
	// us it landed.
	if _, err := c.sess.WaitFor(ctx, selSuccessIcon, c.verifyTimeout); err != nil {
		if errors.Is(err, automation.ErrWaitTimeout) {
			return "", ErrVerificationTimeout
		}
		return "", fmt.Errorf("remote: success icon: %w", err)
	}
	if _, err := c.sess.WaitFor(ctx, selSuccessHeading, c.verifyTimeout); err != nil {
		if errors.Is(err, automation.ErrWaitTimeout) {
			return "", ErrVerificationTimeout
		}
		return "", fmt.Errorf("remote: success heading: %w", err)
	}

	ref := ""
	if refs, err := c.sess.FindAll(ctx, nil, selSuccessRefLabel); err == nil && len(refs) > 0 {
		if text, err := c.sess.ReadText(ctx, refs[0]); err == nil {
			ref = strings.TrimSpace(text)
		}
	}
	c.logger.Info("booking committed",
		"location", slot.Location,
		"date", slot.Date.Format("2006-01-02"),
		"time", slot.Time.String(),
		"reference", ref)
	return ref, nil
}
