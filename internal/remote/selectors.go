package remote

import "time"

// Selectors for the remote booking interface. The remote tags its elements
// with data-test-id attributes, which survive styling changes much better
// than class chains.
const (
	selLoginHeader     = "h1[data-test-id='login-page-header']"
	selFederatedLogin  = "button[data-test-id='oidc-login-button']"
	selUsernameInput   = "input[data-test-id='username-input']"
	selPasswordInput   = "input[data-test-id='password-input']"
	selLoginSubmit     = "button[data-test-id='login-submit']"
	selAccountMenu     = "div[data-test-id='account-menu']"
	selDatePicker      = "input[data-test-id='booking-date-picker']"
	selTagFilterInput  = "input[data-test-id='tag-filter-input']"
	selAllSpacesToggle = "span[data-test-id='all-spaces-toggle']"

	selSlotList      = "div[data-test-id='bookable-slot-list']"
	selSlotCard      = "div[data-test-id='bookable-slot']"
	selSlotStartTime = "p[data-test-id='bookable-slot-start-time']"
	selSlotSpotsFull = "div[data-test-id='bookable-slot-spots-full']"
	selSlotCapacity  = "span[data-test-id='bookable-slot-spots']"
	selSlotBook      = "button[data-test-id='bookable-slot-book-button']"

	selConfirmBook     = "button[data-test-id='details-book-button']"
	selSuccessIcon     = "i[data-test-id='booking-success']"
	selSuccessHeading  = "h4[data-test-id='booking-success-heading']"
	selSuccessRefLabel = "span[data-test-id='booking-reference']"
)

const (
	// defaultWaitTimeout bounds waits for ordinary page elements.
	defaultWaitTimeout = 10 * time.Second
	// defaultVerifyTimeout bounds the post-confirm success wait. Expiry is
	// ambiguous: the booking may or may not have landed.
	defaultVerifyTimeout = 15 * time.Second
	// toggleWaitTimeout bounds the optional all-spaces toggle, which some
	// locations do not render at all.
	toggleWaitTimeout = 2 * time.Second
)
