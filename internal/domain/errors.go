package domain

import "errors"

var (
	// ErrSessionNotFound is returned for operations against a session id
	// that was never initialized.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned once a session's timeout elapsed. The
	// caller surfaces a replacement session id so the client can renew.
	ErrSessionExpired = errors.New("session expired")

	// ErrConflict is returned when re-initializing an active session or
	// test with incompatible parameters. Conflicts are rejected, not merged.
	ErrConflict = errors.New("conflicting re-initialization")

	// ErrTestCompleted is returned for mutations against a completed test.
	ErrTestCompleted = errors.New("test completed")

	// ErrInvalidTransition is returned for pause/resume calls from a state
	// that does not allow them.
	ErrInvalidTransition = errors.New("invalid test state transition")

	// ErrTestNotFound is returned for operations against an unknown test.
	ErrTestNotFound = errors.New("test not found")

	// ErrNoLandingPage means neither a segment nor the campaign default
	// resolved to a landing page. Surfaced as not-found, never a 5xx.
	ErrNoLandingPage = errors.New("no landing page resolved")

	// ErrCampaignNotFound is returned when the config store has no campaign
	// for the requested host/slug.
	ErrCampaignNotFound = errors.New("campaign not found")

	// ErrMalformedRule marks invalid rule configuration, e.g. a "between"
	// without a 2-element value. Fatal configuration error, not a silent
	// pass.
	ErrMalformedRule = errors.New("malformed segment rule")

	// ErrTokenNotFound is returned when a click id does not resolve.
	ErrTokenNotFound = errors.New("click token not found")
)
