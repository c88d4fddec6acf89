package domain

import "errors"

var (
	// ErrCatalogUnavailable means the prize catalog could not be fetched;
	// drawing is disabled until a manual refresh succeeds.
	ErrCatalogUnavailable = errors.New("luckydraw: catalog unavailable")

	// ErrDrawFailed means the draw request failed or returned an
	// unparseable prize; no state was changed.
	ErrDrawFailed = errors.New("luckydraw: draw failed")

	// ErrDecisionActive means a new draw was attempted while the current
	// decision window is still open.
	ErrDecisionActive = errors.New("luckydraw: decision window still open")

	// ErrNotPending means pay/abandon was attempted outside an open
	// decision window. A contract violation by the caller, not a
	// user-facing condition.
	ErrNotPending = errors.New("luckydraw: no pending decision")

	// ErrSubmissionInProgress means a settlement call is already in
	// flight for the pending decision. Rejected locally, before any
	// network round trip.
	ErrSubmissionInProgress = errors.New("luckydraw: submission already in progress")

	// ErrSettlementFailed means the server rejected or the transport
	// dropped a pay/manual-abandon call; the decision stays pending while
	// time remains.
	ErrSettlementFailed = errors.New("luckydraw: settlement failed")

	// ErrOrderNotFound is the explicit "no paid order yet" outcome,
	// distinct from a transport failure.
	ErrOrderNotFound = errors.New("luckydraw: no lottery order")
)
