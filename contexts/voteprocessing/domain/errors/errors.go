package errors

import "errors"

var (
	// Shape errors, detected synchronously by ingestion.
	ErrInvalidNAS           = errors.New("nas must be exactly 9 decimal digits")
	ErrInvalidCode          = errors.New("code must be exactly 6 alphanumeric characters")
	ErrInvalidBallotID      = errors.New("ballot_id must be 1-50 characters")
	ErrInvalidChoice        = errors.New("choice must be yes or no")
	ErrInvalidElectionID    = errors.New("election_id must be a positive integer")
	ErrInvalidRegionID      = errors.New("region_id must be a positive integer")
	ErrInvalidMethod        = errors.New("method must be single or ranked")
	ErrInvalidChoicePayload = errors.New("choice payload does not match method")
	ErrDuplicateRankedEntry = errors.New("ranked_choices must not contain duplicate candidate ids")
	ErrElectionClosed       = errors.New("election is not open for voting")
	ErrElectionNotFound     = errors.New("election not found")

	// Worker/aggregator-detected conditions.
	ErrMalformedEnvelope  = errors.New("envelope is malformed")
	ErrFingerprintShape   = errors.New("fingerprint is not 64 hex characters")
	ErrFatalInconsistency = errors.New("fatal invariant violation: audit conflict without claim")

	// Infrastructure / transport.
	ErrBusUnavailable   = errors.New("message bus unavailable")
	ErrStoreUnavailable = errors.New("credential store unavailable")
	ErrPublishTimeout   = errors.New("publish confirmation timed out")

	// Read-side.
	ErrBallotNotFound = errors.New("ballot not found")
)
