package entities

import "time"

// AuditRecord is the immutable per-ballot audit row. Uniqueness:
// (fingerprint, ballot_scope) is unique WHERE status = accepted.
type AuditRecord struct {
	ID            int64
	Fingerprint   Fingerprint
	BallotScope   string
	ChoicePayload any
	Status        Status
	AttemptCount  int
	ReceivedAt    time.Time
	ProcessedAt   time.Time
	Error         string
}
