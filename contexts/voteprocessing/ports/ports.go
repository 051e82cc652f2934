package ports

import (
	"context"
	"time"

	"votepipeline/contexts/voteprocessing/domain/entities"
)

// ClaimOutcome is the result of the credential store's atomic
// add-if-absent primitive against the cast-credential set C.
type ClaimOutcome int

const (
	// ClaimNew means the caller is the unique claimer: the linearization
	// point for deciding a fingerprint has cast its one allowed ballot.
	ClaimNew ClaimOutcome = iota
	ClaimDuplicate
)

// CredentialStore is the three-operation contract validation workers rely
// on: a membership test against the valid-credential set, an atomic claim
// against the cast-credential set, and attempt-count bookkeeping for
// duplicates. Implementations must propagate connection loss as a plain
// error so the worker can classify it as transient/requeue.
type CredentialStore interface {
	// IsValid tests whether f is in the valid-credential set V. It does not
	// consult the cast-credential set C.
	IsValid(ctx context.Context, f entities.Fingerprint) (bool, error)
	// Claim attempts to insert f into C. Returns ClaimNew exactly once per
	// fingerprint, ClaimDuplicate for every subsequent caller.
	Claim(ctx context.Context, f entities.Fingerprint) (ClaimOutcome, error)
	// RecordDuplicate atomically increments D[f] and returns the new value.
	RecordDuplicate(ctx context.Context, f entities.Fingerprint) (int, error)
}

// AuditRepository owns the immutable audit log.
type AuditRepository interface {
	// InsertAudit writes an audit row. Implementations must surface a
	// uniqueness conflict on (fingerprint, ballot_scope) WHERE status =
	// accepted as ErrAuditConflict so the worker can re-classify.
	InsertAudit(ctx context.Context, record entities.AuditRecord) error
	// CountAccepted returns the number of accepted audit rows for a ballot
	// scope, used by the reconciliation report.
	CountAccepted(ctx context.Context, ballotScope string) (int64, error)
}

// ErrAuditConflict is returned by AuditRepository.InsertAudit when the
// (fingerprint, ballot_scope) unique index rejects an accepted-status
// insert — the store's second line of defense against a double claim,
// behind the credential store's own atomic claim.
var ErrAuditConflict = auditConflictError{}

type auditConflictError struct{}

func (auditConflictError) Error() string {
	return "audit conflict: fingerprint already accepted for this ballot scope"
}

// TallyRepository owns the law/election tally upserts applied by the
// aggregator, batched within a single transaction per flush.
type TallyRepository interface {
	ApplyLawDeltas(ctx context.Context, deltas []entities.LawTallyDelta) error
	ApplyElectionDeltas(ctx context.Context, deltas []entities.ElectionTallyDelta) error
	GetLawTally(ctx context.Context, ballotID string) (entities.LawTally, error)
	GetElectionTally(ctx context.Context, electionID, regionID int64) ([]entities.ElectionTally, error)
}

// ElectionRepository resolves election windows for ingestion's window
// check and the worker's optional belt-and-suspenders recheck.
type ElectionRepository interface {
	GetElection(ctx context.Context, electionID int64) (entities.Election, error)
	ListElections(ctx context.Context) ([]entities.Election, error)
}

// EventEnvelope is the message-bus wire unit. Data holds a JSON-encoded
// contracts.Envelope whose own Data field carries the domain envelope;
// application.EncodeEnvelope/DecodeEnvelope do the wrapping.
type EventEnvelope struct {
	MessageID string
	Data      []byte
}

// AckFunc acknowledges a delivered message. NackFunc negatively
// acknowledges it: requeue=true asks for redelivery, requeue=false removes
// the message from its queue. No dead-letter target is declared, so a
// message nacked without requeue reaches the review stream only if the
// caller published it there first.
type AckFunc func(ctx context.Context) error
type NackFunc func(ctx context.Context, requeue bool) error

// Delivery pairs a received envelope with its ack/nack handles, so a
// consumer's handler controls the single broker acknowledgment owed per
// message.
type Delivery struct {
	Envelope EventEnvelope
	Ack      AckFunc
	Nack     NackFunc
}

// MessageBus is the durable, at-least-once bus carrying the validation,
// aggregation, and review streams. Publish only returns once the broker
// has confirmed the message; Consume delivers messages with a bounded
// prefetch and leaves acknowledgment to the handler.
type MessageBus interface {
	// Publish confirms delivery to the named stream within confirmTimeout,
	// returning ErrPublishTimeout (classified by callers as transient) if
	// the broker does not confirm in time.
	Publish(ctx context.Context, stream string, envelope EventEnvelope, confirmTimeout time.Duration) error
	// Consume delivers messages from stream to handler with the given
	// prefetch bound, until ctx is cancelled.
	Consume(ctx context.Context, stream string, prefetch int, handler func(Delivery)) error
}

// Clock abstracts time.Now() for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now().
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// IDGenerator produces opaque request identifiers returned to ingestion
// clients on 202 Accepted.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
