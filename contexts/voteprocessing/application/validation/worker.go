// Package validation implements the validation worker: the only component
// that mutates the cast-credential set C and the duplicate-attempt counter
// D. Its algorithm is authenticate, then claim, then audit, then forward,
// then ack — in that fixed order, so a crash at any point leaves the
// system in one of the tolerable states worked out by the protocol.
package validation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"votepipeline/contexts/voteprocessing/application"
	"votepipeline/contexts/voteprocessing/domain/entities"
	domainerrors "votepipeline/contexts/voteprocessing/domain/errors"
	"votepipeline/contexts/voteprocessing/ports"
)

// Worker consumes envelopes from a validation stream and drives each one
// through RECEIVED -> AUTHENTICATED? -> CLAIMED? -> AUDITED -> FORWARDED ->
// ACKED. A single Worker value is safe to run concurrently for both the
// law and election validation streams; it carries no per-message state.
type Worker struct {
	Credentials    ports.CredentialStore
	Audit          ports.AuditRepository
	Tallies        ports.TallyRepository
	Elections      ports.ElectionRepository
	Bus            ports.MessageBus
	Clock          ports.Clock
	ConfirmTimeout time.Duration

	// MessageDeadline bounds every network call a single delivery makes
	// (authenticate, claim, audit insert, forward). Exceeding it cancels
	// the chain and the delivery is nacked with requeue, the same as any
	// other transient failure. Zero means 30s.
	MessageDeadline time.Duration

	// EnforceElectionWindow turns on a belt-and-suspenders window check at
	// the worker, in addition to ingestion's own check. Ingestion always
	// enforces the window at submit time; this toggle additionally rejects
	// envelopes as invalid if the window has since closed by the time the
	// worker processes them.
	EnforceElectionWindow bool

	// Cache, when set, backs the window check with a periodically
	// refreshed snapshot instead of a repository hit per delivery. Nil
	// falls back to a direct Elections.GetElection call.
	Cache *ElectionWindowCache

	Logger *slog.Logger
}

// Run drives one Consume loop against stream, forwarding each delivery to
// handleDelivery. It returns only when ctx is cancelled or the bus
// reports an unrecoverable consume error.
func (w Worker) Run(ctx context.Context, stream string, prefetch int) error {
	return w.Bus.Consume(ctx, stream, prefetch, func(delivery ports.Delivery) {
		w.handleDelivery(ctx, delivery)
	})
}

func (w Worker) handleDelivery(ctx context.Context, delivery ports.Delivery) {
	logger := application.ResolveLogger(w.Logger)

	deadline := w.MessageDeadline
	if deadline <= 0 {
		deadline = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	envelope, err := application.DecodeEnvelope(delivery.Envelope.Data)
	if err != nil {
		w.rejectMalformed(ctx, delivery, err)
		return
	}

	if !envelope.Fingerprint.Valid() {
		w.reject(ctx, delivery, envelope, entities.StatusInvalid, 0, domainerrors.ErrFingerprintShape)
		return
	}

	if w.EnforceElectionWindow && envelope.Kind == entities.KindElection && envelope.Election != nil {
		if w.Cache != nil {
			election, known := w.Cache.Lookup(envelope.Election.ElectionID)
			if known && !election.Open(w.now()) {
				w.reject(ctx, delivery, envelope, entities.StatusInvalid, 0, domainerrors.ErrElectionClosed)
				return
			}
		} else if w.Elections != nil {
			election, err := w.Elections.GetElection(ctx, envelope.Election.ElectionID)
			if err != nil && !errors.Is(err, domainerrors.ErrElectionNotFound) {
				w.requeue(ctx, delivery, "election_lookup_transient", err)
				return
			}
			if err == nil && !election.Open(w.now()) {
				w.reject(ctx, delivery, envelope, entities.StatusInvalid, 0, domainerrors.ErrElectionClosed)
				return
			}
		}
	}

	valid, err := w.Credentials.IsValid(ctx, envelope.Fingerprint)
	if err != nil {
		w.requeue(ctx, delivery, "authenticate_transient", err)
		return
	}
	if !valid {
		logger.Info("envelope authentication failed",
			"event", "validation_envelope_invalid",
			"module", "contexts/voteprocessing/application/validation",
			"layer", "worker",
			"fingerprint", envelope.Fingerprint.String(),
		)
		w.reject(ctx, delivery, envelope, entities.StatusInvalid, 0, nil)
		return
	}

	outcome, err := w.Credentials.Claim(ctx, envelope.Fingerprint)
	if err != nil {
		w.requeue(ctx, delivery, "claim_transient", err)
		return
	}
	if outcome == ports.ClaimDuplicate {
		w.rejectDuplicate(ctx, delivery, envelope)
		return
	}

	if err := w.insertAcceptedAudit(ctx, envelope); err != nil {
		if errors.Is(err, ports.ErrAuditConflict) {
			w.resolveAuditConflict(ctx, delivery, envelope)
			return
		}
		w.requeue(ctx, delivery, "audit_insert_transient", err)
		return
	}

	if err := w.forward(ctx, envelope); err != nil {
		w.requeue(ctx, delivery, "forward_transient", err)
		return
	}

	if err := delivery.Ack(ctx); err != nil {
		logger.Error("ack failed after successful forward",
			"event", "validation_ack_failed",
			"module", "contexts/voteprocessing/application/validation",
			"layer", "worker",
			"fingerprint", envelope.Fingerprint.String(),
			"error", err.Error(),
		)
	}
}

// resolveAuditConflict handles the fatal-invariant-violation branch: an
// accepted-audit insert collided with an existing accepted row for an
// envelope this worker's Claim call believed was new. The worker calls
// Claim again; if it reports duplicate, the envelope is re-classified as a
// duplicate. If it reports new (f was absent from C and this call has now
// inserted it), the worker logs a fatal-inconsistency error and nacks the
// delivery without requeue; it keeps consuming afterwards.
func (w Worker) resolveAuditConflict(ctx context.Context, delivery ports.Delivery, envelope entities.Envelope) {
	logger := application.ResolveLogger(w.Logger)
	outcome, err := w.Credentials.Claim(ctx, envelope.Fingerprint)
	if err != nil {
		w.requeue(ctx, delivery, "audit_conflict_reclaim_transient", err)
		return
	}
	if outcome == ports.ClaimDuplicate {
		logger.Warn("audit conflict resolved as duplicate",
			"event", "validation_audit_conflict_resolved",
			"module", "contexts/voteprocessing/application/validation",
			"layer", "worker",
			"fingerprint", envelope.Fingerprint.String(),
		)
		w.rejectDuplicate(ctx, delivery, envelope)
		return
	}
	logger.Error("fatal invariant violation: audit conflict without a claimed credential",
		"event", "validation_fatal_inconsistency",
		"module", "contexts/voteprocessing/application/validation",
		"layer", "worker",
		"fingerprint", envelope.Fingerprint.String(),
	)
	_ = delivery.Nack(ctx, false)
}

func (w Worker) rejectDuplicate(ctx context.Context, delivery ports.Delivery, envelope entities.Envelope) {
	logger := application.ResolveLogger(w.Logger)
	count, err := w.Credentials.RecordDuplicate(ctx, envelope.Fingerprint)
	if err != nil {
		w.requeue(ctx, delivery, "record_duplicate_transient", err)
		return
	}
	logger.Info("duplicate envelope observed",
		"event", "validation_envelope_duplicate",
		"module", "contexts/voteprocessing/application/validation",
		"layer", "worker",
		"fingerprint", envelope.Fingerprint.String(),
		"attempt_count", count,
	)
	w.reject(ctx, delivery, envelope, entities.StatusDuplicate, count, nil)
}

// reject handles both the invalid and duplicate terminal branches: write
// the audit row, republish to review with the resolved status, and ack.
func (w Worker) reject(ctx context.Context, delivery ports.Delivery, envelope entities.Envelope, status entities.Status, attemptCount int, cause error) {
	logger := application.ResolveLogger(w.Logger)

	record := entities.AuditRecord{
		Fingerprint:   envelope.Fingerprint,
		BallotScope:   envelope.BallotScope(),
		ChoicePayload: envelope.ChoicePayload(),
		Status:        status,
		AttemptCount:  attemptCount,
		ReceivedAt:    envelope.ReceivedAt,
		ProcessedAt:   w.now(),
	}
	if cause != nil {
		record.Error = cause.Error()
	}
	if err := w.Audit.InsertAudit(ctx, record); err != nil {
		w.requeue(ctx, delivery, "reject_audit_insert_transient", err)
		return
	}

	envelope.Status = status
	envelope.AttemptCount = attemptCount
	if err := w.forwardTo(ctx, application.StreamReview, envelope); err != nil {
		w.requeue(ctx, delivery, "review_forward_transient", err)
		return
	}

	if err := delivery.Ack(ctx); err != nil {
		logger.Error("ack failed after review forward",
			"event", "validation_ack_failed",
			"module", "contexts/voteprocessing/application/validation",
			"layer", "worker",
			"fingerprint", envelope.Fingerprint.String(),
			"error", err.Error(),
		)
	}
}

func (w Worker) insertAcceptedAudit(ctx context.Context, envelope entities.Envelope) error {
	record := entities.AuditRecord{
		Fingerprint:   envelope.Fingerprint,
		BallotScope:   envelope.BallotScope(),
		ChoicePayload: envelope.ChoicePayload(),
		Status:        entities.StatusAccepted,
		ReceivedAt:    envelope.ReceivedAt,
		ProcessedAt:   w.now(),
	}
	return w.Audit.InsertAudit(ctx, record)
}

func (w Worker) forward(ctx context.Context, envelope entities.Envelope) error {
	envelope.Status = entities.StatusAccepted
	return w.forwardTo(ctx, application.StreamAggregation, envelope)
}

func (w Worker) forwardTo(ctx context.Context, stream string, envelope entities.Envelope) error {
	data, err := application.EncodeEnvelope(envelope, w.now())
	if err != nil {
		return fmt.Errorf("encode envelope for %s: %w", stream, err)
	}
	timeout := w.ConfirmTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return w.Bus.Publish(ctx, stream, ports.EventEnvelope{Data: data}, timeout)
}

// rejectMalformed handles the structural, never-parseable case: the raw
// bytes are republished verbatim to review (there is nothing to
// re-encode) and the input is nacked without requeue.
func (w Worker) rejectMalformed(ctx context.Context, delivery ports.Delivery, cause error) {
	logger := application.ResolveLogger(w.Logger)
	logger.Error("malformed envelope received",
		"event", "validation_envelope_malformed",
		"module", "contexts/voteprocessing/application/validation",
		"layer", "worker",
		"error", cause.Error(),
	)

	timeout := w.ConfirmTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if err := w.Bus.Publish(ctx, application.StreamReview, delivery.Envelope, timeout); err != nil {
		logger.Error("malformed envelope review forward failed",
			"event", "validation_malformed_review_forward_failed",
			"module", "contexts/voteprocessing/application/validation",
			"layer", "worker",
			"error", err.Error(),
		)
	}
	_ = delivery.Nack(ctx, false)
}

func (w Worker) requeue(ctx context.Context, delivery ports.Delivery, reason string, cause error) {
	logger := application.ResolveLogger(w.Logger)
	logger.Warn("transient failure, requeueing envelope",
		"event", "validation_transient_requeue",
		"module", "contexts/voteprocessing/application/validation",
		"layer", "worker",
		"reason", reason,
		"error", cause.Error(),
	)
	_ = delivery.Nack(ctx, true)
}

func (w Worker) now() time.Time {
	if w.Clock != nil {
		return w.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
