package entities

import "time"

// Kind discriminates a validation-stream envelope's ballot style.
type Kind string

const (
	KindLaw      Kind = "law"
	KindElection Kind = "election"
)

// Status is the terminal classification a validation worker assigns to an
// envelope before forwarding it downstream.
type Status string

const (
	StatusAccepted  Status = "accepted"
	StatusDuplicate Status = "duplicate"
	StatusInvalid   Status = "invalid"
)

// LawPayload is the law-ballot arm of an Envelope.
type LawPayload struct {
	BallotID string `json:"ballot_id"`
	Choice   Choice `json:"choice"`
}

// ElectionPayload is the election-ballot arm of an Envelope. Exactly one of
// SingleChoice / RankedChoices is populated, matching Method.
type ElectionPayload struct {
	ElectionID    int64          `json:"election_id"`
	RegionID      int64          `json:"region_id"`
	Method        ElectionMethod `json:"method"`
	SingleChoice  *int64         `json:"single_choice,omitempty"`
	RankedChoices []int64        `json:"ranked_choices,omitempty"`
}

// FirstPreference returns the candidate credited by the tally for an
// election payload: the single choice, or the first entry of a ranked
// ballot. ok is false only if the payload is malformed (no candidate at
// all), which validated envelopes never exhibit.
func (p ElectionPayload) FirstPreference() (candidateID int64, ok bool) {
	switch p.Method {
	case MethodSingle:
		if p.SingleChoice == nil {
			return 0, false
		}
		return *p.SingleChoice, true
	case MethodRanked:
		if len(p.RankedChoices) == 0 {
			return 0, false
		}
		return p.RankedChoices[0], true
	default:
		return 0, false
	}
}

// Envelope is the canonical in-pipeline representation of a ballot: it
// carries the fingerprint and choice payload but never the raw nas/code.
// It is the payload of contracts/gen/events/v1.Envelope.Data on the
// validation, aggregation, and review streams.
type Envelope struct {
	Kind        Kind             `json:"kind"`
	Fingerprint Fingerprint      `json:"fingerprint"`
	ReceivedAt  time.Time        `json:"received_at"`
	Law         *LawPayload      `json:"law,omitempty"`
	Election    *ElectionPayload `json:"election,omitempty"`

	// Populated once a validation worker has classified the envelope; absent
	// on the wire between ingestion and validation.
	Status       Status `json:"status,omitempty"`
	AttemptCount int    `json:"attempt_count,omitempty"`
}

// BallotScope returns the scope string an Envelope's fingerprint is bound
// to: the law ballot_id, or the election scope id derived from ElectionID.
func (e Envelope) BallotScope() string {
	switch e.Kind {
	case KindLaw:
		if e.Law == nil {
			return ""
		}
		return e.Law.BallotID
	case KindElection:
		if e.Election == nil {
			return ""
		}
		return ElectionScopeID(e.Election.ElectionID)
	default:
		return ""
	}
}

// ChoicePayload returns the portion of the envelope worth preserving in
// the audit record's choice_payload column: the law choice, or the full
// election payload (ranked lists are kept in full for later re-tabulation
// even though only the first preference is tallied).
func (e Envelope) ChoicePayload() any {
	switch e.Kind {
	case KindLaw:
		return e.Law
	case KindElection:
		return e.Election
	default:
		return nil
	}
}
