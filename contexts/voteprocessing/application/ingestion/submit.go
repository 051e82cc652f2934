// Package ingestion implements the stateless HTTP front-end's use cases:
// shape-validate a ballot, compute its fingerprint, and hand it to the bus
// with durable-publish semantics. It holds no voting state of its own.
package ingestion

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"votepipeline/contexts/voteprocessing/application"
	"votepipeline/contexts/voteprocessing/domain/entities"
	domainerrors "votepipeline/contexts/voteprocessing/domain/errors"
	"votepipeline/contexts/voteprocessing/ports"
)

var (
	nasPattern  = regexp.MustCompile(`^[0-9]{9}$`)
	codePattern = regexp.MustCompile(`^[A-Za-z0-9]{6}$`)
)

// SubmitUseCase publishes well-formed ballots to the validation stream.
// It never touches the credential store or the audit/tally store directly
// — that split is what lets ingestion stay stateless and horizontally
// scaled.
type SubmitUseCase struct {
	Bus            ports.MessageBus
	Elections      ports.ElectionRepository
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	ConfirmTimeout time.Duration
	Logger         *slog.Logger
}

// SubmitResult is returned to the transport layer on successful publish.
type SubmitResult struct {
	RequestID string
}

// SubmitLaw validates a law ballot, computes its fingerprint, and publishes
// it to the validation/law stream. A shape error never reaches the bus.
func (uc SubmitUseCase) SubmitLaw(ctx context.Context, input entities.LawBallotInput) (SubmitResult, error) {
	logger := application.ResolveLogger(uc.Logger)

	if err := validateLawInput(input); err != nil {
		logger.Warn("law ballot shape validation failed",
			"event", "ingestion_law_validation_failed",
			"module", "contexts/voteprocessing/application/ingestion",
			"layer", "application",
			"ballot_id", input.BallotID,
			"error", err.Error(),
		)
		return SubmitResult{}, err
	}

	fingerprint := entities.ComputeFingerprint(input.NAS, input.Code, strings.TrimSpace(input.BallotID))
	envelope := entities.Envelope{
		Kind:        entities.KindLaw,
		Fingerprint: fingerprint,
		ReceivedAt:  uc.now(),
		Law: &entities.LawPayload{
			BallotID: strings.TrimSpace(input.BallotID),
			Choice:   input.Choice,
		},
	}
	return uc.publish(ctx, application.StreamValidationLaw, envelope, "law", input.BallotID)
}

// SubmitElection validates an election ballot, checks the election window
// (looked up through Elections on every request), computes its
// fingerprint, and publishes it to the validation/election stream.
func (uc SubmitUseCase) SubmitElection(ctx context.Context, input entities.ElectionBallotInput) (SubmitResult, error) {
	logger := application.ResolveLogger(uc.Logger)

	if err := validateElectionInput(input); err != nil {
		logger.Warn("election ballot shape validation failed",
			"event", "ingestion_election_validation_failed",
			"module", "contexts/voteprocessing/application/ingestion",
			"layer", "application",
			"election_id", input.ElectionID,
			"error", err.Error(),
		)
		return SubmitResult{}, err
	}

	if uc.Elections != nil {
		election, err := uc.Elections.GetElection(ctx, input.ElectionID)
		if err != nil {
			return SubmitResult{}, err
		}
		now := uc.now()
		if !election.Open(now) {
			logger.Info("election ballot rejected: window closed",
				"event", "ingestion_election_window_closed",
				"module", "contexts/voteprocessing/application/ingestion",
				"layer", "application",
				"election_id", input.ElectionID,
				"received_at", now.Format(time.RFC3339),
			)
			return SubmitResult{}, domainerrors.ErrElectionClosed
		}
	}

	scope := entities.ElectionScopeID(input.ElectionID)
	fingerprint := entities.ComputeFingerprint(input.NAS, input.Code, scope)
	envelope := entities.Envelope{
		Kind:        entities.KindElection,
		Fingerprint: fingerprint,
		ReceivedAt:  uc.now(),
		Election: &entities.ElectionPayload{
			ElectionID:    input.ElectionID,
			RegionID:      input.RegionID,
			Method:        input.Method,
			SingleChoice:  input.SingleChoice,
			RankedChoices: input.RankedChoices,
		},
	}
	return uc.publish(ctx, application.StreamValidationElection, envelope, "election", scope)
}

func (uc SubmitUseCase) publish(ctx context.Context, stream string, envelope entities.Envelope, kind, scope string) (SubmitResult, error) {
	logger := application.ResolveLogger(uc.Logger)

	requestID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return SubmitResult{}, err
	}

	data, err := application.EncodeEnvelope(envelope, uc.now())
	if err != nil {
		return SubmitResult{}, err
	}

	confirmTimeout := uc.ConfirmTimeout
	if confirmTimeout <= 0 {
		confirmTimeout = 5 * time.Second
	}

	if err := uc.Bus.Publish(ctx, stream, ports.EventEnvelope{MessageID: requestID, Data: data}, confirmTimeout); err != nil {
		logger.Error("ballot publish failed",
			"event", "ingestion_publish_failed",
			"module", "contexts/voteprocessing/application/ingestion",
			"layer", "application",
			"kind", kind,
			"ballot_scope", scope,
			"request_id", requestID,
			"error", err.Error(),
		)
		return SubmitResult{}, domainerrors.ErrBusUnavailable
	}

	logger.Info("ballot accepted for processing",
		"event", "ingestion_publish_succeeded",
		"module", "contexts/voteprocessing/application/ingestion",
		"layer", "application",
		"kind", kind,
		"ballot_scope", scope,
		"request_id", requestID,
	)
	return SubmitResult{RequestID: requestID}, nil
}

func (uc SubmitUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func validateLawInput(input entities.LawBallotInput) error {
	if !nasPattern.MatchString(input.NAS) {
		return domainerrors.ErrInvalidNAS
	}
	if !codePattern.MatchString(input.Code) {
		return domainerrors.ErrInvalidCode
	}
	ballotID := strings.TrimSpace(input.BallotID)
	if ballotID == "" || len(ballotID) > 50 {
		return domainerrors.ErrInvalidBallotID
	}
	if input.Choice != entities.ChoiceYes && input.Choice != entities.ChoiceNo {
		return domainerrors.ErrInvalidChoice
	}
	return nil
}

func validateElectionInput(input entities.ElectionBallotInput) error {
	if !nasPattern.MatchString(input.NAS) {
		return domainerrors.ErrInvalidNAS
	}
	if !codePattern.MatchString(input.Code) {
		return domainerrors.ErrInvalidCode
	}
	if input.ElectionID <= 0 {
		return domainerrors.ErrInvalidElectionID
	}
	if input.RegionID <= 0 {
		return domainerrors.ErrInvalidRegionID
	}
	switch input.Method {
	case entities.MethodSingle:
		if input.SingleChoice == nil || *input.SingleChoice <= 0 || len(input.RankedChoices) > 0 {
			return domainerrors.ErrInvalidChoicePayload
		}
	case entities.MethodRanked:
		if input.SingleChoice != nil || len(input.RankedChoices) == 0 {
			return domainerrors.ErrInvalidChoicePayload
		}
		seen := make(map[int64]struct{}, len(input.RankedChoices))
		for _, candidateID := range input.RankedChoices {
			if candidateID <= 0 {
				return domainerrors.ErrInvalidChoicePayload
			}
			if _, exists := seen[candidateID]; exists {
				return domainerrors.ErrDuplicateRankedEntry
			}
			seen[candidateID] = struct{}{}
		}
	default:
		return domainerrors.ErrInvalidMethod
	}
	return nil
}
