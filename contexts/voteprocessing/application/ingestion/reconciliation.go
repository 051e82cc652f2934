package ingestion

import (
	"context"

	"votepipeline/contexts/voteprocessing/ports"
)

// ReconciliationReport compares count(accepted audits) for a ballot scope
// against its tally total, surfacing the drift a crash between the audit
// write and the forward-to-aggregation step can leave behind. A non-zero
// Drift means the aggregator owes that ballot scope Drift more tally
// increments than it has applied; operator tooling decides whether to
// replay.
type ReconciliationReport struct {
	BallotScope    string
	AcceptedAudits int64
	TalliedTotal   int64
	Drift          int64
}

type ReconciliationUseCase struct {
	Audit   ports.AuditRepository
	Tallies ports.TallyRepository
}

// LawReconciliation reports drift for a single referendum ballot_id.
func (uc ReconciliationUseCase) LawReconciliation(ctx context.Context, ballotID string) (ReconciliationReport, error) {
	accepted, err := uc.Audit.CountAccepted(ctx, ballotID)
	if err != nil {
		return ReconciliationReport{}, err
	}
	tally, err := uc.Tallies.GetLawTally(ctx, ballotID)
	if err != nil {
		return ReconciliationReport{}, err
	}
	total := tally.YesCount + tally.NoCount
	return ReconciliationReport{
		BallotScope:    ballotID,
		AcceptedAudits: accepted,
		TalliedTotal:   total,
		Drift:          accepted - total,
	}, nil
}
