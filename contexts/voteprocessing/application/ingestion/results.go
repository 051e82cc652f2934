package ingestion

import (
	"context"

	"votepipeline/contexts/voteprocessing/domain/entities"
	"votepipeline/contexts/voteprocessing/ports"
)

// ResultsUseCase is a read-only pass-through to the tally store. It never
// joins against audit rows, matching the read-side contract of the audit &
// tally store client.
type ResultsUseCase struct {
	Tallies ports.TallyRepository
}

func (uc ResultsUseCase) LawResults(ctx context.Context, ballotID string) (entities.LawTally, error) {
	return uc.Tallies.GetLawTally(ctx, ballotID)
}

func (uc ResultsUseCase) ElectionResults(ctx context.Context, electionID, regionID int64) ([]entities.ElectionTally, error) {
	return uc.Tallies.GetElectionTally(ctx, electionID, regionID)
}
