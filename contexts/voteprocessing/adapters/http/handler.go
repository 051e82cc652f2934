package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"votepipeline/contexts/voteprocessing/application/ingestion"
	"votepipeline/contexts/voteprocessing/domain/entities"
	httptransport "votepipeline/contexts/voteprocessing/transport/http"
)

// Handler adapts ingestion's use cases to the HTTP transport DTOs. It holds
// no state of its own beyond the use cases it wraps.
type Handler struct {
	Submit         ingestion.SubmitUseCase
	Results        ingestion.ResultsUseCase
	Health         ingestion.HealthUseCase
	Reconciliation ingestion.ReconciliationUseCase
	Logger         *slog.Logger
}

func (h Handler) SubmitLawVoteHandler(ctx context.Context, req httptransport.SubmitLawVoteRequest) (httptransport.SubmitVoteResponse, error) {
	result, err := h.Submit.SubmitLaw(ctx, entities.LawBallotInput{
		NAS:      req.NAS,
		Code:     req.Code,
		BallotID: req.BallotID,
		Choice:   entities.Choice(req.Choice),
	})
	if err != nil {
		return httptransport.SubmitVoteResponse{}, err
	}
	return httptransport.SubmitVoteResponse{RequestID: result.RequestID, Status: "accepted"}, nil
}

func (h Handler) SubmitElectionVoteHandler(ctx context.Context, req httptransport.SubmitElectionVoteRequest) (httptransport.SubmitVoteResponse, error) {
	result, err := h.Submit.SubmitElection(ctx, entities.ElectionBallotInput{
		NAS:           req.NAS,
		Code:          req.Code,
		ElectionID:    req.ElectionID,
		RegionID:      req.RegionID,
		Method:        entities.ElectionMethod(req.Method),
		SingleChoice:  req.SingleChoice,
		RankedChoices: req.RankedChoices,
	})
	if err != nil {
		return httptransport.SubmitVoteResponse{}, err
	}
	return httptransport.SubmitVoteResponse{RequestID: result.RequestID, Status: "accepted"}, nil
}

func (h Handler) LawResultsHandler(ctx context.Context, ballotID string) (httptransport.LawResultsResponse, error) {
	tally, err := h.Results.LawResults(ctx, ballotID)
	if err != nil {
		return httptransport.LawResultsResponse{}, err
	}
	return httptransport.LawResultsResponse{
		BallotID:  tally.BallotID,
		YesCount:  tally.YesCount,
		NoCount:   tally.NoCount,
		UpdatedAt: formatTime(tally.UpdatedAt),
	}, nil
}

func (h Handler) ElectionResultsHandler(ctx context.Context, electionID, regionID int64) (httptransport.ElectionResultsResponse, error) {
	tallies, err := h.Results.ElectionResults(ctx, electionID, regionID)
	if err != nil {
		return httptransport.ElectionResultsResponse{}, err
	}

	var total int64
	for _, t := range tallies {
		total += t.VoteCount
	}

	items := make([]httptransport.ElectionResultItem, 0, len(tallies))
	for _, t := range tallies {
		var percentage float64
		if total > 0 {
			percentage = float64(t.VoteCount) / float64(total) * 100
		}
		items = append(items, httptransport.ElectionResultItem{
			CandidateID: t.CandidateID,
			VoteCount:   t.VoteCount,
			Percentage:  percentage,
			UpdatedAt:   formatTime(t.UpdatedAt),
		})
	}
	return httptransport.ElectionResultsResponse{
		ElectionID: electionID,
		RegionID:   regionID,
		Candidates: items,
	}, nil
}

func (h Handler) HealthHandler(ctx context.Context) httptransport.HealthResponse {
	status := h.Health.Check(ctx)
	return httptransport.HealthResponse{
		BusReachable:         status.BusReachable,
		CredentialsReachable: status.CredentialsReachable,
	}
}

func (h Handler) LawReconciliationHandler(ctx context.Context, ballotID string) (httptransport.ReconciliationResponse, error) {
	report, err := h.Reconciliation.LawReconciliation(ctx, ballotID)
	if err != nil {
		return httptransport.ReconciliationResponse{}, err
	}
	return httptransport.ReconciliationResponse{
		BallotScope:    report.BallotScope,
		AcceptedAudits: report.AcceptedAudits,
		TalliedTotal:   report.TalliedTotal,
		Drift:          report.Drift,
	}, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
