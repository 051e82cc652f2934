package http

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type SubmitLawVoteRequest struct {
	NAS      string `json:"nas"`
	Code     string `json:"code"`
	BallotID string `json:"ballot_id"`
	Choice   string `json:"choice"`
}

type SubmitElectionVoteRequest struct {
	NAS           string  `json:"nas"`
	Code          string  `json:"code"`
	ElectionID    int64   `json:"election_id"`
	RegionID      int64   `json:"region_id"`
	Method        string  `json:"method"`
	SingleChoice  *int64  `json:"single_choice,omitempty"`
	RankedChoices []int64 `json:"ranked_choices,omitempty"`
}

type SubmitVoteResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

type LawResultsResponse struct {
	BallotID  string `json:"ballot_id"`
	YesCount  int64  `json:"yes_count"`
	NoCount   int64  `json:"no_count"`
	UpdatedAt string `json:"updated_at"`
}

type ElectionResultItem struct {
	CandidateID int64   `json:"candidate_id"`
	VoteCount   int64   `json:"vote_count"`
	Percentage  float64 `json:"percentage"`
	UpdatedAt   string  `json:"updated_at"`
}

type ElectionResultsResponse struct {
	ElectionID int64                `json:"election_id"`
	RegionID   int64                `json:"region_id"`
	Candidates []ElectionResultItem `json:"candidates"`
}

type HealthResponse struct {
	BusReachable         bool `json:"bus_reachable"`
	CredentialsReachable bool `json:"credentials_reachable"`
}

type ReconciliationResponse struct {
	BallotScope    string `json:"ballot_scope"`
	AcceptedAudits int64  `json:"accepted_audits"`
	TalliedTotal   int64  `json:"tallied_total"`
	Drift          int64  `json:"drift"`
}
