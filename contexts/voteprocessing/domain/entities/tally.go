package entities

import "time"

// LawTally is the per-ballot_id aggregate for a referendum. YesCount +
// NoCount should equal the number of accepted audit rows for BallotID once
// every batch up to the current point has been applied.
type LawTally struct {
	BallotID  string
	YesCount  int64
	NoCount   int64
	UpdatedAt time.Time
}

// LawTallyDelta is a batched increment applied to a law tally row by the
// aggregator's upsert.
type LawTallyDelta struct {
	BallotID string
	DeltaYes int64
	DeltaNo  int64
}

// ElectionTally is the per-(election, region, candidate) aggregate.
// Percentage is derived at read time, not stored authoritatively here.
type ElectionTally struct {
	ElectionID  int64
	RegionID    int64
	CandidateID int64
	VoteCount   int64
	UpdatedAt   time.Time
}

// ElectionTallyDelta is a batched increment applied to a single
// (election, region, candidate) row.
type ElectionTallyDelta struct {
	ElectionID  int64
	RegionID    int64
	CandidateID int64
	Delta       int64
}
