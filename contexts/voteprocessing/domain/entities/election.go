package entities

import "time"

// Election carries the voting window enforced by ingestion: submissions
// received outside [StartAt, EndAt) are rejected. StartAt is inclusive,
// EndAt is exclusive.
type Election struct {
	ID      int64
	Method  ElectionMethod
	StartAt time.Time
	EndAt   time.Time
}

// Open reports whether now falls within the election's voting window:
// submissions at StartAt are accepted, submissions at EndAt are rejected.
func (e Election) Open(now time.Time) bool {
	return !now.Before(e.StartAt) && now.Before(e.EndAt)
}
