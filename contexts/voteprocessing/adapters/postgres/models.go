package postgresadapter

import (
	"encoding/json"
	"time"

	"votepipeline/contexts/voteprocessing/domain/entities"
)

// auditModel backs the immutable audit log. The partial unique index
// uq_audit_accepted_scope on (fingerprint, ballot_scope) WHERE status =
// 'accepted' is not created by this package (nor is any table); the
// database schema provides it. It is the database-side backstop behind the Redis claim that stops a double
// acceptance from ever landing.
type auditModel struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Fingerprint   string    `gorm:"column:fingerprint"`
	BallotScope   string    `gorm:"column:ballot_scope"`
	ChoicePayload []byte    `gorm:"column:choice_payload"`
	Status        string    `gorm:"column:status"`
	AttemptCount  int       `gorm:"column:attempt_count"`
	ReceivedAt    time.Time `gorm:"column:received_at"`
	ProcessedAt   time.Time `gorm:"column:processed_at"`
	Error         string    `gorm:"column:error"`
}

func (auditModel) TableName() string {
	return "vote_audit_log"
}

func auditModelFromEntity(record entities.AuditRecord) (auditModel, error) {
	payload, err := json.Marshal(record.ChoicePayload)
	if err != nil {
		return auditModel{}, err
	}
	return auditModel{
		ID:            record.ID,
		Fingerprint:   record.Fingerprint.String(),
		BallotScope:   record.BallotScope,
		ChoicePayload: payload,
		Status:        string(record.Status),
		AttemptCount:  record.AttemptCount,
		ReceivedAt:    record.ReceivedAt.UTC(),
		ProcessedAt:   record.ProcessedAt.UTC(),
		Error:         record.Error,
	}, nil
}

// lawTallyModel is the per-ballot_id aggregate row, upserted by the
// aggregator's batched flush.
type lawTallyModel struct {
	BallotID  string    `gorm:"column:ballot_id;primaryKey"`
	YesCount  int64     `gorm:"column:yes_count"`
	NoCount   int64     `gorm:"column:no_count"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (lawTallyModel) TableName() string {
	return "law_tallies"
}

func (m lawTallyModel) toEntity() entities.LawTally {
	return entities.LawTally{
		BallotID:  m.BallotID,
		YesCount:  m.YesCount,
		NoCount:   m.NoCount,
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

// electionTallyModel is the per-(election, region, candidate) aggregate row.
type electionTallyModel struct {
	ElectionID  int64     `gorm:"column:election_id;primaryKey"`
	RegionID    int64     `gorm:"column:region_id;primaryKey"`
	CandidateID int64     `gorm:"column:candidate_id;primaryKey"`
	VoteCount   int64     `gorm:"column:vote_count"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (electionTallyModel) TableName() string {
	return "election_tallies"
}

func (m electionTallyModel) toEntity() entities.ElectionTally {
	return entities.ElectionTally{
		ElectionID:  m.ElectionID,
		RegionID:    m.RegionID,
		CandidateID: m.CandidateID,
		VoteCount:   m.VoteCount,
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

// electionModel carries the voting window ingestion and the validation
// worker consult to reject ballots outside [start_at, end_at).
type electionModel struct {
	ID      int64     `gorm:"column:id;primaryKey"`
	Method  string    `gorm:"column:method"`
	StartAt time.Time `gorm:"column:start_at"`
	EndAt   time.Time `gorm:"column:end_at"`
}

func (electionModel) TableName() string {
	return "elections"
}

func (m electionModel) toEntity() entities.Election {
	return entities.Election{
		ID:      m.ID,
		Method:  entities.ElectionMethod(m.Method),
		StartAt: m.StartAt.UTC(),
		EndAt:   m.EndAt.UTC(),
	}
}
